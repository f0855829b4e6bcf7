package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Data struct {
		Dir string `yaml:"dir"`
	} `yaml:"data"`
	Hub struct {
		HeartbeatIntervalSeconds int     `yaml:"heartbeat_interval_seconds"`
		MessageRate              float64 `yaml:"message_rate"`
		MessageBurst             int     `yaml:"message_burst"`
	} `yaml:"hub"`
	Quiz struct {
		Channel           string  `yaml:"channel"`
		DefaultSeconds    int     `yaml:"default_seconds"`
		ClosestSlope      float64 `yaml:"closest_slope"`
		LeaderboardSize   int     `yaml:"leaderboard_size"`
		ZoomSteps         int     `yaml:"zoom_steps"`
		ZoomIntervalMs    int     `yaml:"zoom_interval_ms"`
		MysteryTiles      int     `yaml:"mystery_tiles"`
		MysteryIntervalMs int     `yaml:"mystery_interval_ms"`
	} `yaml:"quiz"`
	Timer struct {
		EmitIntervalMs int `yaml:"emit_interval_ms"`
	} `yaml:"timer"`
}

func defaultConfig() *Config {
	var config Config
	config.Server.Port = "8080"
	config.Data.Dir = "data"
	config.Quiz.Channel = "quiz"
	return &config
}

// loadConfig reads the YAML config file, falling back to defaults when
// the file is absent, then applies environment overrides.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", path).Msg("no config file, using defaults")
			applyEnvOverrides(config)
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(config)
	return config, nil
}

func applyEnvOverrides(config *Config) {
	config.Server.Port = getEnv("PORT", config.Server.Port)
	config.Data.Dir = getEnv("DATA_DIR", config.Data.Dir)
	config.Hub.HeartbeatIntervalSeconds = getEnvAsInt("HEARTBEAT_INTERVAL_SECONDS", config.Hub.HeartbeatIntervalSeconds)
	config.Quiz.DefaultSeconds = getEnvAsInt("QUIZ_DEFAULT_SECONDS", config.Quiz.DefaultSeconds)
}

func (c *Config) heartbeatInterval() time.Duration {
	return time.Duration(c.Hub.HeartbeatIntervalSeconds) * time.Second
}

func (c *Config) zoomInterval() time.Duration {
	return time.Duration(c.Quiz.ZoomIntervalMs) * time.Millisecond
}

func (c *Config) mysteryInterval() time.Duration {
	return time.Duration(c.Quiz.MysteryIntervalMs) * time.Millisecond
}

func (c *Config) timerEmitInterval() time.Duration {
	return time.Duration(c.Timer.EmitIntervalMs) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
