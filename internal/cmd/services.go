package main

import (
	"github.com/quizdeck/quizdeck/internal/buzzer"
	"github.com/quizdeck/quizdeck/internal/engine"
	"github.com/quizdeck/quizdeck/internal/events"
	"github.com/quizdeck/quizdeck/internal/hub"
	"github.com/quizdeck/quizdeck/internal/reveal"
	"github.com/quizdeck/quizdeck/internal/session"
	"github.com/quizdeck/quizdeck/internal/timer"
)

type Services struct {
	Store   *session.Store
	Hub     *hub.Hub
	Timer   *timer.Controller
	Zoom    *reveal.Controller
	Mystery *reveal.Controller
	Arbiter *buzzer.Arbiter
	Engine  *engine.Engine
	Nav     *engine.Navigator
}

func setupServices(config *Config) *Services {
	// Wire up dependency injection chain
	// Store → hub → interval controllers → engine → navigator

	store := session.NewStore(config.Data.Dir)

	realtimeHub := hub.NewHub(hub.Config{
		HeartbeatInterval: config.heartbeatInterval(),
		MessageRate:       config.Hub.MessageRate,
		MessageBurst:      config.Hub.MessageBurst,
	})

	// Every interval controller publishes on the quiz channel.
	channel := config.Quiz.Channel
	if channel == "" {
		channel = engine.DefaultConfig().Channel
	}
	publish := func(event events.Event) {
		realtimeHub.Publish(channel, event)
	}

	countdown := timer.NewController(timer.Config{
		EmitInterval:   config.timerEmitInterval(),
		DefaultSeconds: config.Quiz.DefaultSeconds,
	}, publish)
	zoom := reveal.NewController(reveal.ModeZoom, config.zoomInterval(), publish)
	mystery := reveal.NewController(reveal.ModeMystery, config.mysteryInterval(), publish)
	arbiter := buzzer.NewArbiter(buzzer.Config{})

	quizEngine := engine.NewEngine(engine.Config{
		Channel:         channel,
		DefaultSeconds:  config.Quiz.DefaultSeconds,
		ClosestSlope:    config.Quiz.ClosestSlope,
		LeaderboardSize: config.Quiz.LeaderboardSize,
		ZoomSteps:       config.Quiz.ZoomSteps,
		ZoomInterval:    config.zoomInterval(),
		MysteryTiles:    config.Quiz.MysteryTiles,
		MysteryInterval: config.mysteryInterval(),
	}, store, realtimeHub, countdown, zoom, mystery, arbiter, nil, nil)

	navigator := engine.NewNavigator(quizEngine)

	// A client joining a room gets a catch-up replay of room state.
	realtimeHub.OnRoomJoin(func(roomID, connID, role string) {
		realtimeHub.SendReplay(connID, roomID, nil, nil)
	})

	return &Services{
		Store:   store,
		Hub:     realtimeHub,
		Timer:   countdown,
		Zoom:    zoom,
		Mystery: mystery,
		Arbiter: arbiter,
		Engine:  quizEngine,
		Nav:     navigator,
	}
}
