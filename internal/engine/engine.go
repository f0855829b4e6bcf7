// Package engine orchestrates the quiz state machine and the session
// cursor. The phase engine composes the countdown timer, both reveal
// controllers, the buzzer arbiter, the scoring functions and the session
// store, and pushes every state change through the realtime publisher so
// all connected surfaces stay in step.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quizdeck/quizdeck/internal/buzzer"
	"github.com/quizdeck/quizdeck/internal/events"
	"github.com/quizdeck/quizdeck/internal/models"
	"github.com/quizdeck/quizdeck/internal/reveal"
	"github.com/quizdeck/quizdeck/internal/scoring"
	"github.com/quizdeck/quizdeck/internal/session"
	"github.com/quizdeck/quizdeck/internal/timer"
)

// ViewerInputBuffer is the external buffer of viewer submissions (chat
// votes, guesses) that must be wiped on question transitions. Clearing is
// best-effort: a failure is logged, never fatal.
type ViewerInputBuffer interface {
	Clear(ctx context.Context) error
}

// PlayerDirectory supplies the default player list for a new session.
type PlayerDirectory interface {
	DefaultPlayers(ctx context.Context) ([]models.Player, error)
}

// Config tunes the engine's defaults.
type Config struct {
	// Channel is the hub channel quiz events are published on.
	Channel string
	// DefaultSeconds is the countdown length for questions without one.
	DefaultSeconds int
	// ClosestSlope is the points lost per unit of distance on closest
	// questions scored by the falloff formula.
	ClosestSlope float64
	// LeaderboardSize caps leaderboard.push snapshots.
	LeaderboardSize int
	// ZoomSteps/ZoomInterval are fallbacks for questions with a zoom
	// reveal but no explicit sub-configuration.
	ZoomSteps    int
	ZoomInterval time.Duration
	// MysteryTiles/MysteryInterval are the mystery reveal fallbacks.
	MysteryTiles    int
	MysteryInterval time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Channel:         "quiz",
		DefaultSeconds:  30,
		ClosestSlope:    1,
		LeaderboardSize: 10,
		ZoomSteps:       10,
		ZoomInterval:    2 * time.Second,
		MysteryTiles:    16,
		MysteryInterval: 3 * time.Second,
	}
}

// Engine is the quiz phase engine.
type Engine struct {
	config  Config
	store   *session.Store
	pub     events.Publisher
	timer   *timer.Controller
	zoom    *reveal.Controller
	mystery *reveal.Controller
	arbiter *buzzer.Arbiter

	viewerInput ViewerInputBuffer
	directory   PlayerDirectory

	mu    sync.Mutex
	phase Phase
}

// NewEngine wires the phase engine. viewerInput and directory may be nil
// when the surrounding application does not provide those collaborators.
func NewEngine(
	config Config,
	store *session.Store,
	pub events.Publisher,
	clock *timer.Controller,
	zoom *reveal.Controller,
	mystery *reveal.Controller,
	arbiter *buzzer.Arbiter,
	viewerInput ViewerInputBuffer,
	directory PlayerDirectory,
) *Engine {
	if config.Channel == "" {
		config.Channel = DefaultConfig().Channel
	}
	if config.DefaultSeconds <= 0 {
		config.DefaultSeconds = DefaultConfig().DefaultSeconds
	}
	if config.LeaderboardSize <= 0 {
		config.LeaderboardSize = DefaultConfig().LeaderboardSize
	}
	if config.ClosestSlope <= 0 {
		config.ClosestSlope = DefaultConfig().ClosestSlope
	}
	if config.ZoomSteps <= 0 {
		config.ZoomSteps = DefaultConfig().ZoomSteps
	}
	if config.ZoomInterval <= 0 {
		config.ZoomInterval = DefaultConfig().ZoomInterval
	}
	if config.MysteryTiles <= 0 {
		config.MysteryTiles = DefaultConfig().MysteryTiles
	}
	if config.MysteryInterval <= 0 {
		config.MysteryInterval = DefaultConfig().MysteryInterval
	}
	return &Engine{
		config:      config,
		store:       store,
		pub:         pub,
		timer:       clock,
		zoom:        zoom,
		mystery:     mystery,
		arbiter:     arbiter,
		viewerInput: viewerInput,
		directory:   directory,
		phase:       PhaseIdle,
	}
}

// Phase returns the current state machine phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Arbiter exposes the buzzer arbiter to collaborators handling buzz
// input (chat commands, hardware buzzers).
func (e *Engine) Arbiter() *buzzer.Arbiter {
	return e.arbiter
}

// Timer exposes the countdown controller for manual time adjustments.
func (e *Engine) Timer() *timer.Controller {
	return e.timer
}

// CreateSession replaces the live session with a fresh one built from the
// given rounds, seeding the player list from the directory collaborator.
func (e *Engine) CreateSession(ctx context.Context, rounds []models.Round) error {
	sess := &models.Session{Rounds: rounds}
	if e.directory != nil {
		players, err := e.directory.DefaultPlayers(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("player directory unavailable, starting with no players")
		} else {
			sess.Players = players
		}
	}
	e.store.SetSession(ctx, sess)
	e.setPhase(PhaseIdle)
	return nil
}

// ShowCurrentQuestion displays the question under the cursor and opens it
// for answers.
func (e *Engine) ShowCurrentQuestion(ctx context.Context) error {
	return e.guarded("showCurrentQuestion", func() error {
		q, err := e.currentQuestion()
		if err != nil {
			return err
		}

		e.zoom.Reset()
		e.mystery.Reset()
		e.arbiter.Configure(buzzerConfig(q))
		e.store.ClearAnswers()

		e.setPhase(PhaseShowQuestion)
		zoomCfg := e.zoomSettings(q)
		e.publish(events.NewQuestionShow(q, zoomCfg))

		if zoomCfg != nil {
			e.zoom.SetInterval(time.Duration(zoomCfg.IntervalMs) * time.Millisecond)
			e.zoom.Start(zoomCfg.Steps)
		}
		if q.Mystery != nil {
			tiles, interval := e.mysterySettings(q)
			e.mystery.SetInterval(interval)
			e.mystery.Start(tiles)
		}

		e.setPhase(PhaseAcceptAnswers)
		e.publish(events.NewPhaseUpdate(string(PhaseAcceptAnswers)))

		seconds := q.Seconds
		if seconds <= 0 {
			seconds = e.config.DefaultSeconds
		}
		e.timer.Start(seconds, string(PhaseAcceptAnswers))

		e.publish(events.NewVoteUpdate(nil, 0))
		return nil
	})
}

// LockAnswers closes the question for answers and pauses the countdown.
func (e *Engine) LockAnswers(ctx context.Context) error {
	return e.guarded("lockAnswers", func() error {
		q, err := e.currentQuestion()
		if err != nil {
			return err
		}

		e.setPhase(PhaseLock)
		e.publish(events.NewQuestionLock(q.ID))
		e.publish(events.NewPhaseUpdate(string(PhaseLock)))
		e.timer.Pause()
		return nil
	})
}

// Reveal shows the correct answer, auto-scores every recorded answer and
// publishes the post-question sequence: reveal, per-player scores,
// leaderboard, finished, and the next question when one exists. A scoring
// failure for one player never blocks the others.
func (e *Engine) Reveal(ctx context.Context) error {
	return e.guarded("reveal", func() error {
		q, err := e.currentQuestion()
		if err != nil {
			return err
		}

		e.timer.Stop()
		if q.Mystery != nil {
			e.mystery.Stop()
		}
		if q.Zoom != nil {
			e.zoom.Stop()
			e.publish(events.NewZoomComplete())
		}

		e.setPhase(PhaseReveal)
		e.publish(events.NewQuestionReveal(q.ID, q.CorrectAnswer()))

		if q.AutoScorable() {
			e.scoreRecordedAnswers(q)
		}
		e.store.SaveSession(ctx)

		e.publish(events.NewQuestionRevealed(q.ID))

		e.setPhase(PhaseScoreUpdate)
		e.publish(events.NewLeaderboardPush(e.leaderboard()))
		e.publish(events.NewQuestionFinished(q.ID))

		var next *models.Question
		e.store.View(func(s *models.Session) {
			next = s.NextQuestion()
		})
		if next != nil {
			e.publish(events.NewQuestionNextReady(next.ID, next.Label))
		}
		return nil
	})
}

// WinnerOverride selects how ApplyWinners adjusts scores.
type WinnerOverride struct {
	// Points overrides the question's configured point value.
	Points *int
	// Remove negates the delta, taking points away instead.
	Remove bool
}

// ApplyWinners is the manual scoring path for closest and open questions:
// it applies the question's points (or the override) to each listed
// player, one score.update each, then republishes the leaderboard. A
// failure for one player is isolated from the others.
func (e *Engine) ApplyWinners(ctx context.Context, playerIDs []string, override WinnerOverride) error {
	return e.guarded("applyWinners", func() error {
		q, err := e.currentQuestion()
		if err != nil {
			return err
		}

		delta := q.Points
		if override.Points != nil {
			delta = *override.Points
		}
		if override.Remove {
			delta = -delta
		}

		for _, playerID := range playerIDs {
			total := e.store.AddScore(playerID, delta)
			e.publish(events.NewScoreUpdate(playerID, delta, total))
		}
		e.store.SaveSession(ctx)

		e.publish(events.NewLeaderboardPush(e.leaderboard()))
		return nil
	})
}

// ResetQuestion rewinds the current question to its unplayed state.
func (e *Engine) ResetQuestion(ctx context.Context) error {
	return e.guarded("resetQuestion", func() error {
		q, err := e.currentQuestion()
		if err != nil {
			return err
		}

		e.store.ClearAnswers()
		e.timer.Stop()
		e.setPhase(PhaseIdle)
		e.publish(events.NewQuestionReset(q.ID))
		e.publish(events.NewVoteUpdate(nil, 0))
		return nil
	})
}

// SubmitPlayerAnswer records the first non-empty of option/text/value as
// the player's answer and mirrors it to observers. All raw fields travel
// in the event, set or not, so observers can tell the answer kind apart.
func (e *Engine) SubmitPlayerAnswer(ctx context.Context, playerID string, option *int, text string, value *float64) error {
	return e.guarded("submitPlayerAnswer", func() error {
		if !e.store.HasSession() {
			return ErrNoActiveSession
		}

		ans := models.Answer{Option: option, Text: text, Value: value}
		switch {
		case option != nil:
			ans.Raw = strconv.Itoa(*option)
		case text != "":
			ans.Raw = text
		case value != nil:
			ans.Raw = strconv.FormatFloat(*value, 'f', -1, 64)
		}

		e.store.Update(func(s *models.Session) {
			s.Answers[playerID] = ans
		})

		e.publish(events.NewAnswerAssign(playerID, option, text, value, ans.Raw))
		return nil
	})
}

// ToggleScorePanel flips and persists the score panel visibility flag.
func (e *Engine) ToggleScorePanel(ctx context.Context) error {
	return e.guarded("toggleScorePanel", func() error {
		visible := false
		ok := e.store.Update(func(s *models.Session) {
			s.ScorePanelVisible = !s.ScorePanelVisible
			visible = s.ScorePanelVisible
		})
		if !ok {
			return ErrNoActiveSession
		}
		e.store.SaveSession(ctx)
		e.publish(events.NewScorePanelToggle(visible))
		return nil
	})
}

// Interstitial pauses the show between questions: the countdown is
// paused and surfaces switch to their interstitial display.
func (e *Engine) Interstitial(ctx context.Context) error {
	return e.guarded("interstitial", func() error {
		e.timer.Pause()
		e.setPhase(PhaseInterstitial)
		e.publish(events.NewPhaseUpdate(string(PhaseInterstitial)))
		return nil
	})
}

// guarded wraps a quiz operation: on failure the phase held before the
// call is restored, the failure is logged and a DomainError carrying the
// operation name is returned.
func (e *Engine) guarded(op string, fn func() error) error {
	before := e.Phase()
	if err := fn(); err != nil {
		e.setPhase(before)
		log.Error().Err(err).Str("op", op).Msg("quiz operation failed")
		return &DomainError{Op: op, Err: err}
	}
	return nil
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
}

func (e *Engine) publish(event events.Event) {
	e.pub.Publish(e.config.Channel, event)
}

// currentQuestion resolves the cursor, distinguishing a missing session,
// a dangling round and a dangling question.
func (e *Engine) currentQuestion() (*models.Question, error) {
	var q *models.Question
	var round *models.Round
	ok := e.store.View(func(s *models.Session) {
		round = s.CurrentRound()
		q = s.CurrentQuestion()
	})
	if !ok {
		return nil, ErrNoActiveSession
	}
	if round == nil {
		return nil, ErrNoCurrentRound
	}
	if q == nil {
		return nil, ErrNoCurrentQuestion
	}
	return q, nil
}

// zoomSettings resolves the question's zoom sub-configuration against the
// engine defaults so question.show always carries concrete values.
func (e *Engine) zoomSettings(q *models.Question) *events.ZoomSettings {
	if q.Zoom == nil {
		return nil
	}
	steps := q.Zoom.Steps
	if steps <= 0 {
		steps = e.config.ZoomSteps
	}
	intervalMs := q.Zoom.IntervalMs
	if intervalMs <= 0 {
		intervalMs = int(e.config.ZoomInterval / time.Millisecond)
	}
	return &events.ZoomSettings{Steps: steps, Levels: q.Zoom.Levels, IntervalMs: intervalMs}
}

// mysterySettings resolves the question's mystery sub-configuration
// against the engine defaults.
func (e *Engine) mysterySettings(q *models.Question) (int, time.Duration) {
	tiles := q.Mystery.Tiles
	if tiles <= 0 {
		tiles = e.config.MysteryTiles
	}
	interval := time.Duration(q.Mystery.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = e.config.MysteryInterval
	}
	return tiles, interval
}

func buzzerConfig(q *models.Question) buzzer.Config {
	if q.Buzzer == nil || !q.Buzzer.Enabled {
		return buzzer.Config{}
	}
	return buzzer.Config{
		StealEnabled: q.Buzzer.StealWindowMs > 0,
		StealWindow:  time.Duration(q.Buzzer.StealWindowMs) * time.Millisecond,
		LockWindow:   time.Duration(q.Buzzer.LockMs) * time.Millisecond,
	}
}

// scoreRecordedAnswers applies auto-scoring to every player with a
// recorded answer. Per-player failures are logged and skipped.
func (e *Engine) scoreRecordedAnswers(q *models.Question) {
	answers := make(map[string]models.Answer)
	e.store.View(func(s *models.Session) {
		for id, ans := range s.Answers {
			answers[id] = ans
		}
	})

	playerIDs := make([]string, 0, len(answers))
	for id := range answers {
		playerIDs = append(playerIDs, id)
	}
	sort.Strings(playerIDs)

	for _, playerID := range playerIDs {
		delta, err := e.scoreAnswer(q, answers[playerID])
		if err != nil {
			log.Warn().
				Err(err).
				Str("player_id", playerID).
				Str("question_id", q.ID).
				Msg("could not score answer")
			continue
		}
		total := e.store.AddScore(playerID, delta)
		e.publish(events.NewScoreUpdate(playerID, delta, total))
	}
}

// scoreAnswer computes one player's delta for an auto-scorable question.
func (e *Engine) scoreAnswer(q *models.Question, ans models.Answer) (int, error) {
	switch q.Type {
	case models.QuestionTypeQCM, models.QuestionTypeImage:
		if ans.Option == nil {
			return 0, fmt.Errorf("answer for question %s has no option", q.ID)
		}
		if q.CorrectOption == nil {
			return 0, fmt.Errorf("question %s has no correct option", q.ID)
		}
		return scoring.QCM(scoring.QCMCorrect(*ans.Option, *q.CorrectOption), q.Points), nil

	case models.QuestionTypeClosest:
		if ans.Value == nil {
			return 0, fmt.Errorf("answer for question %s has no numeric value", q.ID)
		}
		if q.Target == nil {
			return 0, fmt.Errorf("question %s has no target", q.ID)
		}
		// A configured range turns closest into all-or-nothing; without
		// one the linear falloff applies.
		if q.Range != nil {
			if scoring.WithinRange(*q.Target, *ans.Value, *q.Range) {
				return q.Points, nil
			}
			return 0, nil
		}
		return scoring.Closest(*q.Target, *ans.Value, q.Points, e.config.ClosestSlope), nil

	default:
		return 0, fmt.Errorf("question type %s is not auto-scorable", q.Type)
	}
}

// leaderboard builds the top-N snapshot by score, ties broken by name so
// the ordering is stable across pushes.
func (e *Engine) leaderboard() []events.LeaderboardEntry {
	var entries []events.LeaderboardEntry
	e.store.View(func(s *models.Session) {
		names := make(map[string]string, len(s.Players))
		for _, p := range s.Players {
			names[p.ID] = p.Name
		}
		for id, score := range s.PlayerScores {
			entries = append(entries, events.LeaderboardEntry{
				PlayerID: id,
				Name:     names[id],
				Score:    score,
			})
		}
	})

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > e.config.LeaderboardSize {
		entries = entries[:e.config.LeaderboardSize]
	}
	if entries == nil {
		entries = []events.LeaderboardEntry{}
	}
	return entries
}
