package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/quizdeck/quizdeck/internal/events"
	"github.com/quizdeck/quizdeck/internal/models"
)

// Navigator moves the session's round/question cursor. Every cursor move
// runs the same side-effecting sequence: set cursor, reset the phase to
// idle, stop the countdown, clear recorded answers, persist the session,
// best-effort clear the viewer-input buffer, then announce the new
// current question with a clear_assignments flag so surfaces wipe stale
// per-question state.
type Navigator struct {
	engine *Engine
}

// NewNavigator creates a navigator over the engine's session.
func NewNavigator(e *Engine) *Navigator {
	return &Navigator{engine: e}
}

// StartRound moves the cursor to the first question of the given round.
func (n *Navigator) StartRound(ctx context.Context, index int) error {
	return n.engine.guarded("startRound", func() error {
		e := n.engine

		moved := false
		ok := e.store.Update(func(s *models.Session) {
			if index < 0 || index >= len(s.Rounds) {
				return
			}
			s.Cursor = models.Cursor{Round: index, Question: 0}
			moved = true
		})
		if !ok {
			return ErrNoActiveSession
		}
		if !moved {
			return fmt.Errorf("round index %d out of range", index)
		}

		e.publish(events.NewStartRound(index, n.roundName(index)))
		return n.afterMove(ctx)
	})
}

// EndRound closes the current round without moving the cursor.
func (n *Navigator) EndRound(ctx context.Context) error {
	return n.engine.guarded("endRound", func() error {
		e := n.engine

		index := -1
		ok := e.store.View(func(s *models.Session) {
			if s.CurrentRound() != nil {
				index = s.Cursor.Round
			}
		})
		if !ok {
			return ErrNoActiveSession
		}
		if index < 0 {
			log.Warn().Msg("endRound with no current round, ignoring")
			return nil
		}

		e.publish(events.NewEndRound(index))

		e.setPhase(PhaseIdle)
		e.timer.Stop()
		e.store.ClearAnswers()
		e.arbiter.Reset()
		e.store.SaveSession(ctx)
		return nil
	})
}

// NextQuestion advances the cursor within the current round. At the last
// question it is a logged no-op: cursor and phase stay unchanged.
func (n *Navigator) NextQuestion(ctx context.Context) error {
	return n.move(ctx, "nextQuestion", +1)
}

// PrevQuestion moves the cursor back within the current round. At the
// first question it is a logged no-op.
func (n *Navigator) PrevQuestion(ctx context.Context) error {
	return n.move(ctx, "prevQuestion", -1)
}

// SelectQuestion jumps the cursor to the question with the given id,
// searching every round.
func (n *Navigator) SelectQuestion(ctx context.Context, id string) error {
	return n.engine.guarded("selectQuestion", func() error {
		e := n.engine

		found := false
		ok := e.store.Update(func(s *models.Session) {
			for ri := range s.Rounds {
				for qi := range s.Rounds[ri].Questions {
					if s.Rounds[ri].Questions[qi].ID == id {
						s.Cursor = models.Cursor{Round: ri, Question: qi}
						found = true
						return
					}
				}
			}
		})
		if !ok {
			return ErrNoActiveSession
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrNoCurrentQuestion, id)
		}
		return n.afterMove(ctx)
	})
}

func (n *Navigator) move(ctx context.Context, op string, delta int) error {
	return n.engine.guarded(op, func() error {
		e := n.engine

		hasRound := false
		moved := false
		ok := e.store.Update(func(s *models.Session) {
			round := s.CurrentRound()
			if round == nil {
				return
			}
			hasRound = true
			next := s.Cursor.Question + delta
			if next < 0 || next >= len(round.Questions) {
				return
			}
			s.Cursor.Question = next
			moved = true
		})
		if !ok {
			return ErrNoActiveSession
		}
		if !hasRound {
			log.Warn().Str("op", op).Msg("no current round, ignoring")
			return nil
		}
		if !moved {
			log.Debug().Str("op", op).Msg("cursor at round boundary, ignoring")
			return nil
		}
		return n.afterMove(ctx)
	})
}

// afterMove is the shared post-cursor-move sequence.
func (n *Navigator) afterMove(ctx context.Context) error {
	e := n.engine

	e.setPhase(PhaseIdle)
	e.timer.Stop()
	e.store.ClearAnswers()
	e.arbiter.Reset()
	e.store.SaveSession(ctx)

	if e.viewerInput != nil {
		if err := e.viewerInput.Clear(ctx); err != nil {
			log.Warn().Err(err).Msg("could not clear viewer input buffer")
		}
	}

	var q *models.Question
	e.store.View(func(s *models.Session) {
		q = s.CurrentQuestion()
	})
	e.publish(events.NewQuestionChange(q))
	return nil
}

func (n *Navigator) roundName(index int) string {
	name := ""
	n.engine.store.View(func(s *models.Session) {
		if index >= 0 && index < len(s.Rounds) {
			name = s.Rounds[index].Name
		}
	})
	return name
}
