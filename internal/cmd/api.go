package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/quizdeck/quizdeck/internal/engine"
	"github.com/quizdeck/quizdeck/internal/models"
	"github.com/quizdeck/quizdeck/internal/session"
)

// api is the host control surface: the REST endpoints the operator UI
// drives the quiz through. Realtime fan-out to overlays happens on the
// websocket side; these handlers only mutate and read.
type api struct {
	services *Services
}

func (a *api) register(mux *http.ServeMux) {
	// Session lifecycle
	mux.HandleFunc("POST /api/session", a.createSession)
	mux.HandleFunc("GET /api/session", a.getSession)

	// Phase engine
	mux.HandleFunc("POST /api/quiz/show", a.engineOp(a.services.Engine.ShowCurrentQuestion))
	mux.HandleFunc("POST /api/quiz/lock", a.engineOp(a.services.Engine.LockAnswers))
	mux.HandleFunc("POST /api/quiz/reveal", a.engineOp(a.services.Engine.Reveal))
	mux.HandleFunc("POST /api/quiz/reset", a.engineOp(a.services.Engine.ResetQuestion))
	mux.HandleFunc("POST /api/quiz/interstitial", a.engineOp(a.services.Engine.Interstitial))
	mux.HandleFunc("POST /api/quiz/score-panel/toggle", a.engineOp(a.services.Engine.ToggleScorePanel))
	mux.HandleFunc("POST /api/quiz/winners", a.applyWinners)
	mux.HandleFunc("POST /api/quiz/answer", a.submitAnswer)

	// Navigation
	mux.HandleFunc("POST /api/rounds/start", a.startRound)
	mux.HandleFunc("POST /api/rounds/end", a.engineOp(a.services.Nav.EndRound))
	mux.HandleFunc("POST /api/questions/next", a.engineOp(a.services.Nav.NextQuestion))
	mux.HandleFunc("POST /api/questions/prev", a.engineOp(a.services.Nav.PrevQuestion))
	mux.HandleFunc("POST /api/questions/select", a.selectQuestion)

	// Question bank
	mux.HandleFunc("GET /api/bank", a.listBank)
	mux.HandleFunc("POST /api/bank", a.createBankQuestion)
	mux.HandleFunc("GET /api/bank/{id}", a.getBankQuestion)
	mux.HandleFunc("PUT /api/bank/{id}", a.updateBankQuestion)
	mux.HandleFunc("DELETE /api/bank/{id}", a.deleteBankQuestion)

	// Buzzer
	mux.HandleFunc("POST /api/buzzer/hit", a.buzzerHit)
	mux.HandleFunc("POST /api/buzzer/lock", a.sideEffect(a.services.Arbiter.ForceLock))
	mux.HandleFunc("POST /api/buzzer/release", a.sideEffect(a.services.Arbiter.Release))
	mux.HandleFunc("POST /api/buzzer/reset", a.sideEffect(a.services.Arbiter.Reset))

	// Timer
	mux.HandleFunc("POST /api/timer/pause", a.sideEffect(a.services.Timer.Pause))
	mux.HandleFunc("POST /api/timer/resume", a.timerResume)
	mux.HandleFunc("POST /api/timer/add", a.timerAdd)

	// Manual reveal stepping
	mux.HandleFunc("POST /api/zoom/step", a.revealStep(a.services.Zoom))
	mux.HandleFunc("POST /api/zoom/pause", a.sideEffect(a.services.Zoom.Stop))
	mux.HandleFunc("POST /api/zoom/resume", a.sideEffect(a.services.Zoom.Resume))
	mux.HandleFunc("POST /api/mystery/step", a.revealStep(a.services.Mystery))
	mux.HandleFunc("POST /api/mystery/pause", a.sideEffect(a.services.Mystery.Stop))
	mux.HandleFunc("POST /api/mystery/resume", a.sideEffect(a.services.Mystery.Resume))
}

func (a *api) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rounds []models.Round `json:"rounds"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := a.services.Engine.CreateSession(r.Context(), req.Rounds); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

func (a *api) getSession(w http.ResponseWriter, r *http.Request) {
	// Marshal under the store lock so concurrent engine mutations cannot
	// tear the snapshot.
	var snapshot []byte
	var marshalErr error
	ok := a.services.Store.View(func(s *models.Session) {
		snapshot, marshalErr = json.Marshal(s)
	})
	if !ok {
		writeError(w, engine.ErrNoActiveSession)
		return
	}
	if marshalErr != nil {
		writeError(w, marshalErr)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(snapshot); err != nil {
		log.Warn().Err(err).Msg("failed to write session snapshot")
	}
}

func (a *api) applyWinners(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerIDs []string `json:"playerIds"`
		Points    *int     `json:"points,omitempty"`
		Remove    bool     `json:"remove,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}
	override := engine.WinnerOverride{Points: req.Points, Remove: req.Remove}
	if err := a.services.Engine.ApplyWinners(r.Context(), req.PlayerIDs, override); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "scored"})
}

func (a *api) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string   `json:"playerId"`
		Option   *int     `json:"option,omitempty"`
		Text     string   `json:"text,omitempty"`
		Value    *float64 `json:"value,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.PlayerID == "" {
		writeBadRequest(w, "playerId is required")
		return
	}
	if err := a.services.Engine.SubmitPlayerAnswer(r.Context(), req.PlayerID, req.Option, req.Text, req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (a *api) startRound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := a.services.Nav.StartRound(r.Context(), req.Index); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (a *api) selectQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := a.services.Nav.SelectQuestion(r.Context(), req.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "selected"})
}

func (a *api) listBank(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.services.Store.BankQuestions())
}

func (a *api) getBankQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := a.services.Store.BankQuestion(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *api) createBankQuestion(w http.ResponseWriter, r *http.Request) {
	var q models.Question
	if !decode(w, r, &q) {
		return
	}
	created, err := a.services.Store.CreateQuestion(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *api) updateBankQuestion(w http.ResponseWriter, r *http.Request) {
	var q models.Question
	if !decode(w, r, &q) {
		return
	}
	q.ID = r.PathValue("id")
	if err := a.services.Store.UpdateQuestion(r.Context(), q); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *api) deleteBankQuestion(w http.ResponseWriter, r *http.Request) {
	if err := a.services.Store.DeleteQuestion(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) buzzerHit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.PlayerID == "" {
		writeBadRequest(w, "playerId is required")
		return
	}
	result := a.services.Arbiter.Hit(req.PlayerID)
	writeJSON(w, http.StatusOK, map[string]any{
		"accepted": result.Accepted,
		"winner":   result.Winner,
	})
}

func (a *api) timerResume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phase string `json:"phase"`
	}
	if !decode(w, r, &req) {
		return
	}
	a.services.Timer.Resume(req.Phase)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) timerAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds int `json:"seconds"`
	}
	if !decode(w, r, &req) {
		return
	}
	a.services.Timer.AddTime(req.Seconds)
	writeJSON(w, http.StatusOK, map[string]int{"seconds": a.services.Timer.Seconds()})
}

func (a *api) revealStep(controller interface{ Step(int) }) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Delta int `json:"delta"`
		}
		if !decode(w, r, &req) {
			return
		}
		if req.Delta == 0 {
			req.Delta = 1
		}
		controller.Step(req.Delta)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// engineOp adapts a no-payload engine or navigator call into a handler.
func (a *api) engineOp(op func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := op(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// sideEffect adapts a fire-and-forget controller call into a handler.
func (a *api) sideEffect(fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn()
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// writeError maps domain errors onto HTTP statuses: structural problems
// are client-visible conflicts or not-founds, everything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrNoActiveSession),
		errors.Is(err, engine.ErrNoCurrentRound),
		errors.Is(err, engine.ErrNoCurrentQuestion):
		status = http.StatusConflict
	case errors.Is(err, session.ErrQuestionNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
