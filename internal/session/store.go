// Package session owns the mutable quiz session and the question bank,
// both persisted as JSON documents. All mutation flows through the store;
// on-disk writes are serialized by a coalescing saver so concurrent
// mutations never interleave file writes.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/quizdeck/quizdeck/internal/models"
)

// Store holds the live session and the question bank.
type Store struct {
	mu      sync.Mutex
	session *models.Session
	bank    map[string]models.Question

	bankPath    string
	sessionPath string
	bankSaver   *saver
	sessSaver   *saver
}

// NewStore creates a store persisting under dataDir and loads whatever is
// already on disk. A malformed or missing bank file never fails startup:
// it is logged and treated as an empty bank.
func NewStore(dataDir string) *Store {
	s := &Store{
		bank:        make(map[string]models.Question),
		bankPath:    filepath.Join(dataDir, "question_bank.json"),
		sessionPath: filepath.Join(dataDir, "session.json"),
	}
	s.bankSaver = newSaver(s.writeBank)
	s.sessSaver = newSaver(s.writeSession)
	s.loadBank()
	s.loadSession()
	return s
}

// HasSession reports whether a session is live.
func (s *Store) HasSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// SetSession replaces the live session wholesale and persists it.
func (s *Store) SetSession(ctx context.Context, sess *models.Session) {
	if sess != nil {
		sess.Normalize()
	}
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
	s.SaveSession(ctx)
}

// View runs fn with the live session under the store lock. fn must not
// block or call back into the store. Returns false when no session is
// live.
func (s *Store) View(fn func(*models.Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return false
	}
	fn(s.session)
	return true
}

// Update runs fn with the live session under the store lock. The session
// is only ever observed before or after fn, never mid-mutation. Returns
// false when no session is live.
func (s *Store) Update(fn func(*models.Session)) bool {
	return s.View(fn)
}

// AddScore adds delta to a player's score and returns the new total.
// Score keys are only ever created, never removed.
func (s *Store) AddScore(playerID string, delta int) int {
	total := 0
	s.Update(func(sess *models.Session) {
		sess.PlayerScores[playerID] += delta
		total = sess.PlayerScores[playerID]
	})
	return total
}

// ClearAnswers resets the per-question answers map.
func (s *Store) ClearAnswers() {
	s.Update(func(sess *models.Session) {
		sess.Answers = make(map[string]models.Answer)
	})
}

// SaveSession persists the live session best-effort: failures are logged,
// never surfaced, so a disk hiccup cannot fail a quiz operation.
func (s *Store) SaveSession(ctx context.Context) {
	if err := s.sessSaver.Save(ctx); err != nil {
		log.Error().Err(err).Str("path", s.sessionPath).Msg("failed to persist session")
	}
}

func (s *Store) writeSession() error {
	s.mu.Lock()
	var data []byte
	var err error
	if s.session == nil {
		s.mu.Unlock()
		return nil
	}
	data, err = json.MarshalIndent(s.session, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return atomicWrite(s.sessionPath, data)
}

func (s *Store) loadSession() {
	data, err := os.ReadFile(s.sessionPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("path", s.sessionPath).Msg("could not read session file")
		}
		return
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		log.Error().Err(err).Str("path", s.sessionPath).Msg("malformed session file, starting without a session")
		return
	}
	// The same structural defaults apply on read as on live mutation.
	sess.Normalize()
	s.mu.Lock()
	s.session = &sess
	s.mu.Unlock()
}

// atomicWrite writes data to a temp file and renames it over path, so a
// crash mid-write never leaves a torn document.
func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
