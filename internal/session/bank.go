package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/quizdeck/quizdeck/internal/models"
)

// bankDocument is the on-disk shape of the question bank: one JSON
// document holding every authored question by id.
type bankDocument struct {
	Questions map[string]models.Question `json:"questions"`
}

// ErrQuestionNotFound is returned for bank lookups and updates against an
// unknown question id.
var ErrQuestionNotFound = errors.New("question not found")

// BankQuestion returns one authored question by id.
func (s *Store) BankQuestion(id string) (models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.bank[id]
	if !ok {
		return models.Question{}, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}
	return q, nil
}

// BankQuestions returns all authored questions, ordered by id for stable
// listings.
func (s *Store) BankQuestions() []models.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Question, 0, len(s.bank))
	for _, q := range s.bank {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CreateQuestion adds a question to the bank, assigning an id when the
// caller did not, and persists the bank.
func (s *Store) CreateQuestion(ctx context.Context, q models.Question) (models.Question, error) {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	s.mu.Lock()
	s.bank[q.ID] = q
	s.mu.Unlock()

	if err := s.bankSaver.Save(ctx); err != nil {
		return q, fmt.Errorf("persist question bank: %w", err)
	}
	return q, nil
}

// UpdateQuestion replaces an authored question and persists the bank.
func (s *Store) UpdateQuestion(ctx context.Context, q models.Question) error {
	s.mu.Lock()
	if _, ok := s.bank[q.ID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrQuestionNotFound, q.ID)
	}
	s.bank[q.ID] = q
	s.mu.Unlock()

	if err := s.bankSaver.Save(ctx); err != nil {
		return fmt.Errorf("persist question bank: %w", err)
	}
	return nil
}

// DeleteQuestion removes an authored question and persists the bank.
// Deleting an unknown id is a no-op.
func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.bank, id)
	s.mu.Unlock()

	if err := s.bankSaver.Save(ctx); err != nil {
		return fmt.Errorf("persist question bank: %w", err)
	}
	return nil
}

func (s *Store) writeBank() error {
	s.mu.Lock()
	doc := bankDocument{Questions: make(map[string]models.Question, len(s.bank))}
	for id, q := range s.bank {
		doc.Questions[id] = q
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal question bank: %w", err)
	}
	return atomicWrite(s.bankPath, data)
}

func (s *Store) loadBank() {
	data, err := os.ReadFile(s.bankPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("path", s.bankPath).Msg("could not read question bank")
		}
		return
	}
	var doc bankDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Error().
			Err(err).
			Str("path", s.bankPath).
			Msg("malformed question bank, starting with an empty bank")
		return
	}
	if doc.Questions == nil {
		return
	}
	s.mu.Lock()
	s.bank = doc.Questions
	s.mu.Unlock()
}
