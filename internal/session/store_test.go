package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdeck/quizdeck/internal/models"
)

func TestBankCRUDRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store := NewStore(dir)
	q, err := store.CreateQuestion(ctx, models.Question{
		Type:    models.QuestionTypeQCM,
		Label:   "Capital of France?",
		Options: []string{"Paris", "Lyon"},
		Points:  10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, q.ID)

	q.Label = "Capital of France (corrected)?"
	require.NoError(t, store.UpdateQuestion(ctx, q))

	// A fresh store sees the persisted bank.
	reloaded := NewStore(dir)
	got, err := reloaded.BankQuestion(q.ID)
	require.NoError(t, err)
	assert.Equal(t, "Capital of France (corrected)?", got.Label)

	require.NoError(t, reloaded.DeleteQuestion(ctx, q.ID))
	_, err = reloaded.BankQuestion(q.ID)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestUpdateUnknownQuestion(t *testing.T) {
	store := NewStore(t.TempDir())
	err := store.UpdateQuestion(context.Background(), models.Question{ID: "missing"})
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestMalformedBankFileIsAbsorbed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "question_bank.json"), []byte("{not json"), 0o644))

	store := NewStore(dir)
	assert.Empty(t, store.BankQuestions(), "malformed bank loads as empty, not a crash")

	// The store remains writable afterwards.
	_, err := store.CreateQuestion(context.Background(), models.Question{Label: "q"})
	assert.NoError(t, err)
}

func TestConcurrentBankMutationsStayConsistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	store := NewStore(dir)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.CreateQuestion(ctx, models.Question{Label: "q", Points: 5})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Every awaited save resolved, so the on-disk document must match the
	// final in-memory state exactly.
	data, err := os.ReadFile(filepath.Join(dir, "question_bank.json"))
	require.NoError(t, err)
	var doc bankDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc.Questions, n)
	assert.Len(t, store.BankQuestions(), n)
}

func TestSessionRoundTripDefaultsMissingFields(t *testing.T) {
	dir := t.TempDir()
	// A session document written by an older build, missing the optional
	// maps and the score panel flag.
	raw := `{"rounds":[{"name":"r1","questions":[{"id":"q1","type":"qcm","label":"?","points":5}]}],"cursor":{"round":0,"question":0},"players":[{"id":"p1","name":"Alice"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.json"), []byte(raw), 0o644))

	store := NewStore(dir)
	require.True(t, store.HasSession())
	store.View(func(s *models.Session) {
		assert.NotNil(t, s.PlayerScores)
		assert.NotNil(t, s.Answers)
		assert.False(t, s.ScorePanelVisible)
		assert.Equal(t, "q1", s.CurrentQuestion().ID)
	})
}

func TestAddScoreNeverRemovesKeys(t *testing.T) {
	store := NewStore(t.TempDir())
	store.SetSession(context.Background(), &models.Session{})

	assert.Equal(t, 10, store.AddScore("p1", 10))
	assert.Equal(t, 4, store.AddScore("p1", -6))
	assert.Equal(t, 0, store.AddScore("p2", 0))

	store.View(func(s *models.Session) {
		assert.Len(t, s.PlayerScores, 2)
	})
}

func TestSetSessionPersists(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	store.SetSession(context.Background(), &models.Session{
		Rounds: []models.Round{{Name: "r1", Questions: []models.Question{{ID: "q1", Points: 1}}}},
	})

	reloaded := NewStore(dir)
	require.True(t, reloaded.HasSession())
	reloaded.View(func(s *models.Session) {
		assert.Equal(t, "r1", s.Rounds[0].Name)
	})
}
