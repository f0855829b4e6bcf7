package events

import "github.com/quizdeck/quizdeck/internal/models"

// StartRound announces that a round has been opened.
type StartRound struct {
	Type       Type   `json:"type"`
	RoundIndex int    `json:"round_index"`
	Name       string `json:"name"`
}

func NewStartRound(index int, name string) StartRound {
	return StartRound{Type: TypeStartRound, RoundIndex: index, Name: name}
}

func (StartRound) EventType() Type { return TypeStartRound }

// EndRound announces that the current round has been closed.
type EndRound struct {
	Type       Type `json:"type"`
	RoundIndex int  `json:"round_index"`
}

func NewEndRound(index int) EndRound {
	return EndRound{Type: TypeEndRound, RoundIndex: index}
}

func (EndRound) EventType() Type { return TypeEndRound }

// ZoomSettings carries the resolved zoom sub-configuration alongside
// question.show so observers can pre-size their animations.
type ZoomSettings struct {
	Steps      int       `json:"steps"`
	Levels     []float64 `json:"levels,omitempty"`
	IntervalMs int       `json:"interval_ms"`
}

// QuestionShow carries the full question being displayed.
type QuestionShow struct {
	Type     Type             `json:"type"`
	Question *models.Question `json:"question"`
	Zoom     *ZoomSettings    `json:"zoom,omitempty"`
}

func NewQuestionShow(q *models.Question, zoom *ZoomSettings) QuestionShow {
	return QuestionShow{Type: TypeQuestionShow, Question: q, Zoom: zoom}
}

func (QuestionShow) EventType() Type { return TypeQuestionShow }

// PhaseUpdate announces a quiz state machine transition.
type PhaseUpdate struct {
	Type  Type   `json:"type"`
	Phase string `json:"phase"`
}

func NewPhaseUpdate(phase string) PhaseUpdate {
	return PhaseUpdate{Type: TypePhaseUpdate, Phase: phase}
}

func (PhaseUpdate) EventType() Type { return TypePhaseUpdate }

// VoteUpdate carries the live vote tally for the current question. A
// zeroed tally resets any vote UI.
type VoteUpdate struct {
	Type   Type           `json:"type"`
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

func NewVoteUpdate(counts map[string]int, total int) VoteUpdate {
	if counts == nil {
		counts = map[string]int{}
	}
	return VoteUpdate{Type: TypeVoteUpdate, Counts: counts, Total: total}
}

func (VoteUpdate) EventType() Type { return TypeVoteUpdate }

// QuestionLock announces that answers are no longer accepted.
type QuestionLock struct {
	Type       Type   `json:"type"`
	QuestionID string `json:"question_id"`
}

func NewQuestionLock(questionID string) QuestionLock {
	return QuestionLock{Type: TypeQuestionLock, QuestionID: questionID}
}

func (QuestionLock) EventType() Type { return TypeQuestionLock }

// QuestionReveal carries the correct answer.
type QuestionReveal struct {
	Type       Type   `json:"type"`
	QuestionID string `json:"question_id"`
	Answer     any    `json:"answer"`
}

func NewQuestionReveal(questionID string, answer any) QuestionReveal {
	return QuestionReveal{Type: TypeQuestionReveal, QuestionID: questionID, Answer: answer}
}

func (QuestionReveal) EventType() Type { return TypeQuestionReveal }

// ScoreUpdate reports one player's score change.
type ScoreUpdate struct {
	Type     Type   `json:"type"`
	PlayerID string `json:"player_id"`
	Delta    int    `json:"delta"`
	Total    int    `json:"total"`
}

func NewScoreUpdate(playerID string, delta, total int) ScoreUpdate {
	return ScoreUpdate{Type: TypeScoreUpdate, PlayerID: playerID, Delta: delta, Total: total}
}

func (ScoreUpdate) EventType() Type { return TypeScoreUpdate }

// QuestionRevealed marks the end of the reveal step.
type QuestionRevealed struct {
	Type       Type   `json:"type"`
	QuestionID string `json:"question_id"`
}

func NewQuestionRevealed(questionID string) QuestionRevealed {
	return QuestionRevealed{Type: TypeQuestionRevealed, QuestionID: questionID}
}

func (QuestionRevealed) EventType() Type { return TypeQuestionRevealed }

// LeaderboardEntry is one row of a leaderboard snapshot.
type LeaderboardEntry struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// LeaderboardPush carries the top-N players by score.
type LeaderboardPush struct {
	Type    Type               `json:"type"`
	Entries []LeaderboardEntry `json:"entries"`
}

func NewLeaderboardPush(entries []LeaderboardEntry) LeaderboardPush {
	return LeaderboardPush{Type: TypeLeaderboardPush, Entries: entries}
}

func (LeaderboardPush) EventType() Type { return TypeLeaderboardPush }

// QuestionFinished marks the question as fully played out.
type QuestionFinished struct {
	Type       Type   `json:"type"`
	QuestionID string `json:"question_id"`
}

func NewQuestionFinished(questionID string) QuestionFinished {
	return QuestionFinished{Type: TypeQuestionFinished, QuestionID: questionID}
}

func (QuestionFinished) EventType() Type { return TypeQuestionFinished }

// QuestionNextReady names the upcoming question in the current round.
type QuestionNextReady struct {
	Type       Type   `json:"type"`
	QuestionID string `json:"question_id"`
	Label      string `json:"label"`
}

func NewQuestionNextReady(questionID, label string) QuestionNextReady {
	return QuestionNextReady{Type: TypeQuestionNextReady, QuestionID: questionID, Label: label}
}

func (QuestionNextReady) EventType() Type { return TypeQuestionNextReady }

// QuestionChange announces a cursor move. ClearAssignments tells UIs to
// wipe stale per-question state.
type QuestionChange struct {
	Type             Type             `json:"type"`
	Question         *models.Question `json:"question"`
	ClearAssignments bool             `json:"clear_assignments"`
}

func NewQuestionChange(q *models.Question) QuestionChange {
	return QuestionChange{Type: TypeQuestionChange, Question: q, ClearAssignments: true}
}

func (QuestionChange) EventType() Type { return TypeQuestionChange }

// QuestionReset rewinds the current question to its unplayed state.
type QuestionReset struct {
	Type       Type   `json:"type"`
	QuestionID string `json:"question_id"`
}

func NewQuestionReset(questionID string) QuestionReset {
	return QuestionReset{Type: TypeQuestionReset, QuestionID: questionID}
}

func (QuestionReset) EventType() Type { return TypeQuestionReset }

// AnswerAssign reports a recorded player answer. All raw fields are kept,
// set or not, so observers can distinguish the answer kind.
type AnswerAssign struct {
	Type     Type     `json:"type"`
	PlayerID string   `json:"player_id"`
	Option   *int     `json:"option"`
	Text     string   `json:"text"`
	Value    *float64 `json:"value"`
	Raw      string   `json:"raw"`
}

func NewAnswerAssign(playerID string, option *int, text string, value *float64, raw string) AnswerAssign {
	return AnswerAssign{Type: TypeAnswerAssign, PlayerID: playerID, Option: option, Text: text, Value: value, Raw: raw}
}

func (AnswerAssign) EventType() Type { return TypeAnswerAssign }

// ScorePanelToggle reports the score panel visibility flag.
type ScorePanelToggle struct {
	Type    Type `json:"type"`
	Visible bool `json:"visible"`
}

func NewScorePanelToggle(visible bool) ScorePanelToggle {
	return ScorePanelToggle{Type: TypeScorePanelToggle, Visible: visible}
}

func (ScorePanelToggle) EventType() Type { return TypeScorePanelToggle }

// RevealProgress is shared by the zoom and mystery controller events;
// the Type tag distinguishes start/step/stop and the variant.
type RevealProgress struct {
	Type    Type `json:"type"`
	Current int  `json:"current"`
	Total   int  `json:"total"`
}

func NewRevealProgress(t Type, current, total int) RevealProgress {
	return RevealProgress{Type: t, Current: current, Total: total}
}

func (e RevealProgress) EventType() Type { return e.Type }

// ZoomComplete announces the zoom animation landing at full scale.
type ZoomComplete struct {
	Type  Type    `json:"type"`
	Scale float64 `json:"scale"`
}

func NewZoomComplete() ZoomComplete {
	return ZoomComplete{Type: TypeZoomComplete, Scale: 1.0}
}

func (ZoomComplete) EventType() Type { return TypeZoomComplete }

// TimerTick is the countdown heartbeat for the current phase.
type TimerTick struct {
	Type             Type   `json:"type"`
	SecondsRemaining int    `json:"seconds_remaining"`
	Phase            string `json:"phase"`
}

func NewTimerTick(seconds int, phase string) TimerTick {
	return TimerTick{Type: TypeTimerTick, SecondsRemaining: seconds, Phase: phase}
}

func (TimerTick) EventType() Type { return TypeTimerTick }

// PresenceEntry is one connection's presence record in a room.
type PresenceEntry struct {
	ConnID       string `json:"connId"`
	Role         string `json:"role"`
	IsOnline     bool   `json:"isOnline"`
	LastActivity int64  `json:"lastActivity"`
}

// Presence is the full presence list of a room.
type Presence struct {
	Type    Type            `json:"type"`
	RoomID  string          `json:"roomId"`
	Entries []PresenceEntry `json:"entries"`
}

func NewPresence(roomID string, entries []PresenceEntry) Presence {
	if entries == nil {
		entries = []PresenceEntry{}
	}
	return Presence{Type: TypePresence, RoomID: roomID, Entries: entries}
}

func (Presence) EventType() Type { return TypePresence }

// Replay carries catch-up history for a client that (re)joined a room.
// Message content is supplied by the history collaborator, not owned here.
type Replay struct {
	Type           Type     `json:"type"`
	RoomID         string   `json:"roomId"`
	Messages       []any    `json:"messages"`
	PinnedMessages []any    `json:"pinnedMessages"`
	Presence       Presence `json:"presence"`
}

func NewReplay(roomID string, messages, pinned []any, presence Presence) Replay {
	if messages == nil {
		messages = []any{}
	}
	if pinned == nil {
		pinned = []any{}
	}
	return Replay{Type: TypeReplay, RoomID: roomID, Messages: messages, PinnedMessages: pinned, Presence: presence}
}

func (Replay) EventType() Type { return TypeReplay }
