package models

// Player is a scored participant in the live session.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Answer records what a player submitted for the current question. Exactly
// one of Option/Text/Value is expected to be set; Raw keeps the submitted
// form for display.
type Answer struct {
	Option *int     `json:"option,omitempty"`
	Text   string   `json:"text,omitempty"`
	Value  *float64 `json:"value,omitempty"`
	Raw    string   `json:"raw"`
}

// Round is an ordered list of questions played together.
type Round struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// Cursor points at the current round/question of a session. Indices are
// always valid into Rounds/Questions once a session exists; navigation
// no-ops at boundaries rather than leaving a dangling cursor.
type Cursor struct {
	Round    int `json:"round"`
	Question int `json:"question"`
}

// Session is the live quiz state. Exactly one session is live at a time;
// it is created on demand, replaced wholesale on load, and mutated only
// through the engine and the store.
type Session struct {
	Rounds            []Round           `json:"rounds"`
	Cursor            Cursor            `json:"cursor"`
	Players           []Player          `json:"players"`
	PlayerScores      map[string]int    `json:"player_scores"`
	ViewerScores      map[string]int    `json:"viewer_scores"`
	Answers           map[string]Answer `json:"answers"`
	ScorePanelVisible bool              `json:"score_panel_visible"`
}

// Normalize fills in the maps a freshly decoded or hand-built session may
// be missing so later mutation never hits a nil map.
func (s *Session) Normalize() {
	if s.PlayerScores == nil {
		s.PlayerScores = make(map[string]int)
	}
	if s.ViewerScores == nil {
		s.ViewerScores = make(map[string]int)
	}
	if s.Answers == nil {
		s.Answers = make(map[string]Answer)
	}
}

// CurrentRound returns the round under the cursor, or nil when the cursor
// is out of range.
func (s *Session) CurrentRound() *Round {
	if s.Cursor.Round < 0 || s.Cursor.Round >= len(s.Rounds) {
		return nil
	}
	return &s.Rounds[s.Cursor.Round]
}

// CurrentQuestion returns the question under the cursor, or nil when the
// cursor is out of range.
func (s *Session) CurrentQuestion() *Question {
	round := s.CurrentRound()
	if round == nil {
		return nil
	}
	if s.Cursor.Question < 0 || s.Cursor.Question >= len(round.Questions) {
		return nil
	}
	return &round.Questions[s.Cursor.Question]
}

// NextQuestion returns the question after the cursor within the current
// round, or nil at the round boundary.
func (s *Session) NextQuestion() *Question {
	round := s.CurrentRound()
	if round == nil {
		return nil
	}
	next := s.Cursor.Question + 1
	if next >= len(round.Questions) {
		return nil
	}
	return &round.Questions[next]
}
