package models

// QuestionType defines the kind of quiz question.
type QuestionType string

const (
	QuestionTypeQCM     QuestionType = "qcm"
	QuestionTypeImage   QuestionType = "image"
	QuestionTypeClosest QuestionType = "closest"
	QuestionTypeOpen    QuestionType = "open"
)

// ZoomConfig holds the progressive zoom reveal settings for image questions.
type ZoomConfig struct {
	Steps      int       `json:"steps"`
	Levels     []float64 `json:"levels,omitempty"`
	IntervalMs int       `json:"interval_ms,omitempty"`
}

// MysteryConfig holds the tile-based mystery image reveal settings.
type MysteryConfig struct {
	Tiles      int `json:"tiles"`
	IntervalMs int `json:"interval_ms,omitempty"`
}

// BuzzerConfig holds per-question buzzer arbitration settings.
type BuzzerConfig struct {
	Enabled       bool `json:"enabled"`
	StealWindowMs int  `json:"steal_window_ms,omitempty"`
	LockMs        int  `json:"lock_ms,omitempty"`
}

// Question is a single quiz question. Immutable once shown except for
// corrections. Questions live either in the QuestionBank (referenced by ID)
// or as literal copies inside an ad hoc session's rounds.
type Question struct {
	ID            string         `json:"id"`
	Type          QuestionType   `json:"type"`
	Label         string         `json:"label"`
	ImageURL      string         `json:"image_url,omitempty"`
	Options       []string       `json:"options,omitempty"`
	CorrectOption *int           `json:"correct_option,omitempty"`
	CorrectText   string         `json:"correct_text,omitempty"`
	Target        *float64       `json:"target,omitempty"`
	Range         *float64       `json:"range,omitempty"`
	Points        int            `json:"points"`
	Seconds       int            `json:"seconds,omitempty"`
	Zoom          *ZoomConfig    `json:"zoom,omitempty"`
	Mystery       *MysteryConfig `json:"mystery,omitempty"`
	Buzzer        *BuzzerConfig  `json:"buzzer,omitempty"`
}

// CorrectAnswer renders the question's expected answer for reveal
// payloads: the option text for QCM, the numeric target for closest, the
// free text otherwise.
func (q *Question) CorrectAnswer() any {
	switch q.Type {
	case QuestionTypeQCM, QuestionTypeImage:
		if q.CorrectOption != nil && *q.CorrectOption >= 0 && *q.CorrectOption < len(q.Options) {
			return q.Options[*q.CorrectOption]
		}
		return q.CorrectText
	case QuestionTypeClosest:
		if q.Target != nil {
			return *q.Target
		}
		return nil
	default:
		return q.CorrectText
	}
}

// AutoScorable reports whether reveal applies scoring automatically.
// Open-ended questions are always scored by hand.
func (q *Question) AutoScorable() bool {
	return q.Type != QuestionTypeOpen
}
