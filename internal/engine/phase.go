package engine

// Phase is a state of the quiz state machine.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseShowQuestion  Phase = "show_question"
	PhaseAcceptAnswers Phase = "accept_answers"
	PhaseLock          Phase = "lock"
	PhaseReveal        Phase = "reveal"
	PhaseScoreUpdate   Phase = "score_update"
	PhaseInterstitial  Phase = "interstitial"
)
