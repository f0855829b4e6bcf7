// Package events defines every outbound event the system publishes as a
// closed set of payload types. Producers build payloads through the New*
// constructors, so the shape of each event is fixed at compile time rather
// than assembled from loose maps at the publish site.
package events

// Type names an outbound event.
type Type string

const (
	TypeStartRound        Type = "quiz.start_round"
	TypeEndRound          Type = "quiz.end_round"
	TypeQuestionShow      Type = "question.show"
	TypePhaseUpdate       Type = "phase.update"
	TypeVoteUpdate        Type = "vote.update"
	TypeQuestionLock      Type = "question.lock"
	TypeQuestionReveal    Type = "question.reveal"
	TypeScoreUpdate       Type = "score.update"
	TypeQuestionRevealed  Type = "question.revealed"
	TypeLeaderboardPush   Type = "leaderboard.push"
	TypeQuestionFinished  Type = "question.finished"
	TypeQuestionNextReady Type = "question.next_ready"
	TypeQuestionChange    Type = "question.change"
	TypeQuestionReset     Type = "question.reset"
	TypeAnswerAssign      Type = "answer.assign"
	TypeScorePanelToggle  Type = "scorepanel.toggle"
	TypeZoomStart         Type = "zoom.start"
	TypeZoomStep          Type = "zoom.step"
	TypeZoomStop          Type = "zoom.stop"
	TypeZoomComplete      Type = "zoom.complete"
	TypeMysteryStart      Type = "mystery.start"
	TypeMysteryStep       Type = "mystery.step"
	TypeMysteryStop       Type = "mystery.stop"
	TypeTimerTick         Type = "timer.tick"
	TypePresence          Type = "presence"
	TypeReplay            Type = "replay"
)

// Event is implemented by every outbound payload in this package.
type Event interface {
	EventType() Type
}

// Publisher fans an event out to every subscriber of a channel. The
// realtime hub is the production implementation; tests substitute a
// recorder.
type Publisher interface {
	Publish(channel string, event Event)
}
