package models

import "time"

// RoundStatus представляет статусы раунда, соответствующие ENUM в БД.
type RoundStatus string

const (
	RoundStatusPending   RoundStatus = "pending"
	RoundStatusActive    RoundStatus = "active"
	RoundStatusCompleted RoundStatus = "completed"
)

// RoundPhase is the explicit sub-phase of a round. An active round is
// either collecting submissions or collecting votes; which one is
// recorded by VotingStartedAt being set. Guards check the phase value
// instead of re-deriving it from timestamp nullity at every call site.
type RoundPhase string

const (
	PhasePending    RoundPhase = "pending"
	PhaseSubmission RoundPhase = "submission"
	PhaseVoting     RoundPhase = "voting"
	PhaseCompleted  RoundPhase = "completed"
)

// Round представляет один тематический цикл submit-then-vote внутри лиги.
type Round struct {
	ID          int         `json:"id" db:"id"`
	LeagueID    int         `json:"league_id" db:"league_id"`
	Theme       string      `json:"theme" db:"theme"`
	Description *string     `json:"description,omitempty" db:"description"`
	Order       int         `json:"order" db:"round_order"`
	Status      RoundStatus `json:"status" db:"status"`

	// Timestamps продвижения раунда; NULL до соответствующего перехода.
	StartedAt          *time.Time `json:"started_at,omitempty" db:"started_at"`
	SubmissionDeadline *time.Time `json:"submission_deadline,omitempty" db:"submission_deadline"`
	VotingStartedAt    *time.Time `json:"voting_started_at,omitempty" db:"voting_started_at"`
	VotingDeadline     *time.Time `json:"voting_deadline,omitempty" db:"voting_deadline"`
	CompletedAt        *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Phase returns the explicit lifecycle phase of the round.
func (r *Round) Phase() RoundPhase {
	switch r.Status {
	case RoundStatusPending:
		return PhasePending
	case RoundStatusCompleted:
		return PhaseCompleted
	default:
		if r.VotingStartedAt != nil {
			return PhaseVoting
		}
		return PhaseSubmission
	}
}
