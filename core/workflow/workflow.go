// Package workflow implements the two-stage approval lifecycle shared by
// every reviewable record in Mafunzo: a student submits, a teacher reviews,
// then a T&P officer gives the final decision. A rejection at either stage
// is terminal and must carry a reason.
//
// The package is stateless: it only decides what the next status is.
// Persisting that decision — and serializing concurrent reviews of the same
// record — is the repositories' job (compare-and-swap on the current status).
package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/user"
)

type Status string

const (
	StatusPendingTeacher  Status = "pending_teacher"
	StatusPendingTPO      Status = "pending_tpo"
	StatusApproved        Status = "approved"
	StatusRejectedTeacher Status = "rejected_teacher"
	StatusRejected        Status = "rejected"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

type step struct {
	reviewer  string // role prefix authorized to act
	onApprove Status
	onReject  Status
}

// transitions maps each non-terminal status to its authorized reviewer and
// outcomes. A teacher's approval moves the record straight to the T&P queue;
// "teacher-approved" is not a separate resting state.
var transitions = map[Status]step{
	StatusPendingTeacher: {reviewer: user.RoleTeacher, onApprove: StatusPendingTPO, onReject: StatusRejectedTeacher},
	StatusPendingTPO:     {reviewer: user.RoleTPOfficer, onApprove: StatusApproved, onReject: StatusRejected},
}

// AllStatuses in lifecycle order.
var AllStatuses = []Status{
	StatusPendingTeacher,
	StatusPendingTPO,
	StatusApproved,
	StatusRejectedTeacher,
	StatusRejected,
}

var (
	// ErrStatusConflict is returned by repositories when a status update's
	// expected current status no longer matches the stored one; i.e. a
	// concurrent review won the race.
	ErrStatusConflict = errors.New("submission status has changed")

	errReasonRequired  = errors.New("a reason is required when rejecting")
	errUnknownDecision = errors.New("decision must be one of: approve, reject")
)

func Known(s Status) bool {
	for _, st := range AllStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted from s.
func IsTerminal(s Status) bool {
	_, ok := transitions[s]
	return !ok
}

// ReviewerFor returns the role prefix authorized to act on a submission in
// status s; ok is false for terminal statuses.
func ReviewerFor(s Status) (role string, ok bool) {
	st, ok := transitions[s]
	return st.reviewer, ok
}

// ForbiddenTransitionError signals that a review cannot be applied to the
// submission's current status: the status is terminal, the actor's role is
// not the authorized reviewer, or a concurrent review got there first.
type ForbiddenTransitionError struct {
	Current Status
	Reason  string
}

func NewForbiddenTransition(current Status, reason string) error {
	return &ForbiddenTransitionError{Current: current, Reason: reason}
}

func (e *ForbiddenTransitionError) Error() string {
	return fmt.Sprintf("transition from %q not permitted: %s", e.Current, e.Reason)
}

func IsForbiddenTransition(err error) bool {
	_, ok := errors.Cause(err).(*ForbiddenTransitionError)
	return ok
}

// Next computes the status resulting from actor applying decision to a
// submission currently in status current.
func Next(current Status, actor user.User, decision Decision, reason string) (Status, error) {
	st, ok := transitions[current]
	if !ok {
		if Known(current) {
			return "", NewForbiddenTransition(current, "status is terminal")
		}
		return "", NewForbiddenTransition(current, "unknown status")
	}
	if !actor.RoleStartsWith(st.reviewer) {
		return "", NewForbiddenTransition(current, "actor is not the authorized reviewer for this stage")
	}

	switch decision {
	case DecisionApprove:
		return st.onApprove, nil
	case DecisionReject:
		if strings.TrimSpace(reason) == "" {
			return "", core.NewValidationError(errReasonRequired, core.FieldError{Field: "reason", Error: errReasonRequired.Error()})
		}
		return st.onReject, nil
	default:
		return "", core.NewValidationError(errUnknownDecision, core.FieldError{Field: "decision", Error: errUnknownDecision.Error()})
	}
}

// Submission is the lifecycle state embedded in every reviewable record.
type Submission struct {
	ID               string    `json:"id"`
	SubmitterID      string    `json:"submitter_id"`
	Status           Status    `json:"status"`
	ReviewerComments string    `json:"reviewer_comments,omitempty"`
	RejectionReason  string    `json:"rejection_reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"` // UTC
	UpdatedAt        time.Time `json:"updated_at"` // UTC
}

func (s *Submission) Label() Label { return LabelFor(s.Status) }

// NewSubmission returns the lifecycle state of a record freshly submitted by usr.
func NewSubmission(usr user.User) Submission {
	now := time.Now().UTC()
	return Submission{
		SubmitterID: usr.ID,
		Status:      StatusPendingTeacher,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ReviewDecision is a reviewer's input on a pending submission.
type ReviewDecision struct {
	Decision Decision `json:"decision" validate:"required"`
	Reason   string   `json:"reason,omitempty"`
	Comments string   `json:"comments,omitempty"`
}

func (rd *ReviewDecision) Validate() error {
	rd.Reason = core.CleanString(rd.Reason)
	rd.Comments = core.CleanString(rd.Comments)
	return core.Validate.Struct(rd)
}

// StatusUpdate is the set of fields written together with a status change.
// Repositories must apply it atomically, guarded by the expected current
// status.
type StatusUpdate struct {
	Status           Status
	ReviewerComments string
	RejectionReason  string
	UpdatedAt        time.Time
}

// Review validates a reviewer's decision against the current status and
// returns the resulting StatusUpdate to be persisted.
func Review(current Status, actor user.User, rd ReviewDecision) (StatusUpdate, error) {
	next, err := Next(current, actor, rd.Decision, rd.Reason)
	if err != nil {
		return StatusUpdate{}, err
	}
	upd := StatusUpdate{
		Status:           next,
		ReviewerComments: rd.Comments,
		UpdatedAt:        time.Now().UTC(),
	}
	if rd.Decision == DecisionReject {
		upd.RejectionReason = rd.Reason
	}
	return upd, nil
}
