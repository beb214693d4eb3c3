package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/user"
)

func testUser(roles ...string) user.User {
	usr := user.User{ID: "75a1ebbf-1d80-4eea-b7a4-2e34df50865c", Name: "T", Roles: roles}
	usr.SetActive(true)
	return usr
}

func TestNext(t *testing.T) {
	teacher := testUser(user.RoleTeacher)
	tpo := testUser(user.RoleTPOfficer)
	student := testUser(user.RoleStudent)
	admin := testUser(user.RoleAdminOwner)

	tests := []struct {
		name          string
		current       Status
		actor         user.User
		decision      Decision
		reason        string
		want          Status
		wantForbidden bool
		wantInvalid   bool
	}{
		{name: "teacher approves", current: StatusPendingTeacher, actor: teacher, decision: DecisionApprove, want: StatusPendingTPO},
		{name: "teacher rejects", current: StatusPendingTeacher, actor: teacher, decision: DecisionReject, reason: "incomplete documents", want: StatusRejectedTeacher},
		{name: "tpo approves", current: StatusPendingTPO, actor: tpo, decision: DecisionApprove, want: StatusApproved},
		{name: "tpo rejects", current: StatusPendingTPO, actor: tpo, decision: DecisionReject, reason: "company not accredited", want: StatusRejected},

		// role gating
		{name: "tpo cannot act at teacher stage", current: StatusPendingTeacher, actor: tpo, decision: DecisionApprove, wantForbidden: true},
		{name: "teacher cannot act at tpo stage", current: StatusPendingTPO, actor: teacher, decision: DecisionApprove, wantForbidden: true},
		{name: "student cannot review", current: StatusPendingTeacher, actor: student, decision: DecisionApprove, wantForbidden: true},
		{name: "admin role grants no review rights", current: StatusPendingTeacher, actor: admin, decision: DecisionApprove, wantForbidden: true},

		// terminal immutability
		{name: "approved is terminal", current: StatusApproved, actor: tpo, decision: DecisionApprove, wantForbidden: true},
		{name: "rejected is terminal", current: StatusRejected, actor: tpo, decision: DecisionApprove, wantForbidden: true},
		{name: "rejected_teacher is terminal", current: StatusRejectedTeacher, actor: tpo, decision: DecisionApprove, wantForbidden: true},
		{name: "unknown status", current: Status("lol"), actor: teacher, decision: DecisionApprove, wantForbidden: true},

		// input validation
		{name: "reject requires reason", current: StatusPendingTeacher, actor: teacher, decision: DecisionReject, wantInvalid: true},
		{name: "reject with blank reason", current: StatusPendingTeacher, actor: teacher, decision: DecisionReject, reason: "   ", wantInvalid: true},
		{name: "unknown decision", current: StatusPendingTeacher, actor: teacher, decision: Decision("defer"), wantInvalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.current, tt.actor, tt.decision, tt.reason)
			if tt.wantForbidden {
				if !IsForbiddenTransition(err) {
					t.Fatalf("Next() error = %v; want ForbiddenTransitionError", err)
				}
				return
			}
			if tt.wantInvalid {
				if _, ok := err.(*core.ValidationError); !ok {
					t.Fatalf("Next() error = %v; want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Next() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Next() = %v; want %v", got, tt.want)
			}
		})
	}
}

// the success path only ever moves forward; no sequence of decisions
// revisits an earlier status.
func TestNext_forwardOnly(t *testing.T) {
	teacher := testUser(user.RoleTeacher)
	tpo := testUser(user.RoleTPOfficer)

	seen := map[Status]bool{StatusPendingTeacher: true}
	current := StatusPendingTeacher
	for _, actor := range []user.User{teacher, tpo} {
		next, err := Next(current, actor, DecisionApprove, "")
		if err != nil {
			t.Fatalf("Next(%v) error = %v", current, err)
		}
		if seen[next] {
			t.Fatalf("Next(%v) revisited %v", current, next)
		}
		seen[next] = true
		current = next
	}
	if current != StatusApproved {
		t.Errorf("final status = %v; want %v", current, StatusApproved)
	}
	if !IsTerminal(current) {
		t.Errorf("IsTerminal(%v) = false; want true", current)
	}
}

func TestReview(t *testing.T) {
	teacher := testUser(user.RoleTeacher)

	upd, err := Review(StatusPendingTeacher, teacher, ReviewDecision{Decision: DecisionApprove, Comments: "LGTM"})
	assert.NoError(t, err)
	assert.Equal(t, StatusPendingTPO, upd.Status)
	assert.Equal(t, "LGTM", upd.ReviewerComments)
	assert.Empty(t, upd.RejectionReason)
	assert.False(t, upd.UpdatedAt.IsZero())

	upd, err = Review(StatusPendingTeacher, teacher, ReviewDecision{Decision: DecisionReject, Reason: "incomplete documents"})
	assert.NoError(t, err)
	assert.Equal(t, StatusRejectedTeacher, upd.Status)
	assert.Equal(t, "incomplete documents", upd.RejectionReason)
}

func TestReviewerFor(t *testing.T) {
	role, ok := ReviewerFor(StatusPendingTeacher)
	assert.True(t, ok)
	assert.Equal(t, user.RoleTeacher, role)

	role, ok = ReviewerFor(StatusPendingTPO)
	assert.True(t, ok)
	assert.Equal(t, user.RoleTPOfficer, role)

	for _, s := range []Status{StatusApproved, StatusRejectedTeacher, StatusRejected} {
		if _, ok := ReviewerFor(s); ok {
			t.Errorf("ReviewerFor(%v) ok = true; want false", s)
		}
	}
}

// every enumerated status has exactly one label.
func TestLabelFor(t *testing.T) {
	seen := make(map[Label]bool, len(AllStatuses))
	for _, s := range AllStatuses {
		lbl := LabelFor(s)
		assert.NotEmpty(t, lbl.Text, "status %v", s)
		assert.Contains(t, []string{SeverityNeutral, SeverityWarning, SeveritySuccess, SeverityDanger}, lbl.Severity, "status %v", s)
		if seen[lbl] {
			t.Errorf("LabelFor(%v) duplicates another status's label", s)
		}
		seen[lbl] = true
	}

	// unknown statuses fall back to a neutral label
	lbl := LabelFor(Status("lol"))
	assert.Equal(t, Label{Text: "lol", Severity: SeverityNeutral}, lbl)
}
