package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/trezcool/mafunzo/core/noc"
	"github.com/trezcool/mafunzo/core/user"
	"github.com/trezcool/mafunzo/core/workflow"
	"github.com/trezcool/mafunzo/tests"
)

// conflictResp is the payload returned on forbidden workflow transitions.
type conflictResp struct {
	Error  string          `json:"error"`
	Status workflow.Status `json:"status"`
}

func createNOCRequest(t *testing.T, usr user.User, company, role string) noc.Request {
	t.Helper()

	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	req, err := nocRepo.CreateRequest(context.Background(), noc.Request{
		Submission: workflow.NewSubmission(usr),
		Company:    company,
		Role:       role,
		StartDate:  start,
		EndDate:    start.AddDate(0, 2, 0),
	})
	if err != nil {
		t.Fatalf("createNOCRequest() failed: %v", err)
	}
	return req
}

func Test_nocApi_create(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Student", "stud", "stud@test.cd", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach", "teach@test.cd", "", []string{user.RoleTeacher}, true)

	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	body := marchallObj(t, noc.NewRequest{
		Company:       "Acme Corp",
		Role:          "Backend Intern",
		DurationWeeks: 8,
		StartDate:     start,
		EndDate:       start.AddDate(0, 2, 0),
		Stipend:       15000,
	})
	badDates := marchallObj(t, noc.NewRequest{
		Company:   "Acme Corp",
		Role:      "Backend Intern",
		StartDate: start,
		EndDate:   start.AddDate(0, -1, 0),
	})

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Students only", token: getToken(t, teacher), body: body, wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)},
		{
			name: "End date must be after start date", token: getToken(t, student), body: badDates, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"end_date": "end date must be after start date"}),
		},
		{name: "Request created", token: getToken(t, student), body: body, wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/noc-requests"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, tt.wantCode, rec.Body.String())
				}
				var resp noc.Request
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("json.Unmarshal() failed: %v", err)
				}
				if resp.ID == "" {
					t.Error("failed! empty ID")
				}
				if resp.SubmitterID != student.ID {
					t.Errorf("SubmitterID = %q; want %q", resp.SubmitterID, student.ID)
				}
				if resp.Status != workflow.StatusPendingTeacher {
					t.Errorf("Status = %q; want %q", resp.Status, workflow.StatusPendingTeacher)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_nocApi_query(t *testing.T) {
	app := setup(t)

	student1 := testutil.CreateUser(t, usrRepo, "Student One", "stud1", "stud1@test.cd", "", []string{user.RoleStudent}, true)
	student2 := testutil.CreateUser(t, usrRepo, "Student Two", "stud2", "stud2@test.cd", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach", "teach@test.cd", "", []string{user.RoleTeacher}, true)

	r1 := createNOCRequest(t, student1, "Acme Corp", "Backend Intern")
	r2 := createNOCRequest(t, student1, "Globex", "Data Intern")
	r3 := createNOCRequest(t, student2, "Initech", "QA Intern")

	teacherToken := getToken(t, teacher)
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/noc-requests", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Reviewers get all", path: "/v1/noc-requests", token: teacherToken, wantData: marchallList(t, r1, r2, r3)},
		{name: "Students only see their own", path: "/v1/noc-requests", token: getToken(t, student2), wantData: marchallList(t, r3)},
		{name: "search (unknown)", path: "/v1/noc-requests?search=lol", token: teacherToken, wantData: empty},
		{name: "search=acme", path: "/v1/noc-requests?search=acme", token: teacherToken, wantData: marchallList(t, r1)},
		{
			name: "status=pending_teacher", path: "/v1/noc-requests?status=" + url.QueryEscape(string(workflow.StatusPendingTeacher)),
			token: teacherToken, wantData: marchallList(t, r1, r2, r3),
		},
		{
			name: "status=approved (empty)", path: "/v1/noc-requests?status=" + url.QueryEscape(string(workflow.StatusApproved)),
			token: teacherToken, wantData: empty,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_nocApi_retrieve(t *testing.T) {
	app := setup(t)

	student1 := testutil.CreateUser(t, usrRepo, "Student One", "stud1", "stud1@test.cd", "", []string{user.RoleStudent}, true)
	student2 := testutil.CreateUser(t, usrRepo, "Student Two", "stud2", "stud2@test.cd", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach", "teach@test.cd", "", []string{user.RoleTeacher}, true)

	r1 := createNOCRequest(t, student1, "Acme Corp", "Backend Intern")

	tests := []httpTest{
		{name: "Auth required", path: "/v1/noc-requests/" + r1.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Owner can retrieve", path: "/v1/noc-requests/" + r1.ID, token: getToken(t, student1), wantData: marchallObj(t, r1)},
		{name: "Reviewer can retrieve", path: "/v1/noc-requests/" + r1.ID, token: getToken(t, teacher), wantData: marchallObj(t, r1)},
		{
			name: "Hidden from other students", path: "/v1/noc-requests/" + r1.ID, token: getToken(t, student2),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFoundResp),
		},
		{
			name: "Unknown ID", path: "/v1/noc-requests/nope", token: getToken(t, teacher),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFoundResp),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_nocApi_review(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Student", "stud", "stud@test.cd", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach", "teach@test.cd", "", []string{user.RoleTeacher}, true)
	tpo := testutil.CreateUser(t, usrRepo, "Officer", "tpo", "tpo@test.cd", "", []string{user.RoleTPOfficer}, true)

	r1 := createNOCRequest(t, student, "Acme Corp", "Backend Intern")
	path := "/v1/noc-requests/" + r1.ID + "/review"
	approve := marchallObj(t, workflow.ReviewDecision{Decision: workflow.DecisionApprove, Comments: "looks good"})
	rejectNoReason := marchallObj(t, workflow.ReviewDecision{Decision: workflow.DecisionReject})

	do := func(t *testing.T, path, token string, body []byte) (int, []byte) {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPut, path, token, body)
		app.ServeHTTP(rec, req)
		return rec.Code, rec.Body.Bytes()
	}
	wantStatus := func(t *testing.T, data []byte, want workflow.Status) {
		t.Helper()
		var resp noc.Request
		if err := json.Unmarshal(data, &resp); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if resp.Status != want {
			t.Errorf("Status = %q; want %q", resp.Status, want)
		}
	}
	wantConflict := func(t *testing.T, code int, data []byte, current workflow.Status) {
		t.Helper()
		if code != http.StatusConflict {
			t.Fatalf("code = %v; want %v; data = %s", code, http.StatusConflict, data)
		}
		var resp conflictResp
		if err := json.Unmarshal(data, &resp); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if resp.Status != current {
			t.Errorf("conflict status = %q; want %q", resp.Status, current)
		}
		if resp.Error == "" {
			t.Error("failed! empty conflict error")
		}
	}

	t.Run("Reviewers only", func(t *testing.T) {
		code, data := do(t, path, getToken(t, student), approve)
		if code != http.StatusForbidden {
			t.Fatalf("code = %v; want %v; data = %s", code, http.StatusForbidden, data)
		}
		ok, err := jsonBytesEqual(t, data, marchallObj(t, errPermDenied))
		if err != nil || !ok {
			t.Errorf("failed! data = %s", data)
		}
	})

	t.Run("TPO cannot act before the teacher", func(t *testing.T) {
		code, data := do(t, path, getToken(t, tpo), approve)
		wantConflict(t, code, data, workflow.StatusPendingTeacher)
	})

	t.Run("Rejection requires a reason", func(t *testing.T) {
		code, data := do(t, path, getToken(t, teacher), rejectNoReason)
		if code != http.StatusBadRequest {
			t.Fatalf("code = %v; want %v; data = %s", code, http.StatusBadRequest, data)
		}
		ok, err := jsonBytesEqual(t, data, marchallObj(t, map[string]string{"reason": "a reason is required when rejecting"}))
		if err != nil || !ok {
			t.Errorf("failed! data = %s", data)
		}
	})

	t.Run("Teacher approval moves to the T&P queue", func(t *testing.T) {
		code, data := do(t, path, getToken(t, teacher), approve)
		if code != http.StatusOK {
			t.Fatalf("code = %v; want %v; data = %s", code, http.StatusOK, data)
		}
		wantStatus(t, data, workflow.StatusPendingTPO)
	})

	t.Run("Teacher cannot act twice", func(t *testing.T) {
		code, data := do(t, path, getToken(t, teacher), approve)
		wantConflict(t, code, data, workflow.StatusPendingTPO)
	})

	t.Run("TPO approval is final", func(t *testing.T) {
		code, data := do(t, path, getToken(t, tpo), approve)
		if code != http.StatusOK {
			t.Fatalf("code = %v; want %v; data = %s", code, http.StatusOK, data)
		}
		wantStatus(t, data, workflow.StatusApproved)
	})

	t.Run("Approved requests are immutable", func(t *testing.T) {
		code, data := do(t, path, getToken(t, tpo), approve)
		wantConflict(t, code, data, workflow.StatusApproved)
	})

	t.Run("Unknown ID", func(t *testing.T) {
		code, data := do(t, "/v1/noc-requests/nope/review", getToken(t, teacher), approve)
		if code != http.StatusNotFound {
			t.Errorf("code = %v; want %v; data = %s", code, http.StatusNotFound, data)
		}
	})
}
