package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	. "github.com/trezcool/mafunzo/apps/api/echo"
	"github.com/trezcool/mafunzo/core/user"
	"github.com/trezcool/mafunzo/services/email"
	"github.com/trezcool/mafunzo/tests"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	pwd := "LeSecret#123"
	student := testutil.CreateUser(t, usrRepo, "Student", "stud", "stud@test.cd", pwd, []string{user.RoleStudent}, true)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@test.cd", pwd, []string{user.RoleStudent}, false)

	login := func(uname, pwd string) []byte {
		return marchallObj(t, LoginRequest{Username: uname, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "Unknown user", body: login("who", pwd), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Wrong password", body: login(student.Username, "nope"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Deactivated account", body: login(naughty.Username, pwd), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "Login with username", body: login(student.Username, pwd), wantCode: http.StatusOK},
		{name: "Login with email", body: login(student.Email, pwd), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, tt.wantCode, rec.Body.String())
				}
				var resp LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("json.Unmarshal() failed: %v", err)
				}
				if resp.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleStudent}, false)

	adminToken := getToken(t, admin)
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errPermDenied),
		},
		{name: "Get all", path: "/v1/users", token: adminToken, wantData: marchallList(t, student, teacher, admin, naughty)},
		{name: "search (unknown)", path: "/v1/users?search=lol", token: adminToken, wantData: empty},
		{name: "search=teach", path: "/v1/users?search=teach", token: adminToken, wantData: marchallList(t, teacher)},
		{
			name: "role=student:", path: "/v1/users?role=" + url.QueryEscape(user.RoleStudent), token: adminToken,
			wantData: marchallList(t, student, naughty),
		},
		{name: "is_active=false", path: "/v1/users?is_active=false", token: adminToken, wantData: marchallList(t, naughty)},
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

func Test_userApi_register(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Student", "stud", "stud@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	payload := func(uname, email string, roles ...string) []byte {
		return marchallObj(t, map[string]interface{}{
			"name":     "New User",
			"username": uname,
			"email":    email,
			"password": "G00d#Pass!word",
			"roles":    roles,
		})
	}

	tests := []httpTest{
		{
			name: "Admin required", token: getToken(t, student), body: payload("newbie", "newbie@test.cd", user.RoleStudent),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "Cannot grant roles above own", token: getToken(t, admin), body: payload("newbie", "newbie@test.cd", user.RoleAdminOwner),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{name: "User registered", token: getToken(t, admin), body: payload("newbie", "newbie@test.cd", user.RoleStudent), wantCode: http.StatusCreated},
		{
			name: "Duplicate username", token: getToken(t, admin), body: payload("newbie", "other@test.cd", user.RoleStudent),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v; data = %v", rec.Code, tt.wantCode, rec.Body.String())
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_passwordReset(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Student", "stud", "stud@test.cd", "", []string{user.RoleStudent}, true)

	emailsvc.SentMessages = nil
	body := marchallObj(t, PasswordResetRequest{Email: student.Email})
	req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
	}
	if n := len(emailsvc.SentMessages); n != 1 {
		t.Errorf("sent messages = %d; want 1", n)
	}

	// unknown emails get the same response; no email goes out
	emailsvc.SentMessages = nil
	body = marchallObj(t, PasswordResetRequest{Email: "who@test.cd"})
	req, rec = newRequest(http.MethodPost, "/v1/users/password-reset", body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
	}
	if n := len(emailsvc.SentMessages); n != 0 {
		t.Errorf("sent messages = %d; want 0", n)
	}
}
