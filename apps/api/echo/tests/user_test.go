package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academia-labs/academia/core"
	"github.com/academia-labs/academia/core/user"
	"github.com/academia-labs/academia/internal/testutil"
)

func Test_registrationApi_registerStudent(t *testing.T) {
	a := newApp(t)
	testutil.CreateUser(t, a.UserRepo, "Alan Turing", "alan@academia.test", core.RoleStudent)

	body := func(email, pwd, skill string) []byte {
		return marchallObj(t, user.NewStudent{
			Email:      email,
			Password:   pwd,
			Name:       "Grace Hopper",
			DOB:        "1999-12-09",
			Country:    "USA",
			SkillLevel: skill,
		})
	}

	tests := []httpTest{
		{
			name: "email taken", body: body("Alan@academia.test", testutil.Password, user.SkillBeginner),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{
			name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"email":       "this field is required",
				"password":    "this field is required",
				"name":        "this field is required",
				"dob":         "this field is required",
				"country":     "this field is required",
				"skill_level": "this field is required",
			}),
		},
		{
			name: "invalid skill level", body: body("grace@academia.test", testutil.Password, "Expert"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"skill_level": "skill level must be one of: Beginner, Intermediate, Advanced"}),
		},
		{
			name: "numeric password", body: body("grace@academia.test", "12345678", user.SkillBeginner), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password cannot be entirely numeric"}),
		},
		{name: "registered", body: body("grace@academia.test", testutil.Password, user.SkillBeginner), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/register/student"

		t.Run(tt.name, func(t *testing.T) {
			rec := a.run(t, tt)
			if tt.wantData == nil {
				checkCode(t, tt, rec)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	usr, err := a.UserSvc.GetByEmail(context.Background(), "grace@academia.test")
	require.NoError(t, err)
	assert.True(t, usr.IsStudent())
	assert.NoError(t, usr.CheckPassword(testutil.Password))
}

func Test_instructorApi_profile(t *testing.T) {
	a := newApp(t)
	instr := testutil.CreateUser(t, a.UserRepo, "Ada Lovelace", "ada@academia.test", core.RoleInstructor)
	token := a.getToken(t, instr)

	tt := httpTest{method: http.MethodPost, path: "/v1/instructor/profile/expertise", token: token, body: []byte(`{"area": "Algorithms"}`), wantCode: http.StatusOK}
	rec := a.run(t, tt)
	checkCode(t, tt, rec)

	tt = httpTest{
		method: http.MethodPost, path: "/v1/instructor/profile/expertise", token: token, body: []byte(`{"area": "algorithms"}`),
		wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "expertise area already exists"}),
	}
	checkCodeAndData(t, tt, a.run(t, tt))

	tt = httpTest{method: http.MethodGet, path: "/v1/instructor/profile", token: token, wantCode: http.StatusOK}
	rec = a.run(t, tt)
	checkCode(t, tt, rec)
	var got user.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"Algorithms"}, got.Expertise)

	tt = httpTest{method: http.MethodDelete, path: "/v1/instructor/profile/expertise/Algorithms", token: token, wantCode: http.StatusOK}
	checkCode(t, tt, a.run(t, tt))

	tt = httpTest{method: http.MethodGet, path: "/v1/student/profile", token: token, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
	checkCodeAndData(t, tt, a.run(t, tt))
}

func Test_adminApi_destroyUser(t *testing.T) {
	a := newApp(t)
	admin := testutil.CreateUser(t, a.UserRepo, "Root", "root@academia.test", core.RoleAdmin)
	student := testutil.CreateUser(t, a.UserRepo, "Alan Turing", "alan@academia.test", core.RoleStudent)
	token := a.getToken(t, admin)

	tests := []httpTest{
		{name: "admin", path: "/v1/admin/users/1", wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "admin users cannot be deleted"})},
		{name: "student", path: "/v1/admin/users/2", wantCode: http.StatusNoContent},
		{name: "unknown", path: "/v1/admin/users/2", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "user not found"})},
	}
	for _, tt := range tests {
		tt.method = http.MethodDelete
		tt.token = token

		t.Run(tt.name, func(t *testing.T) {
			rec := a.run(t, tt)
			if tt.wantData == nil {
				checkCode(t, tt, rec)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	_, err := a.UserSvc.GetByID(context.Background(), student.ID)
	assert.Error(t, err)
}
