package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academia-labs/academia/core"
	"github.com/academia-labs/academia/core/course"
	"github.com/academia-labs/academia/internal/testutil"
	emailsvc "github.com/academia-labs/academia/services/email"
)

func Test_adminApi_destroyCourse(t *testing.T) {
	a := newApp(t)
	cat := a.CreateCatalog(t)
	algorithms := a.CreateCourse(t, cat, "Algorithms")
	advanced := a.CreateCourse(t, cat, "Advanced Algorithms", algorithms.ID)
	dataStructures := a.CreateCourse(t, cat, "Data Structures")

	admin := testutil.CreateUser(t, a.UserRepo, "Root", "root@academia.test", core.RoleAdmin)
	student := testutil.CreateUser(t, a.UserRepo, "Alan Turing", "alan@academia.test", core.RoleStudent)
	adminToken := a.getToken(t, admin)

	replaceWith := dataStructures.ID
	tests := []httpTest{
		{name: "Auth required", path: "/v1/admin/courses/1", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Admin required", path: "/v1/admin/courses/1", token: a.getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "invalid id", path: "/v1/admin/courses/abc", token: adminToken, wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalid id"})},
		{name: "unknown course", path: "/v1/admin/courses/404", token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"})},
		{
			name: "invalid force", path: "/v1/admin/courses/1?force=maybe", token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"force": "force must be a boolean"}),
		},
		{
			name: "dependents need confirmation", path: "/v1/admin/courses/1", token: adminToken, wantCode: http.StatusConflict,
			wantData: marchallObj(t, map[string]interface{}{
				"status":     "pending_confirmation",
				"error":      "cannot delete: this course is a prerequisite for: Advanced Algorithms. Use force deletion to proceed",
				"dependents": []course.Ref{advanced.Ref()},
			}),
		},
		{
			name: "replacement without force needs confirmation", path: "/v1/admin/courses/1?replace_with=3", token: adminToken,
			wantCode: http.StatusConflict,
		},
		{
			name: "unknown replacement", path: "/v1/admin/courses/1?force=true&replace_with=404", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "replacement course not found"}),
		},
		{
			name: "course replacing itself", path: "/v1/admin/courses/1?force=true&replace_with=1", token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalid replacement: a course cannot replace itself"}),
		},
		{
			name: "forced with replacement", path: "/v1/admin/courses/1?force=true&replace_with=3", token: adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, course.Deletion{
				Status:      course.StatusDeleted,
				CourseID:    algorithms.ID,
				Detached:    []int{},
				Rewired:     []int{advanced.ID},
				ReplaceWith: &replaceWith,
			}),
		},
		{name: "already deleted", path: "/v1/admin/courses/1", token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"})},
	}
	for _, tt := range tests {
		tt.method = http.MethodDelete

		t.Run(tt.name, func(t *testing.T) {
			rec := a.run(t, tt)
			if tt.wantData == nil {
				checkCode(t, tt, rec)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	ctx := context.Background()
	updated, err := a.CourseSvc.Get(ctx, advanced.ID)
	require.NoError(t, err)
	assert.Equal(t, []course.Ref{dataStructures.Ref()}, updated.Prerequisites)

	msgs := emailsvc.GetSentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, cat.Instructor.Email, msgs[0].To[0].Address)
}

func Test_adminApi_destroyCourse_forceDetaches(t *testing.T) {
	a := newApp(t)
	cat := a.CreateCatalog(t)
	algorithms := a.CreateCourse(t, cat, "Algorithms")
	advanced := a.CreateCourse(t, cat, "Advanced Algorithms", algorithms.ID)
	admin := testutil.CreateUser(t, a.UserRepo, "Root", "root@academia.test", core.RoleAdmin)

	tt := httpTest{
		method: http.MethodDelete, path: "/v1/admin/courses/1?force=true", token: a.getToken(t, admin), wantCode: http.StatusOK,
		wantData: marchallObj(t, course.Deletion{
			Status:   course.StatusDeleted,
			CourseID: algorithms.ID,
			Detached: []int{advanced.ID},
			Rewired:  []int{},
		}),
	}
	checkCodeAndData(t, tt, a.run(t, tt))

	tt = httpTest{
		method: http.MethodGet, path: "/v1/admin/courses/2/dependents", token: a.getToken(t, admin), wantCode: http.StatusOK,
		wantData: marchallList(t),
	}
	checkCodeAndData(t, tt, a.run(t, tt))

	c, err := a.CourseSvc.Get(context.Background(), advanced.ID)
	require.NoError(t, err)
	assert.Empty(t, c.Prerequisites)
}

func Test_adminApi_courses(t *testing.T) {
	a := newApp(t)
	cat := a.CreateCatalog(t)
	algorithms := a.CreateCourse(t, cat, "Algorithms")
	admin := testutil.CreateUser(t, a.UserRepo, "Root", "root@academia.test", core.RoleAdmin)
	adminToken := a.getToken(t, admin)

	newCourse := func(name string, prereqs ...int) []byte {
		return marchallObj(t, course.NewCourse{
			Name:            name,
			Price:           250,
			Duration:        24,
			Type:            course.TypeDegree,
			Difficulty:      course.DifficultyAdvanced,
			UniversityID:    cat.University.ID,
			BookID:          cat.Book.ID,
			InstructorID:    cat.Instructor.ID,
			TopicNames:      []string{"Computing", "Graphs"},
			PrerequisiteIDs: prereqs,
		})
	}

	t.Run("create", func(t *testing.T) {
		tt := httpTest{method: http.MethodPost, path: "/v1/admin/courses", token: adminToken, body: newCourse("Graph Theory", algorithms.ID), wantCode: http.StatusCreated}
		rec := a.run(t, tt)
		checkCode(t, tt, rec)

		var got course.Course
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "Graph Theory", got.Name)
		assert.Equal(t, []string{"Computing", "Graphs"}, got.Topics)
		assert.Equal(t, []course.Ref{algorithms.Ref()}, got.Prerequisites)
		require.Len(t, got.Instructors, 1)
		assert.Empty(t, got.Instructors[0].Email)
	})

	t.Run("create with unknown prerequisite", func(t *testing.T) {
		tt := httpTest{
			method: http.MethodPost, path: "/v1/admin/courses", token: adminToken, body: newCourse("Compilers", 404),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "prerequisite course not found"}),
		}
		checkCodeAndData(t, tt, a.run(t, tt))
	})

	t.Run("create invalid", func(t *testing.T) {
		tt := httpTest{method: http.MethodPost, path: "/v1/admin/courses", token: adminToken, body: []byte(`{"name": "Compilers"}`), wantCode: http.StatusBadRequest}
		checkCode(t, tt, a.run(t, tt))
	})

	t.Run("retrieve", func(t *testing.T) {
		want, err := a.CourseSvc.Get(context.Background(), algorithms.ID)
		require.NoError(t, err)
		tt := httpTest{method: http.MethodGet, path: "/v1/admin/courses/1", token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, want)}
		checkCodeAndData(t, tt, a.run(t, tt))
	})

	t.Run("update closing a cycle", func(t *testing.T) {
		tt := httpTest{
			method: http.MethodPut, path: "/v1/admin/courses/1", token: adminToken, body: []byte(`{"prerequisite_ids": [2]}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"prerequisite_ids": "circular prerequisite dependency detected"}),
		}
		checkCodeAndData(t, tt, a.run(t, tt))
	})

	t.Run("search", func(t *testing.T) {
		want, err := a.CourseSvc.Get(context.Background(), 2)
		require.NoError(t, err)
		tt := httpTest{
			method: http.MethodGet, path: "/v1/admin/courses?topic=graphs&min_price=200", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, want),
		}
		checkCodeAndData(t, tt, a.run(t, tt))

		tt = httpTest{
			method: http.MethodGet, path: "/v1/admin/courses?min_price=cheap", token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"min_price": "min_price must be a number"}),
		}
		checkCodeAndData(t, tt, a.run(t, tt))
	})
}

func Test_studentApi_enroll(t *testing.T) {
	a := newApp(t)
	cat := a.CreateCatalog(t)
	algorithms := a.CreateCourse(t, cat, "Algorithms")
	a.CreateCourse(t, cat, "Advanced Algorithms", algorithms.ID)
	student := testutil.CreateUser(t, a.UserRepo, "Alan Turing", "alan@academia.test", core.RoleStudent)
	token := a.getToken(t, student)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Student required", token: a.getToken(t, cat.Instructor), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "prerequisite not completed", token: token, body: []byte(`{"course_id": 2}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "prerequisite not completed: Algorithms"}),
		},
		{name: "enrolled", token: token, body: []byte(`{"course_id": 1}`), wantCode: http.StatusCreated},
		{
			name: "already enrolled", token: token, body: []byte(`{"course_id": 1}`),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "already enrolled in this course"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/student/enrollments"

		t.Run(tt.name, func(t *testing.T) {
			rec := a.run(t, tt)
			if tt.wantData == nil {
				checkCode(t, tt, rec)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}
