package course_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academia-labs/academia/core"
	"github.com/academia-labs/academia/core/course"
	"github.com/academia-labs/academia/internal/testutil"
	emailsvc "github.com/academia-labs/academia/services/email"
)

var adminSession = core.Session{UserID: 99, Name: "Admin", Email: "admin@academia.test", Role: core.RoleAdmin}

// failingRepo fails DeleteCourse after every edge change of the workflow was applied.
type failingRepo struct {
	course.Repository
}

func (r failingRepo) WithTx(ctx context.Context, fn func(repo course.Repository) error) error {
	return r.Repository.WithTx(ctx, func(tx course.Repository) error {
		return fn(failingRepo{tx})
	})
}

func (r failingRepo) DeleteCourse(context.Context, int) error {
	return errors.New("disk full")
}

type algorithms struct {
	env                                   *testutil.Env
	cat                                   testutil.Catalog
	algorithms, advanced, dataStructures course.Course
}

// newAlgorithms creates Algorithms, Advanced Algorithms (requiring Algorithms) and Data Structures.
func newAlgorithms(t *testing.T) *algorithms {
	env := testutil.NewEnv(t)
	cat := env.CreateCatalog(t)
	a := &algorithms{env: env, cat: cat}
	a.algorithms = env.CreateCourse(t, cat, "Algorithms")
	a.advanced = env.CreateCourse(t, cat, "Advanced Algorithms", a.algorithms.ID)
	a.dataStructures = env.CreateCourse(t, cat, "Data Structures")
	return a
}

func (a *algorithms) prerequisitesOf(t *testing.T, id int) []int {
	t.Helper()
	ids, err := a.env.CourseRepo.PrerequisiteIDs(context.Background(), id)
	require.NoError(t, err)
	return ids
}

func (a *algorithms) exists(t *testing.T, id int) bool {
	t.Helper()
	_, err := a.env.CourseRepo.GetCourseRef(context.Background(), id)
	if err != nil {
		require.True(t, course.IsNotFound(err), "unexpected error: %v", err)
		return false
	}
	return true
}

func TestService_Delete_confirmThenReplace(t *testing.T) {
	a := newAlgorithms(t)
	ctx := context.Background()
	svc := a.env.CourseSvc

	d, err := svc.Delete(ctx, adminSession, course.DeleteRequest{CourseID: a.algorithms.ID})
	require.Error(t, err)
	depErr, ok := course.HasDependents(err)
	require.True(t, ok, "want a DependentsError, got %v", err)
	assert.Equal(t, []string{"Advanced Algorithms"}, depErr.DependentNames())
	assert.Equal(t, course.StatusPendingConfirmation, d.Status)
	assert.Equal(t, []course.Ref{a.advanced.Ref()}, d.Dependents)

	assert.True(t, a.exists(t, a.algorithms.ID))
	assert.Equal(t, []int{a.algorithms.ID}, a.prerequisitesOf(t, a.advanced.ID))
	assert.Empty(t, emailsvc.GetSentMessages())

	replaceWith := a.dataStructures.ID
	d, err = svc.Delete(ctx, adminSession, course.DeleteRequest{
		CourseID:    a.algorithms.ID,
		Force:       true,
		ReplaceWith: &replaceWith,
	})
	require.NoError(t, err)
	assert.Equal(t, course.StatusDeleted, d.Status)
	assert.Equal(t, []int{a.advanced.ID}, d.Rewired)
	assert.Empty(t, d.Detached)

	assert.False(t, a.exists(t, a.algorithms.ID))
	assert.Equal(t, []int{a.dataStructures.ID}, a.prerequisitesOf(t, a.advanced.ID))

	advanced, err := svc.Get(ctx, a.advanced.ID)
	require.NoError(t, err)
	assert.Equal(t, []course.Ref{a.dataStructures.Ref()}, advanced.Prerequisites)

	dataStructures, err := svc.Get(ctx, a.dataStructures.ID)
	require.NoError(t, err)
	assert.Equal(t, []course.Ref{a.advanced.Ref()}, dataStructures.Dependents)
}

func TestService_Delete_noDependents(t *testing.T) {
	a := newAlgorithms(t)

	d, err := a.env.CourseSvc.Delete(context.Background(), adminSession, course.DeleteRequest{CourseID: a.advanced.ID})
	require.NoError(t, err)
	assert.Equal(t, course.StatusDeleted, d.Status)
	assert.False(t, a.exists(t, a.advanced.ID))

	algo, err := a.env.CourseSvc.Get(context.Background(), a.algorithms.ID)
	require.NoError(t, err)
	assert.Empty(t, algo.Dependents)
}

func TestService_Delete_forceDetaches(t *testing.T) {
	a := newAlgorithms(t)

	d, err := a.env.CourseSvc.Delete(context.Background(), adminSession, course.DeleteRequest{
		CourseID: a.algorithms.ID,
		Force:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{a.advanced.ID}, d.Detached)
	assert.Empty(t, d.Rewired)
	assert.Empty(t, a.prerequisitesOf(t, a.advanced.ID))

	msgs := emailsvc.GetSentMessages()
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].To, 1)
	assert.Equal(t, a.cat.Instructor.Email, msgs[0].To[0].Address)
	assert.Equal(t, `Prerequisites of "Advanced Algorithms" changed`, msgs[0].Subject)
	assert.Contains(t, msgs[0].TextContent, `"Advanced Algorithms" no longer requires it.`)
}

func TestService_Delete_replacementAlreadyRequired(t *testing.T) {
	a := newAlgorithms(t)
	ctx := context.Background()
	graphs := a.env.CreateCourse(t, a.cat, "Graph Theory", a.algorithms.ID, a.dataStructures.ID)

	replaceWith := a.dataStructures.ID
	d, err := a.env.CourseSvc.Delete(ctx, adminSession, course.DeleteRequest{
		CourseID:    a.algorithms.ID,
		Force:       true,
		ReplaceWith: &replaceWith,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{graphs.ID}, d.Detached)
	assert.Equal(t, []int{a.advanced.ID}, d.Rewired)
	assert.Equal(t, []int{a.dataStructures.ID}, a.prerequisitesOf(t, graphs.ID))
	assert.Equal(t, []int{a.dataStructures.ID}, a.prerequisitesOf(t, a.advanced.ID))
}

func TestService_Delete_invalid(t *testing.T) {
	tests := []struct {
		name    string
		req     func(a *algorithms) course.DeleteRequest
		wantErr func(t *testing.T, err error)
	}{
		{
			name: "missing course",
			req: func(a *algorithms) course.DeleteRequest {
				return course.DeleteRequest{CourseID: 404, Force: true}
			},
			wantErr: func(t *testing.T, err error) {
				assert.Equal(t, course.ErrNotFound, errors.Cause(err))
			},
		},
		{
			name: "missing replacement",
			req: func(a *algorithms) course.DeleteRequest {
				r := 404
				return course.DeleteRequest{CourseID: a.algorithms.ID, Force: true, ReplaceWith: &r}
			},
			wantErr: func(t *testing.T, err error) {
				assert.Equal(t, course.ErrReplacementNotFound, errors.Cause(err))
			},
		},
		{
			name: "replacement is the course",
			req: func(a *algorithms) course.DeleteRequest {
				r := a.algorithms.ID
				return course.DeleteRequest{CourseID: a.algorithms.ID, Force: true, ReplaceWith: &r}
			},
			wantErr: func(t *testing.T, err error) {
				assert.True(t, course.IsInvalidReplacement(err))
			},
		},
		{
			name: "replacement requires a dependent",
			req: func(a *algorithms) course.DeleteRequest {
				_, err := a.env.CourseSvc.Update(context.Background(), a.dataStructures.ID, course.UpdateCourse{
					PrerequisiteIDs: []int{a.advanced.ID},
				})
				if err != nil {
					panic(err)
				}
				r := a.dataStructures.ID
				return course.DeleteRequest{CourseID: a.algorithms.ID, Force: true, ReplaceWith: &r}
			},
			wantErr: func(t *testing.T, err error) {
				assert.True(t, course.IsInvalidReplacement(err), "want an InvalidReplacementError, got %v", err)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := newAlgorithms(t)
			req := tc.req(a)

			d, err := a.env.CourseSvc.Delete(context.Background(), adminSession, req)
			require.Error(t, err)
			tc.wantErr(t, err)
			assert.Equal(t, course.StatusIdle, d.Status)

			assert.True(t, a.exists(t, a.algorithms.ID))
			assert.Equal(t, []int{a.algorithms.ID}, a.prerequisitesOf(t, a.advanced.ID))
			assert.Empty(t, emailsvc.GetSentMessages())
		})
	}
}

func TestService_Delete_rollback(t *testing.T) {
	a := newAlgorithms(t)
	env := a.env
	svc := course.NewService(failingRepo{env.CourseRepo}, env.Cache, nil, env.Logger)

	replaceWith := a.dataStructures.ID
	d, err := svc.Delete(context.Background(), adminSession, course.DeleteRequest{
		CourseID:    a.algorithms.ID,
		Force:       true,
		ReplaceWith: &replaceWith,
	})
	assert.EqualError(t, err, "deleting course: disk full")
	assert.Equal(t, course.StatusIdle, d.Status)

	assert.True(t, a.exists(t, a.algorithms.ID))
	assert.Equal(t, []int{a.algorithms.ID}, a.prerequisitesOf(t, a.advanced.ID))
}

func TestService_Delete_invalidatesCache(t *testing.T) {
	a := newAlgorithms(t)
	ctx := context.Background()

	// warm the cache
	for _, id := range []int{a.algorithms.ID, a.advanced.ID, a.dataStructures.ID} {
		_, err := a.env.CourseSvc.Get(ctx, id)
		require.NoError(t, err)
	}

	replaceWith := a.dataStructures.ID
	_, err := a.env.CourseSvc.Delete(ctx, adminSession, course.DeleteRequest{
		CourseID:    a.algorithms.ID,
		Force:       true,
		ReplaceWith: &replaceWith,
	})
	require.NoError(t, err)

	for _, id := range []int{a.algorithms.ID, a.advanced.ID, a.dataStructures.ID} {
		_, ok, err := a.env.Cache.Get(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok, "course %d still cached", id)
	}

	_, err = a.env.CourseSvc.Get(ctx, a.algorithms.ID)
	assert.True(t, course.IsNotFound(err))
}

func TestService_Update_prerequisites(t *testing.T) {
	a := newAlgorithms(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		id      int
		prereqs []int
		want    error
	}{
		{"self", a.dataStructures.ID, []int{a.dataStructures.ID}, course.ErrSelfPrerequisite},
		{"cycle", a.algorithms.ID, []int{a.advanced.ID}, course.ErrCircularDependency},
		{"missing", a.dataStructures.ID, []int{404}, course.ErrPrerequisiteNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.env.CourseSvc.Update(ctx, tc.id, course.UpdateCourse{PrerequisiteIDs: tc.prereqs})
			assert.Equal(t, tc.want, errors.Cause(err))
		})
	}

	updated, err := a.env.CourseSvc.Update(ctx, a.advanced.ID, course.UpdateCourse{
		PrerequisiteIDs: []int{a.algorithms.ID, a.dataStructures.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, []course.Ref{a.algorithms.Ref(), a.dataStructures.Ref()}, updated.Prerequisites)

	ds, err := a.env.CourseSvc.Get(ctx, a.dataStructures.ID)
	require.NoError(t, err)
	assert.Equal(t, []course.Ref{updated.Ref()}, ds.Dependents)
}

func TestService_AddInstructor(t *testing.T) {
	a := newAlgorithms(t)
	ctx := context.Background()

	_, err := a.env.CourseSvc.AddInstructor(ctx, a.algorithms.ID, a.cat.Instructor.ID)
	assert.Equal(t, course.ErrAlreadyAssigned, errors.Cause(err))

	grace := testutil.CreateUser(t, a.env.UserRepo, "Grace Hopper", "grace@academia.test", core.RoleInstructor)
	c, err := a.env.CourseSvc.AddInstructor(ctx, a.algorithms.ID, grace.ID)
	require.NoError(t, err)
	assert.True(t, c.TaughtBy(grace.ID))

	student := testutil.CreateUser(t, a.env.UserRepo, "Alan Turing", "alan@academia.test", core.RoleStudent)
	_, err = a.env.CourseSvc.AddInstructor(ctx, a.algorithms.ID, student.ID)
	assert.Equal(t, course.ErrInstructorNotFound, errors.Cause(err))
}

func TestService_CheckTeaches(t *testing.T) {
	a := newAlgorithms(t)
	ctx := context.Background()
	instr := core.Session{UserID: a.cat.Instructor.ID, Role: core.RoleInstructor}
	other := core.Session{UserID: 404, Role: core.RoleInstructor}

	assert.NoError(t, a.env.CourseSvc.CheckTeaches(ctx, instr, a.algorithms.ID))
	assert.Equal(t, course.ErrNotTeaching, errors.Cause(a.env.CourseSvc.CheckTeaches(ctx, other, a.algorithms.ID)))
	assert.Equal(t, course.ErrNotFound, errors.Cause(a.env.CourseSvc.CheckTeaches(ctx, instr, 404)))
}
