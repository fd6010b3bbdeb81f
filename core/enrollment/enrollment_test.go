package enrollment_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academia-labs/academia/core"
	"github.com/academia-labs/academia/core/course"
	"github.com/academia-labs/academia/core/enrollment"
	"github.com/academia-labs/academia/internal/testutil"
)

func TestService_Enroll(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	cat := env.CreateCatalog(t)
	algorithms := env.CreateCourse(t, cat, "Algorithms")
	advanced := env.CreateCourse(t, cat, "Advanced Algorithms", algorithms.ID)

	student := testutil.CreateUser(t, env.UserRepo, "Alan Turing", "alan@academia.test", core.RoleStudent)
	sess := student.Session()
	instr := cat.Instructor.Session()

	_, err := env.EnrollmentSvc.Enroll(ctx, sess, enrollment.Enroll{CourseID: advanced.ID})
	prereqErr, ok := errors.Cause(err).(*enrollment.PrerequisiteError)
	require.True(t, ok, "want a PrerequisiteError, got %v", err)
	assert.Equal(t, algorithms.Ref(), prereqErr.Prerequisite)
	assert.Equal(t, "prerequisite not completed: Algorithms", err.Error())

	e, err := env.EnrollmentSvc.Enroll(ctx, sess, enrollment.Enroll{CourseID: algorithms.ID})
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusPending, e.Status)
	assert.False(t, e.EvaluationScore.Valid)

	_, err = env.EnrollmentSvc.Enroll(ctx, sess, enrollment.Enroll{CourseID: algorithms.ID})
	assert.Equal(t, enrollment.ErrAlreadyEnrolled, errors.Cause(err))

	// a pending prerequisite does not count
	_, err = env.EnrollmentSvc.Enroll(ctx, sess, enrollment.Enroll{CourseID: advanced.ID})
	_, ok = errors.Cause(err).(*enrollment.PrerequisiteError)
	assert.True(t, ok, "want a PrerequisiteError, got %v", err)

	e, err = env.EnrollmentSvc.Evaluate(ctx, instr, enrollment.Evaluate{
		StudentID: student.ID,
		CourseID:  algorithms.ID,
		Score:     87.5,
		Status:    enrollment.StatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusCompleted, e.Status)
	assert.Equal(t, 87.5, e.EvaluationScore.Float64)

	e, err = env.EnrollmentSvc.Enroll(ctx, sess, enrollment.Enroll{CourseID: advanced.ID})
	require.NoError(t, err)
	assert.Equal(t, advanced.ID, e.CourseID)

	courses, err := env.EnrollmentSvc.StudentCourses(ctx, sess)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	names := []string{courses[0].CourseName, courses[1].CourseName}
	assert.ElementsMatch(t, []string{"Algorithms", "Advanced Algorithms"}, names)
	assert.Equal(t, []string{cat.Instructor.Name}, courses[0].Instructors)
}

func TestService_Enroll_denied(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	cat := env.CreateCatalog(t)
	algorithms := env.CreateCourse(t, cat, "Algorithms")

	_, err := env.EnrollmentSvc.Enroll(ctx, cat.Instructor.Session(), enrollment.Enroll{CourseID: algorithms.ID})
	_, ok := errors.Cause(err).(*core.PermissionError)
	assert.True(t, ok, "want a PermissionError, got %v", err)

	student := testutil.CreateUser(t, env.UserRepo, "Alan Turing", "alan@academia.test", core.RoleStudent)
	_, err = env.EnrollmentSvc.Enroll(ctx, student.Session(), enrollment.Enroll{CourseID: 404})
	assert.Equal(t, course.ErrNotFound, errors.Cause(err))
}

func TestService_CourseStudents(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	cat := env.CreateCatalog(t)
	algorithms := env.CreateCourse(t, cat, "Algorithms")
	student := testutil.CreateUser(t, env.UserRepo, "Alan Turing", "alan@academia.test", core.RoleStudent)

	_, err := env.EnrollmentSvc.Enroll(ctx, student.Session(), enrollment.Enroll{CourseID: algorithms.ID})
	require.NoError(t, err)

	students, err := env.EnrollmentSvc.CourseStudents(ctx, cat.Instructor.Session(), algorithms.ID)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Alan Turing", students[0].StudentName)
	assert.Equal(t, "alan@academia.test", students[0].StudentEmail)

	other := testutil.CreateUser(t, env.UserRepo, "Grace Hopper", "grace@academia.test", core.RoleInstructor)
	_, err = env.EnrollmentSvc.CourseStudents(ctx, other.Session(), algorithms.ID)
	assert.Equal(t, course.ErrNotTeaching, errors.Cause(err))

	_, err = env.EnrollmentSvc.Evaluate(ctx, cat.Instructor.Session(), enrollment.Evaluate{
		StudentID: other.ID,
		CourseID:  algorithms.ID,
		Score:     50,
		Status:    enrollment.StatusCompleted,
	})
	assert.Equal(t, enrollment.ErrNotEnrolled, errors.Cause(err))
}
