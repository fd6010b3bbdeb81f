package enrollment

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia-labs/academia/core"
	"github.com/academia-labs/academia/core/course"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
)

var (
	Statuses = []string{string(StatusPending), string(StatusCompleted)}

	statusTag  = "enrollstatus"
	statusText = "status must be one of: Pending, Completed"

	// errors
	ErrNotEnrolled      = core.NewNotFoundError("enrollment")
	ErrAlreadyEnrolled  = core.NewConflictError("already enrolled in this course")
	errNotStudentAction = core.NewPermissionError("only students can enroll in courses")
)

// PrerequisiteError is returned when a student enrolls before completing a prerequisite of the course.
type PrerequisiteError struct {
	Prerequisite course.Ref
}

func (e PrerequisiteError) Error() string {
	return "prerequisite not completed: " + e.Prerequisite.Name
}

type Enrollment struct {
	StudentID       int          `json:"student_id"`
	CourseID        int          `json:"course_id"`
	Status          Status       `json:"status"`
	EvaluationScore null.Float64 `json:"evaluation_score"`
	EnrolledAt      time.Time    `json:"enrolled_at"` // UTC
}

// StudentCourse is an enrollment as listed for its student.
type StudentCourse struct {
	Enrollment
	CourseName  string            `json:"course_name"`
	Type        course.Type       `json:"type"`
	Difficulty  course.Difficulty `json:"difficulty"`
	Duration    int               `json:"duration"`
	University  string            `json:"university"`
	Instructors []string          `json:"instructors"`
}

// CourseStudent is an enrollment as listed for the instructors of its course.
type CourseStudent struct {
	Enrollment
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}

type Enroll struct {
	CourseID int `json:"course_id" validate:"required"`
}

func (e Enroll) Validate(validate *validator.Validate) error { return validate.Struct(e) }

type Evaluate struct {
	StudentID int     `json:"student_id" validate:"required"`
	CourseID  int     `json:"course_id" validate:"required"`
	Score     float64 `json:"evaluation_score" validate:"gte=0,lte=100"`
	Status    Status  `json:"status" validate:"required,enrollstatus"`
}

func (e Evaluate) Validate(validate *validator.Validate) error { return validate.Struct(e) }

// InitValidators registers the enrollment validation tags and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterEnumValidation(validate, translator, statusTag, statusText, Statuses...)
}

type (
	Repository interface {
		// CreateEnrollment returns ErrAlreadyEnrolled when the student is already enrolled in the course.
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, studentID, courseID int) (Enrollment, error)
		UpdateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		CompletedCourseIDs(ctx context.Context, studentID int) ([]int, error)
		QueryByStudent(ctx context.Context, studentID int) ([]StudentCourse, error)
		QueryByCourse(ctx context.Context, courseID int) ([]CourseStudent, error)
	}

	// Courses is what enrollment needs from the course catalogue.
	Courses interface {
		Get(ctx context.Context, id int) (course.Course, error)
		CheckTeaches(ctx context.Context, sess core.Session, courseID int) error
	}

	Service struct {
		repo    Repository
		courses Courses
	}
)

func NewService(repo Repository, courses Courses) *Service {
	return &Service{repo: repo, courses: courses}
}

// Enroll enrolls the session's student in a course once every prerequisite of it is Completed.
func (svc *Service) Enroll(ctx context.Context, sess core.Session, data Enroll) (Enrollment, error) {
	if !sess.IsStudent() {
		return Enrollment{}, errNotStudentAction
	}

	c, err := svc.courses.Get(ctx, data.CourseID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "getting course")
	}

	if _, err = svc.repo.GetEnrollment(ctx, sess.UserID, c.ID); err == nil {
		return Enrollment{}, ErrAlreadyEnrolled
	} else if errors.Cause(err) != ErrNotEnrolled {
		return Enrollment{}, errors.Wrap(err, "getting enrollment")
	}

	completedIDs, err := svc.repo.CompletedCourseIDs(ctx, sess.UserID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "listing completed courses")
	}
	completed := make(map[int]bool, len(completedIDs))
	for _, id := range completedIDs {
		completed[id] = true
	}
	for _, p := range c.Prerequisites {
		if !completed[p.ID] {
			return Enrollment{}, &PrerequisiteError{Prerequisite: p}
		}
	}

	e, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		StudentID:  sess.UserID,
		CourseID:   c.ID,
		Status:     StatusPending,
		EnrolledAt: time.Now().UTC(),
	})
	return e, errors.Wrap(err, "creating enrollment")
}

func (svc *Service) StudentCourses(ctx context.Context, sess core.Session) ([]StudentCourse, error) {
	courses, err := svc.repo.QueryByStudent(ctx, sess.UserID)
	return courses, errors.Wrap(err, "querying enrollments")
}

// CourseStudents lists the students of a course taught by the session's instructor.
func (svc *Service) CourseStudents(ctx context.Context, sess core.Session, courseID int) ([]CourseStudent, error) {
	if err := svc.courses.CheckTeaches(ctx, sess, courseID); err != nil {
		return nil, err
	}
	students, err := svc.repo.QueryByCourse(ctx, courseID)
	return students, errors.Wrap(err, "querying enrollments")
}

// Evaluate scores an enrolled student in a course taught by the session's instructor.
func (svc *Service) Evaluate(ctx context.Context, sess core.Session, data Evaluate) (Enrollment, error) {
	if err := svc.courses.CheckTeaches(ctx, sess, data.CourseID); err != nil {
		return Enrollment{}, err
	}
	e, err := svc.repo.GetEnrollment(ctx, data.StudentID, data.CourseID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	e.Status = data.Status
	e.EvaluationScore = null.Float64From(data.Score)
	e, err = svc.repo.UpdateEnrollment(ctx, e)
	return e, errors.Wrap(err, "updating enrollment")
}
