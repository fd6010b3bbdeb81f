package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia-labs/academia/core/course"
	"github.com/academia-labs/academia/core/enrollment"
)

const enrollmentColumns = `e.student_id, e.course_id, e.status, e.evaluation_score, e.enrolled_at`

type enrollmentRow struct {
	StudentID       int          `db:"student_id"`
	CourseID        int          `db:"course_id"`
	Status          string       `db:"status"`
	EvaluationScore null.Float64 `db:"evaluation_score"`
	EnrolledAt      time.Time    `db:"enrolled_at"`
}

func (r enrollmentRow) enrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		StudentID:       r.StudentID,
		CourseID:        r.CourseID,
		Status:          enrollment.Status(r.Status),
		EvaluationScore: r.EvaluationScore,
		EnrolledAt:      r.EnrolledAt.UTC(),
	}
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	_, err := repo.db.ExecContext(ctx, `INSERT INTO enrollments (student_id, course_id, status, evaluation_score, enrolled_at)
VALUES ($1, $2, $3, $4, $5)`, e.StudentID, e.CourseID, string(e.Status), e.EvaluationScore, e.EnrolledAt)
	switch pqCode(err) {
	case uniqueViolation:
		return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
	case foreignKeyViolation:
		return enrollment.Enrollment{}, course.ErrNotFound
	}
	return e, errors.Wrap(err, "inserting enrollment")
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, studentID, courseID int) (enrollment.Enrollment, error) {
	var row enrollmentRow
	err := sqlx.GetContext(ctx, repo.db, &row,
		`SELECT `+enrollmentColumns+` FROM enrollments e WHERE e.student_id = $1 AND e.course_id = $2`, studentID, courseID)
	if err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotEnrolled, "selecting enrollment")
	}
	return row.enrollment(), nil
}

func (repo *enrollmentRepository) UpdateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	err := execAffecting(ctx, repo.db, enrollment.ErrNotEnrolled, "updating enrollment",
		`UPDATE enrollments SET status = $3, evaluation_score = $4 WHERE student_id = $1 AND course_id = $2`,
		e.StudentID, e.CourseID, string(e.Status), e.EvaluationScore)
	return e, err
}

func (repo *enrollmentRepository) CompletedCourseIDs(ctx context.Context, studentID int) ([]int, error) {
	ids := make([]int, 0)
	err := sqlx.SelectContext(ctx, repo.db, &ids,
		`SELECT course_id FROM enrollments WHERE student_id = $1 AND status = $2 ORDER BY course_id`,
		studentID, string(enrollment.StatusCompleted))
	return ids, errors.Wrap(err, "selecting completed courses")
}

func (repo *enrollmentRepository) QueryByStudent(ctx context.Context, studentID int) ([]enrollment.StudentCourse, error) {
	var rows []struct {
		enrollmentRow
		CourseName  string         `db:"course_name"`
		Type        string         `db:"type"`
		Difficulty  string         `db:"difficulty"`
		Duration    int            `db:"duration"`
		University  string         `db:"university"`
		Instructors pq.StringArray `db:"instructors"`
	}
	err := sqlx.SelectContext(ctx, repo.db, &rows, `SELECT `+enrollmentColumns+`,
	c.name AS course_name, c.type, c.difficulty, c.duration, u.name AS university,
	COALESCE(ARRAY_AGG(usr.name ORDER BY usr.id) FILTER (WHERE usr.id IS NOT NULL), '{}') AS instructors
FROM enrollments e
JOIN courses c ON c.id = e.course_id
JOIN universities u ON u.id = c.university_id
LEFT JOIN teaches t ON t.course_id = c.id
LEFT JOIN users usr ON usr.id = t.instructor_id
WHERE e.student_id = $1
GROUP BY e.student_id, e.course_id, c.id, u.id
ORDER BY e.course_id`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting student enrollments")
	}

	courses := make([]enrollment.StudentCourse, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, enrollment.StudentCourse{
			Enrollment:  row.enrollment(),
			CourseName:  row.CourseName,
			Type:        course.Type(row.Type),
			Difficulty:  course.Difficulty(row.Difficulty),
			Duration:    row.Duration,
			University:  row.University,
			Instructors: []string(row.Instructors),
		})
	}
	return courses, nil
}

func (repo *enrollmentRepository) QueryByCourse(ctx context.Context, courseID int) ([]enrollment.CourseStudent, error) {
	var rows []struct {
		enrollmentRow
		StudentName  string `db:"student_name"`
		StudentEmail string `db:"student_email"`
	}
	err := sqlx.SelectContext(ctx, repo.db, &rows, `SELECT `+enrollmentColumns+`,
	usr.name AS student_name, usr.email AS student_email
FROM enrollments e
JOIN users usr ON usr.id = e.student_id
WHERE e.course_id = $1
ORDER BY e.student_id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting course enrollments")
	}

	students := make([]enrollment.CourseStudent, 0, len(rows))
	for _, row := range rows {
		students = append(students, enrollment.CourseStudent{
			Enrollment:   row.enrollment(),
			StudentName:  row.StudentName,
			StudentEmail: row.StudentEmail,
		})
	}
	return students, nil
}
