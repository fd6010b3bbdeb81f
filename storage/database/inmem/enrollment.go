package inmemdb

import (
	"context"
	"sort"

	"github.com/academia-labs/academia/core/course"
	"github.com/academia-labs/academia/core/enrollment"
	"github.com/academia-labs/academia/core/user"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	err := repo.db.write(func(t *tables) error {
		if _, ok := t.courses[e.CourseID]; !ok {
			return course.ErrNotFound
		}
		if _, ok := t.users[e.StudentID]; !ok {
			return user.ErrNotFound
		}
		key := edge{from: e.StudentID, to: e.CourseID}
		if _, ok := t.enrollments[key]; ok {
			return enrollment.ErrAlreadyEnrolled
		}
		t.enrollments[key] = e
		return nil
	})
	return e, err
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, studentID, courseID int) (enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	err := repo.db.read(func(t *tables) error {
		var ok bool
		if e, ok = t.enrollments[edge{from: studentID, to: courseID}]; !ok {
			return enrollment.ErrNotEnrolled
		}
		return nil
	})
	return e, err
}

func (repo *enrollmentRepository) UpdateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	err := repo.db.write(func(t *tables) error {
		key := edge{from: e.StudentID, to: e.CourseID}
		if _, ok := t.enrollments[key]; !ok {
			return enrollment.ErrNotEnrolled
		}
		t.enrollments[key] = e
		return nil
	})
	return e, err
}

func (repo *enrollmentRepository) CompletedCourseIDs(ctx context.Context, studentID int) ([]int, error) {
	ids := make([]int, 0)
	err := repo.db.read(func(t *tables) error {
		for key, e := range t.enrollments {
			if key.from == studentID && e.Status == enrollment.StatusCompleted {
				ids = append(ids, key.to)
			}
		}
		return nil
	})
	sort.Ints(ids)
	return ids, err
}

func (repo *enrollmentRepository) QueryByStudent(ctx context.Context, studentID int) ([]enrollment.StudentCourse, error) {
	courses := make([]enrollment.StudentCourse, 0)
	err := repo.db.read(func(t *tables) error {
		for key, e := range t.enrollments {
			if key.from != studentID {
				continue
			}
			c, _ := t.course(key.to)
			instructors := make([]string, 0, len(c.Instructors))
			for _, instr := range c.Instructors {
				instructors = append(instructors, instr.Name)
			}
			courses = append(courses, enrollment.StudentCourse{
				Enrollment:  e,
				CourseName:  c.Name,
				Type:        c.Type,
				Difficulty:  c.Difficulty,
				Duration:    c.Duration,
				University:  c.University.Name,
				Instructors: instructors,
			})
		}
		return nil
	})
	sort.Slice(courses, func(i, j int) bool { return courses[i].CourseID < courses[j].CourseID })
	return courses, err
}

func (repo *enrollmentRepository) QueryByCourse(ctx context.Context, courseID int) ([]enrollment.CourseStudent, error) {
	students := make([]enrollment.CourseStudent, 0)
	err := repo.db.read(func(t *tables) error {
		for key, e := range t.enrollments {
			if key.to != courseID {
				continue
			}
			usr := t.users[key.from]
			students = append(students, enrollment.CourseStudent{
				Enrollment:   e,
				StudentName:  usr.Name,
				StudentEmail: usr.Email,
			})
		}
		return nil
	})
	sort.Slice(students, func(i, j int) bool { return students[i].StudentID < students[j].StudentID })
	return students, err
}
