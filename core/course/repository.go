package course

import (
	"context"

	"github.com/academia-labs/academia/core"
)

type Repository interface {
	// WithTx runs fn inside a single transaction; repo is bound to it.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	// GetCourse returns the full Course, prerequisites and dependents included, or ErrNotFound.
	GetCourse(ctx context.Context, id int) (Course, error)
	GetCourseRef(ctx context.Context, id int) (Ref, error)
	// QueryCourses applies QueryFilter.Match semantics; orderings use column names.
	QueryCourses(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Course, error)
	CountEnrollments(ctx context.Context, courseIDs ...int) (map[int]int, error)
	// CreateCourse stores the course row, its topics (resolved by name), instructors and prerequisites.
	CreateCourse(ctx context.Context, c Course) (Course, error)
	// UpdateCourse stores the course row columns only.
	UpdateCourse(ctx context.Context, c Course) error
	SetTopics(ctx context.Context, courseID int, names []string) error
	AddTopics(ctx context.Context, courseID int, names []string) error
	QueryTopics(ctx context.Context) ([]Topic, error)
	AddInstructor(ctx context.Context, courseID, instructorID int) error
	Teaches(ctx context.Context, instructorID, courseID int) (bool, error)

	GetUniversityRef(ctx context.Context, id int) (Ref, error)
	GetBookRef(ctx context.Context, id int) (Ref, error)
	GetInstructor(ctx context.Context, id int) (Instructor, error)

	// prerequisite graph
	PrerequisiteIDs(ctx context.Context, courseID int) ([]int, error)
	SetPrerequisites(ctx context.Context, courseID int, prerequisiteIDs []int) error
	DependentsOf(ctx context.Context, courseID int) ([]Ref, error)
	HasEdge(ctx context.Context, from, to int) (bool, error)
	RemoveEdge(ctx context.Context, from, to int) error
	ReplaceEdge(ctx context.Context, from, oldTo, newTo int) error
	// DeleteCourse removes the course with its outgoing edges, topics, teaching assignments and enrollments.
	DeleteCourse(ctx context.Context, id int) error
}

// Cache stores course details by id. Implementations may drop entries at any time.
type Cache interface {
	Get(ctx context.Context, id int) (Course, bool, error)
	Set(ctx context.Context, c Course) error
	Invalidate(ctx context.Context, ids ...int) error
	Purge(ctx context.Context) error
}

type nopCache struct{}

func (nopCache) Get(context.Context, int) (Course, bool, error) { return Course{}, false, nil }
func (nopCache) Set(context.Context, Course) error              { return nil }
func (nopCache) Invalidate(context.Context, ...int) error       { return nil }
func (nopCache) Purge(context.Context) error                    { return nil }
