package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/academia-labs/academia/core"
	"github.com/academia-labs/academia/core/course"
)

var errSelfLoop = errors.New("prerequisite edge would be a self-loop")

type courseRepository struct {
	db *DB
	tx *tables
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) read(fn func(t *tables) error) error {
	if repo.tx != nil {
		return fn(repo.tx)
	}
	return repo.db.read(fn)
}

func (repo *courseRepository) write(fn func(t *tables) error) error {
	if repo.tx != nil {
		return fn(repo.tx)
	}
	return repo.db.write(fn)
}

func (repo *courseRepository) WithTx(ctx context.Context, fn func(repo course.Repository) error) error {
	if repo.tx != nil {
		return fn(repo)
	}
	return repo.db.write(func(t *tables) error {
		return fn(&courseRepository{db: repo.db, tx: t})
	})
}

// course assembles the full Course with id.
func (t *tables) course(id int) (course.Course, bool) {
	row, ok := t.courses[id]
	if !ok {
		return course.Course{}, false
	}
	c := row.Course
	c.University = course.Ref{ID: row.universityID, Name: t.universities[row.universityID].Name}
	c.Book = course.Ref{ID: row.bookID, Name: t.books[row.bookID].Name}

	c.Instructors = make([]course.Instructor, 0)
	for e := range t.teaches {
		if e.to == id {
			usr := t.users[e.from]
			c.Instructors = append(c.Instructors, course.Instructor{ID: usr.ID, Name: usr.Name, Email: usr.Email})
		}
	}
	sort.Slice(c.Instructors, func(i, j int) bool { return c.Instructors[i].ID < c.Instructors[j].ID })

	c.Topics = make([]string, 0, len(t.courseTopics[id]))
	for _, topicID := range t.courseTopics[id] {
		c.Topics = append(c.Topics, t.topics[topicID].Name)
	}

	c.Prerequisites = make([]course.Ref, 0)
	c.Dependents = make([]course.Ref, 0)
	for e := range t.prereqs {
		if e.from == id {
			c.Prerequisites = append(c.Prerequisites, t.courses[e.to].Ref())
		}
		if e.to == id {
			c.Dependents = append(c.Dependents, t.courses[e.from].Ref())
		}
	}
	sortRefs(c.Prerequisites)
	sortRefs(c.Dependents)
	return c, true
}

func sortRefs(refs []course.Ref) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
}

// topicID returns the id of the topic named name (case-insensitive), creating it if needed.
func (t *tables) topicID(name string) int {
	for id, topic := range t.topics {
		if strings.EqualFold(topic.Name, name) {
			return id
		}
	}
	id := t.nextID("topics")
	t.topics[id] = course.Topic{ID: id, Name: name}
	return id
}

func (t *tables) addTopics(courseID int, names []string) {
	for _, name := range names {
		id := t.topicID(name)
		var linked bool
		for _, existing := range t.courseTopics[courseID] {
			if existing == id {
				linked = true
				break
			}
		}
		if !linked {
			t.courseTopics[courseID] = append(t.courseTopics[courseID], id)
		}
	}
}

func (repo *courseRepository) GetCourse(ctx context.Context, id int) (course.Course, error) {
	var c course.Course
	err := repo.read(func(t *tables) error {
		var ok bool
		if c, ok = t.course(id); !ok {
			return course.ErrNotFound
		}
		return nil
	})
	return c, err
}

func (repo *courseRepository) GetCourseRef(ctx context.Context, id int) (course.Ref, error) {
	var ref course.Ref
	err := repo.read(func(t *tables) error {
		row, ok := t.courses[id]
		if !ok {
			return course.ErrNotFound
		}
		ref = row.Ref()
		return nil
	})
	return ref, err
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter, orderings ...core.DBOrdering) ([]course.Course, error) {
	courses := make([]course.Course, 0)
	err := repo.read(func(t *tables) error {
		for id := range t.courses {
			c, _ := t.course(id)
			if filter.Match(c) {
				courses = append(courses, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortCourses(courses, orderings)
	return courses, nil
}

func sortCourses(courses []course.Course, orderings []core.DBOrdering) {
	orderings = append(orderings, core.DBOrdering{Field: "id", Ascending: true})
	sort.SliceStable(courses, func(i, j int) bool {
		for _, ord := range orderings {
			cmp := compareCourses(courses[i], courses[j], ord.Field)
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
}

func compareCourses(a, b course.Course, field string) int {
	switch field {
	case "name":
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case "price":
		return compareFloats(a.Price, b.Price)
	case "duration":
		return a.Duration - b.Duration
	case "type":
		return strings.Compare(string(a.Type), string(b.Type))
	case "difficulty":
		return strings.Compare(string(a.Difficulty), string(b.Difficulty))
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	default:
		return a.ID - b.ID
	}
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (repo *courseRepository) CountEnrollments(ctx context.Context, courseIDs ...int) (map[int]int, error) {
	counts := make(map[int]int, len(courseIDs))
	err := repo.read(func(t *tables) error {
		wanted := make(map[int]bool, len(courseIDs))
		for _, id := range courseIDs {
			wanted[id] = true
		}
		for e := range t.enrollments {
			if wanted[e.to] {
				counts[e.to]++
			}
		}
		return nil
	})
	return counts, err
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	var created course.Course
	err := repo.write(func(t *tables) error {
		id := t.nextID("courses")
		row := courseRow{
			Course: course.Course{
				ID:         id,
				Name:       c.Name,
				Type:       c.Type,
				Difficulty: c.Difficulty,
				Price:      c.Price,
				Duration:   c.Duration,
				NotesURL:   c.NotesURL,
				VideoURL:   c.VideoURL,
				CreatedAt:  c.CreatedAt,
			},
			universityID: c.University.ID,
			bookID:       c.Book.ID,
		}
		t.courses[id] = row
		t.addTopics(id, c.Topics)
		for _, instr := range c.Instructors {
			t.teaches[edge{from: instr.ID, to: id}] = struct{}{}
		}
		for _, p := range c.Prerequisites {
			t.prereqs[edge{from: id, to: p.ID}] = struct{}{}
		}
		created, _ = t.course(id)
		return nil
	})
	return created, err
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) error {
	return repo.write(func(t *tables) error {
		row, ok := t.courses[c.ID]
		if !ok {
			return course.ErrNotFound
		}
		row.Name = c.Name
		row.Type = c.Type
		row.Difficulty = c.Difficulty
		row.Price = c.Price
		row.Duration = c.Duration
		row.NotesURL = c.NotesURL
		row.VideoURL = c.VideoURL
		row.universityID = c.University.ID
		row.bookID = c.Book.ID
		t.courses[c.ID] = row
		return nil
	})
}

func (repo *courseRepository) SetTopics(ctx context.Context, courseID int, names []string) error {
	return repo.write(func(t *tables) error {
		delete(t.courseTopics, courseID)
		t.addTopics(courseID, names)
		return nil
	})
}

func (repo *courseRepository) AddTopics(ctx context.Context, courseID int, names []string) error {
	return repo.write(func(t *tables) error {
		t.addTopics(courseID, names)
		return nil
	})
}

func (repo *courseRepository) QueryTopics(ctx context.Context) ([]course.Topic, error) {
	topics := make([]course.Topic, 0)
	err := repo.read(func(t *tables) error {
		for _, topic := range t.topics {
			topics = append(topics, topic)
		}
		return nil
	})
	sort.Slice(topics, func(i, j int) bool { return strings.ToLower(topics[i].Name) < strings.ToLower(topics[j].Name) })
	return topics, err
}

func (repo *courseRepository) AddInstructor(ctx context.Context, courseID, instructorID int) error {
	return repo.write(func(t *tables) error {
		t.teaches[edge{from: instructorID, to: courseID}] = struct{}{}
		return nil
	})
}

func (repo *courseRepository) Teaches(ctx context.Context, instructorID, courseID int) (bool, error) {
	var teaches bool
	err := repo.read(func(t *tables) error {
		_, teaches = t.teaches[edge{from: instructorID, to: courseID}]
		return nil
	})
	return teaches, err
}

func (repo *courseRepository) GetUniversityRef(ctx context.Context, id int) (course.Ref, error) {
	var ref course.Ref
	err := repo.read(func(t *tables) error {
		uni, ok := t.universities[id]
		if !ok {
			return course.ErrUniversityNotFound
		}
		ref = course.Ref{ID: uni.ID, Name: uni.Name}
		return nil
	})
	return ref, err
}

func (repo *courseRepository) GetBookRef(ctx context.Context, id int) (course.Ref, error) {
	var ref course.Ref
	err := repo.read(func(t *tables) error {
		b, ok := t.books[id]
		if !ok {
			return course.ErrBookNotFound
		}
		ref = course.Ref{ID: b.ID, Name: b.Name}
		return nil
	})
	return ref, err
}

func (repo *courseRepository) GetInstructor(ctx context.Context, id int) (course.Instructor, error) {
	var instr course.Instructor
	err := repo.read(func(t *tables) error {
		usr, ok := t.users[id]
		if !ok || !usr.IsInstructor() {
			return course.ErrInstructorNotFound
		}
		instr = course.Instructor{ID: usr.ID, Name: usr.Name, Email: usr.Email}
		return nil
	})
	return instr, err
}

func (repo *courseRepository) PrerequisiteIDs(ctx context.Context, courseID int) ([]int, error) {
	ids := make([]int, 0)
	err := repo.read(func(t *tables) error {
		for e := range t.prereqs {
			if e.from == courseID {
				ids = append(ids, e.to)
			}
		}
		return nil
	})
	sort.Ints(ids)
	return ids, err
}

func (repo *courseRepository) SetPrerequisites(ctx context.Context, courseID int, prerequisiteIDs []int) error {
	return repo.write(func(t *tables) error {
		for e := range t.prereqs {
			if e.from == courseID {
				delete(t.prereqs, e)
			}
		}
		for _, p := range prerequisiteIDs {
			if p == courseID {
				return errSelfLoop
			}
			t.prereqs[edge{from: courseID, to: p}] = struct{}{}
		}
		return nil
	})
}

func (repo *courseRepository) DependentsOf(ctx context.Context, courseID int) ([]course.Ref, error) {
	deps := make([]course.Ref, 0)
	err := repo.read(func(t *tables) error {
		for e := range t.prereqs {
			if e.to == courseID {
				deps = append(deps, t.courses[e.from].Ref())
			}
		}
		return nil
	})
	sortRefs(deps)
	return deps, err
}

func (repo *courseRepository) HasEdge(ctx context.Context, from, to int) (bool, error) {
	var has bool
	err := repo.read(func(t *tables) error {
		_, has = t.prereqs[edge{from: from, to: to}]
		return nil
	})
	return has, err
}

func (repo *courseRepository) RemoveEdge(ctx context.Context, from, to int) error {
	return repo.write(func(t *tables) error {
		delete(t.prereqs, edge{from: from, to: to})
		return nil
	})
}

func (repo *courseRepository) ReplaceEdge(ctx context.Context, from, oldTo, newTo int) error {
	return repo.write(func(t *tables) error {
		if from == newTo {
			return errSelfLoop
		}
		delete(t.prereqs, edge{from: from, to: oldTo})
		t.prereqs[edge{from: from, to: newTo}] = struct{}{}
		return nil
	})
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id int) error {
	return repo.write(func(t *tables) error {
		if _, ok := t.courses[id]; !ok {
			return course.ErrNotFound
		}
		delete(t.courses, id)
		delete(t.courseTopics, id)
		for e := range t.prereqs {
			if e.from == id || e.to == id {
				delete(t.prereqs, e)
			}
		}
		for e := range t.teaches {
			if e.to == id {
				delete(t.teaches, e)
			}
		}
		for e := range t.enrollments {
			if e.to == id {
				delete(t.enrollments, e)
			}
		}
		return nil
	})
}
