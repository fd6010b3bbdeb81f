package inmemdb

import (
	"maps"
	"slices"
	"sync"

	"github.com/academia-labs/academia/core/book"
	"github.com/academia-labs/academia/core/course"
	"github.com/academia-labs/academia/core/enrollment"
	"github.com/academia-labs/academia/core/university"
	"github.com/academia-labs/academia/core/user"
)

type (
	// edge is a directed pair: dependent -> prerequisite, instructor -> course or student -> course.
	edge struct {
		from, to int
	}

	courseRow struct {
		course.Course
		universityID int
		bookID       int
	}

	tables struct {
		seq          map[string]int
		universities map[int]university.University
		books        map[int]book.Book
		users        map[int]user.User
		courses      map[int]courseRow
		topics       map[int]course.Topic
		courseTopics map[int][]int // ordered topic ids
		prereqs      map[edge]struct{}
		teaches      map[edge]struct{}
		enrollments  map[edge]enrollment.Enrollment
	}
)

func newTables() *tables {
	return &tables{
		seq:          make(map[string]int),
		universities: make(map[int]university.University),
		books:        make(map[int]book.Book),
		users:        make(map[int]user.User),
		courses:      make(map[int]courseRow),
		topics:       make(map[int]course.Topic),
		courseTopics: make(map[int][]int),
		prereqs:      make(map[edge]struct{}),
		teaches:      make(map[edge]struct{}),
		enrollments:  make(map[edge]enrollment.Enrollment),
	}
}

func (t *tables) clone() *tables {
	courseTopics := make(map[int][]int, len(t.courseTopics))
	for id, topicIDs := range t.courseTopics {
		courseTopics[id] = slices.Clone(topicIDs)
	}
	return &tables{
		seq:          maps.Clone(t.seq),
		universities: maps.Clone(t.universities),
		books:        maps.Clone(t.books),
		users:        maps.Clone(t.users),
		courses:      maps.Clone(t.courses),
		topics:       maps.Clone(t.topics),
		courseTopics: courseTopics,
		prereqs:      maps.Clone(t.prereqs),
		teaches:      maps.Clone(t.teaches),
		enrollments:  maps.Clone(t.enrollments),
	}
}

func (t *tables) nextID(table string) int {
	t.seq[table]++
	return t.seq[table]
}

// DB is an in-memory store. Writes are copy-on-write: a failed write leaves no trace.
type DB struct {
	mu sync.RWMutex
	t  *tables
}

func NewDB() *DB {
	return &DB{t: newTables()}
}

func (db *DB) read(fn func(t *tables) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn(db.t)
}

// write applies fn to a copy of the tables and keeps the copy only when fn succeeds.
func (db *DB) write(fn func(t *tables) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	t := db.t.clone()
	if err := fn(t); err != nil {
		return err
	}
	db.t = t
	return nil
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.t = newTables()
}
