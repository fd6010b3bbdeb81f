package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia-labs/academia/core"
	"github.com/academia-labs/academia/core/course"
)

const courseSelect = `SELECT c.id, c.name, c.type, c.difficulty, c.price, c.duration, c.notes_url, c.video_url, c.created_at,
	c.university_id, u.name AS university_name, c.book_id, b.name AS book_name
FROM courses c
JOIN universities u ON u.id = c.university_id
JOIN books b ON b.id = c.book_id`

type courseRow struct {
	ID             int         `db:"id"`
	Name           string      `db:"name"`
	Type           string      `db:"type"`
	Difficulty     string      `db:"difficulty"`
	Price          float64     `db:"price"`
	Duration       int         `db:"duration"`
	NotesURL       null.String `db:"notes_url"`
	VideoURL       null.String `db:"video_url"`
	CreatedAt      time.Time   `db:"created_at"`
	UniversityID   int         `db:"university_id"`
	UniversityName string      `db:"university_name"`
	BookID         int         `db:"book_id"`
	BookName       string      `db:"book_name"`
}

func (r courseRow) course() course.Course {
	return course.Course{
		ID:            r.ID,
		Name:          r.Name,
		Type:          course.Type(r.Type),
		Difficulty:    course.Difficulty(r.Difficulty),
		Price:         r.Price,
		Duration:      r.Duration,
		NotesURL:      r.NotesURL,
		VideoURL:      r.VideoURL,
		University:    course.Ref{ID: r.UniversityID, Name: r.UniversityName},
		Book:          course.Ref{ID: r.BookID, Name: r.BookName},
		Instructors:   make([]course.Instructor, 0),
		Topics:        make([]string, 0),
		Prerequisites: make([]course.Ref, 0),
		Dependents:    make([]course.Ref, 0),
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

// relationRow links a course to a related row (instructor, topic, prerequisite or dependent).
type relationRow struct {
	CourseID int    `db:"course_id"`
	ID       int    `db:"id"`
	Name     string `db:"name"`
	Email    string `db:"email"`
}

type courseRepository struct {
	db   *sqlx.DB
	exec sqlx.ExtContext
	inTx bool
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db, exec: db}
}

func (repo *courseRepository) WithTx(ctx context.Context, fn func(repo course.Repository) error) error {
	if repo.inTx {
		return fn(repo)
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(&courseRepository{db: repo.db, exec: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back (%v)", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// withRelations assembles full courses out of rows, in the same order.
func (repo *courseRepository) withRelations(ctx context.Context, rows []courseRow) ([]course.Course, error) {
	courses := make([]course.Course, 0, len(rows))
	if len(rows) == 0 {
		return courses, nil
	}
	ids := make([]int, 0, len(rows))
	index := make(map[int]int, len(rows))
	for i, row := range rows {
		courses = append(courses, row.course())
		ids = append(ids, row.ID)
		index[row.ID] = i
	}

	var instructors []relationRow
	err := selectIn(ctx, repo.exec, &instructors, `SELECT t.course_id, usr.id, usr.name, usr.email
FROM teaches t JOIN users usr ON usr.id = t.instructor_id
WHERE t.course_id IN (?) ORDER BY usr.id`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "selecting instructors")
	}
	for _, r := range instructors {
		c := &courses[index[r.CourseID]]
		c.Instructors = append(c.Instructors, course.Instructor{ID: r.ID, Name: r.Name, Email: r.Email})
	}

	var topics []relationRow
	err = selectIn(ctx, repo.exec, &topics, `SELECT ct.course_id, tp.id, tp.name
FROM course_topics ct JOIN topics tp ON tp.id = ct.topic_id
WHERE ct.course_id IN (?) ORDER BY ct.course_id, ct.position`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "selecting topics")
	}
	for _, r := range topics {
		c := &courses[index[r.CourseID]]
		c.Topics = append(c.Topics, r.Name)
	}

	var prereqs []relationRow
	err = selectIn(ctx, repo.exec, &prereqs, `SELECT p.course_id, c.id, c.name
FROM prerequisites p JOIN courses c ON c.id = p.prerequisite_id
WHERE p.course_id IN (?) ORDER BY c.id`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "selecting prerequisites")
	}
	for _, r := range prereqs {
		c := &courses[index[r.CourseID]]
		c.Prerequisites = append(c.Prerequisites, course.Ref{ID: r.ID, Name: r.Name})
	}

	var dependents []relationRow
	err = selectIn(ctx, repo.exec, &dependents, `SELECT p.prerequisite_id AS course_id, c.id, c.name
FROM prerequisites p JOIN courses c ON c.id = p.course_id
WHERE p.prerequisite_id IN (?) ORDER BY c.id`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "selecting dependents")
	}
	for _, r := range dependents {
		c := &courses[index[r.CourseID]]
		c.Dependents = append(c.Dependents, course.Ref{ID: r.ID, Name: r.Name})
	}
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id int) (course.Course, error) {
	var row courseRow
	if err := sqlx.GetContext(ctx, repo.exec, &row, courseSelect+` WHERE c.id = $1`, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "selecting course")
	}
	courses, err := repo.withRelations(ctx, []courseRow{row})
	if err != nil {
		return course.Course{}, err
	}
	return courses[0], nil
}

func (repo *courseRepository) GetCourseRef(ctx context.Context, id int) (course.Ref, error) {
	var ref course.Ref
	if err := sqlx.GetContext(ctx, repo.exec, &ref, `SELECT id, name FROM courses WHERE id = $1`, id); err != nil {
		return course.Ref{}, trapNoRowsErr(err, course.ErrNotFound, "selecting course")
	}
	return ref, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter, orderings ...core.DBOrdering) ([]course.Course, error) {
	var conds []string
	var args []interface{}
	where := func(cond string, arg interface{}) {
		conds = append(conds, cond)
		args = append(args, arg)
	}
	if filter.Search != "" {
		where("c.name ILIKE ?", "%"+filter.Search+"%")
	}
	if filter.Type != "" {
		where("c.type = ?", string(filter.Type))
	}
	if filter.Difficulty != "" {
		where("c.difficulty = ?", string(filter.Difficulty))
	}
	if filter.MinPrice.Valid {
		where("c.price >= ?", filter.MinPrice.Float64)
	}
	if filter.MaxPrice.Valid {
		where("c.price <= ?", filter.MaxPrice.Float64)
	}
	if filter.University != "" {
		where("u.name ILIKE ?", "%"+filter.University+"%")
	}
	if filter.Topic != "" {
		where(`EXISTS (SELECT 1 FROM course_topics ct JOIN topics tp ON tp.id = ct.topic_id
WHERE ct.course_id = c.id AND tp.name ILIKE ?)`, "%"+filter.Topic+"%")
	}
	if filter.InstructorID != 0 {
		where("EXISTS (SELECT 1 FROM teaches t WHERE t.course_id = c.id AND t.instructor_id = ?)", filter.InstructorID)
	}

	query := courseSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	ords := make([]core.DBOrdering, 0, len(orderings)+1)
	for _, ord := range orderings {
		ords = append(ords, core.DBOrdering{Field: "c." + ord.Field, Ascending: ord.Ascending})
	}
	ords = append(ords, core.DBOrdering{Field: "c.id", Ascending: true})
	query += core.OrderByClause(ords, "c.id ASC")

	var rows []courseRow
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, repo.exec.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	return repo.withRelations(ctx, rows)
}

func (repo *courseRepository) CountEnrollments(ctx context.Context, courseIDs ...int) (map[int]int, error) {
	counts := make(map[int]int, len(courseIDs))
	if len(courseIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		CourseID int `db:"course_id"`
		Count    int `db:"count"`
	}
	err := selectIn(ctx, repo.exec, &rows,
		`SELECT course_id, COUNT(*) AS count FROM enrollments WHERE course_id IN (?) GROUP BY course_id`, courseIDs)
	if err != nil {
		return nil, errors.Wrap(err, "counting enrollments")
	}
	for _, r := range rows {
		counts[r.CourseID] = r.Count
	}
	return counts, nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	var id int
	err := sqlx.GetContext(ctx, repo.exec, &id, `INSERT INTO courses
	(name, type, difficulty, price, duration, notes_url, video_url, university_id, book_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		c.Name, string(c.Type), string(c.Difficulty), c.Price, c.Duration, c.NotesURL, c.VideoURL,
		c.University.ID, c.Book.ID, c.CreatedAt)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}

	if err = repo.AddTopics(ctx, id, c.Topics); err != nil {
		return course.Course{}, err
	}
	for _, instr := range c.Instructors {
		if err = repo.AddInstructor(ctx, id, instr.ID); err != nil {
			return course.Course{}, err
		}
	}
	if err = repo.SetPrerequisites(ctx, id, c.PrerequisiteIDs()); err != nil {
		return course.Course{}, err
	}
	return repo.GetCourse(ctx, id)
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) error {
	return execAffecting(ctx, repo.exec, course.ErrNotFound, "updating course", `UPDATE courses
SET name = $2, type = $3, difficulty = $4, price = $5, duration = $6, notes_url = $7, video_url = $8,
	university_id = $9, book_id = $10
WHERE id = $1`,
		c.ID, c.Name, string(c.Type), string(c.Difficulty), c.Price, c.Duration, c.NotesURL, c.VideoURL,
		c.University.ID, c.Book.ID)
}

func (repo *courseRepository) SetTopics(ctx context.Context, courseID int, names []string) error {
	if _, err := repo.exec.ExecContext(ctx, `DELETE FROM course_topics WHERE course_id = $1`, courseID); err != nil {
		return errors.Wrap(err, "clearing course topics")
	}
	return repo.AddTopics(ctx, courseID, names)
}

func (repo *courseRepository) AddTopics(ctx context.Context, courseID int, names []string) error {
	for _, name := range names {
		var topicID int
		err := sqlx.GetContext(ctx, repo.exec, &topicID, `INSERT INTO topics (name) VALUES ($1)
ON CONFLICT ((LOWER(name))) DO UPDATE SET name = topics.name RETURNING id`, name)
		if err != nil {
			return errors.Wrap(err, "upserting topic")
		}
		_, err = repo.exec.ExecContext(ctx, `INSERT INTO course_topics (course_id, topic_id, position)
SELECT $1, $2, COALESCE(MAX(position) + 1, 0) FROM course_topics WHERE course_id = $1
ON CONFLICT DO NOTHING`, courseID, topicID)
		if err != nil {
			return errors.Wrap(err, "linking topic")
		}
	}
	return nil
}

func (repo *courseRepository) QueryTopics(ctx context.Context) ([]course.Topic, error) {
	topics := make([]course.Topic, 0)
	err := sqlx.SelectContext(ctx, repo.exec, &topics, `SELECT id, name FROM topics ORDER BY LOWER(name)`)
	return topics, errors.Wrap(err, "selecting topics")
}

func (repo *courseRepository) AddInstructor(ctx context.Context, courseID, instructorID int) error {
	_, err := repo.exec.ExecContext(ctx,
		`INSERT INTO teaches (instructor_id, course_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, instructorID, courseID)
	return errors.Wrap(err, "inserting teaching assignment")
}

func (repo *courseRepository) Teaches(ctx context.Context, instructorID, courseID int) (bool, error) {
	var teaches bool
	err := sqlx.GetContext(ctx, repo.exec, &teaches,
		`SELECT EXISTS (SELECT 1 FROM teaches WHERE instructor_id = $1 AND course_id = $2)`, instructorID, courseID)
	return teaches, errors.Wrap(err, "checking teaching assignment")
}

func (repo *courseRepository) GetUniversityRef(ctx context.Context, id int) (course.Ref, error) {
	var ref course.Ref
	if err := sqlx.GetContext(ctx, repo.exec, &ref, `SELECT id, name FROM universities WHERE id = $1`, id); err != nil {
		return course.Ref{}, trapNoRowsErr(err, course.ErrUniversityNotFound, "selecting university")
	}
	return ref, nil
}

func (repo *courseRepository) GetBookRef(ctx context.Context, id int) (course.Ref, error) {
	var ref course.Ref
	if err := sqlx.GetContext(ctx, repo.exec, &ref, `SELECT id, name FROM books WHERE id = $1`, id); err != nil {
		return course.Ref{}, trapNoRowsErr(err, course.ErrBookNotFound, "selecting book")
	}
	return ref, nil
}

func (repo *courseRepository) GetInstructor(ctx context.Context, id int) (course.Instructor, error) {
	var instr course.Instructor
	err := sqlx.GetContext(ctx, repo.exec, &instr,
		`SELECT id, name, email FROM users WHERE id = $1 AND role = $2`, id, core.RoleInstructor)
	if err != nil {
		return course.Instructor{}, trapNoRowsErr(err, course.ErrInstructorNotFound, "selecting instructor")
	}
	return instr, nil
}

func (repo *courseRepository) PrerequisiteIDs(ctx context.Context, courseID int) ([]int, error) {
	ids := make([]int, 0)
	err := sqlx.SelectContext(ctx, repo.exec, &ids,
		`SELECT prerequisite_id FROM prerequisites WHERE course_id = $1 ORDER BY prerequisite_id`, courseID)
	return ids, errors.Wrap(err, "selecting prerequisites")
}

func (repo *courseRepository) SetPrerequisites(ctx context.Context, courseID int, prerequisiteIDs []int) error {
	if _, err := repo.exec.ExecContext(ctx, `DELETE FROM prerequisites WHERE course_id = $1`, courseID); err != nil {
		return errors.Wrap(err, "clearing prerequisites")
	}
	for _, p := range prerequisiteIDs {
		_, err := repo.exec.ExecContext(ctx,
			`INSERT INTO prerequisites (course_id, prerequisite_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, courseID, p)
		if err != nil {
			return errors.Wrap(err, "inserting prerequisite")
		}
	}
	return nil
}

func (repo *courseRepository) DependentsOf(ctx context.Context, courseID int) ([]course.Ref, error) {
	deps := make([]course.Ref, 0)
	err := sqlx.SelectContext(ctx, repo.exec, &deps, `SELECT c.id, c.name
FROM prerequisites p JOIN courses c ON c.id = p.course_id
WHERE p.prerequisite_id = $1 ORDER BY c.id`, courseID)
	return deps, errors.Wrap(err, "selecting dependents")
}

func (repo *courseRepository) HasEdge(ctx context.Context, from, to int) (bool, error) {
	var has bool
	err := sqlx.GetContext(ctx, repo.exec, &has,
		`SELECT EXISTS (SELECT 1 FROM prerequisites WHERE course_id = $1 AND prerequisite_id = $2)`, from, to)
	return has, errors.Wrap(err, "checking prerequisite")
}

func (repo *courseRepository) RemoveEdge(ctx context.Context, from, to int) error {
	_, err := repo.exec.ExecContext(ctx,
		`DELETE FROM prerequisites WHERE course_id = $1 AND prerequisite_id = $2`, from, to)
	return errors.Wrap(err, "deleting prerequisite")
}

func (repo *courseRepository) ReplaceEdge(ctx context.Context, from, oldTo, newTo int) error {
	_, err := repo.exec.ExecContext(ctx,
		`UPDATE prerequisites SET prerequisite_id = $3 WHERE course_id = $1 AND prerequisite_id = $2`, from, oldTo, newTo)
	return errors.Wrap(err, "replacing prerequisite")
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id int) error {
	return execAffecting(ctx, repo.exec, course.ErrNotFound, "deleting course", `DELETE FROM courses WHERE id = $1`, id)
}
