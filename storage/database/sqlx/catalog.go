package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia-labs/academia/core/book"
	"github.com/academia-labs/academia/core/university"
)

type universityRepository struct {
	db *sqlx.DB
}

var _ university.Repository = (*universityRepository)(nil) // interface compliance check

func NewUniversityRepository(db *sqlx.DB) university.Repository {
	return &universityRepository{db: db}
}

func (repo *universityRepository) CreateUniversity(ctx context.Context, uni university.University) (university.University, error) {
	err := sqlx.GetContext(ctx, repo.db, &uni.ID,
		`INSERT INTO universities (name, country) VALUES ($1, $2) RETURNING id`, uni.Name, uni.Country)
	return uni, errors.Wrap(err, "inserting university")
}

func (repo *universityRepository) GetUniversity(ctx context.Context, id int) (university.University, error) {
	var uni university.University
	err := sqlx.GetContext(ctx, repo.db, &uni, `SELECT id, name, country FROM universities WHERE id = $1`, id)
	if err != nil {
		return university.University{}, trapNoRowsErr(err, university.ErrNotFound, "selecting university")
	}
	return uni, nil
}

func (repo *universityRepository) QueryUniversities(ctx context.Context) ([]university.University, error) {
	unis := make([]university.University, 0)
	err := sqlx.SelectContext(ctx, repo.db, &unis, `SELECT id, name, country FROM universities ORDER BY LOWER(name), id`)
	return unis, errors.Wrap(err, "selecting universities")
}

type bookRow struct {
	ID      int            `db:"id"`
	Name    string         `db:"name"`
	ISBN    null.String    `db:"isbn"`
	Authors pq.StringArray `db:"authors"`
}

func (r bookRow) book() book.Book {
	return book.Book{ID: r.ID, Name: r.Name, ISBN: r.ISBN, Authors: []string(r.Authors)}
}

type bookRepository struct {
	db *sqlx.DB
}

var _ book.Repository = (*bookRepository)(nil) // interface compliance check

func NewBookRepository(db *sqlx.DB) book.Repository {
	return &bookRepository{db: db}
}

func (repo *bookRepository) CreateBook(ctx context.Context, b book.Book) (book.Book, error) {
	err := sqlx.GetContext(ctx, repo.db, &b.ID,
		`INSERT INTO books (name, isbn, authors) VALUES ($1, $2, $3) RETURNING id`, b.Name, b.ISBN, stringArray(b.Authors))
	return b, errors.Wrap(err, "inserting book")
}

func (repo *bookRepository) GetBook(ctx context.Context, id int) (book.Book, error) {
	var row bookRow
	err := sqlx.GetContext(ctx, repo.db, &row, `SELECT id, name, isbn, authors FROM books WHERE id = $1`, id)
	if err != nil {
		return book.Book{}, trapNoRowsErr(err, book.ErrNotFound, "selecting book")
	}
	return row.book(), nil
}

func (repo *bookRepository) QueryBooks(ctx context.Context) ([]book.Book, error) {
	var rows []bookRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, `SELECT id, name, isbn, authors FROM books ORDER BY LOWER(name), id`); err != nil {
		return nil, errors.Wrap(err, "selecting books")
	}
	books := make([]book.Book, 0, len(rows))
	for _, row := range rows {
		books = append(books, row.book())
	}
	return books, nil
}

func (repo *bookRepository) DeleteBook(ctx context.Context, id int) error {
	err := execAffecting(ctx, repo.db, book.ErrNotFound, "deleting book", `DELETE FROM books WHERE id = $1`, id)
	if pqCode(err) == foreignKeyViolation {
		return book.ErrInUse
	}
	return err
}
