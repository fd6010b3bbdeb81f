package inmemdb

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/academia-labs/academia/core/book"
	"github.com/academia-labs/academia/core/university"
)

type universityRepository struct {
	db *DB
}

var _ university.Repository = (*universityRepository)(nil)

func NewUniversityRepository(db *DB) university.Repository {
	return &universityRepository{db: db}
}

func (repo *universityRepository) CreateUniversity(ctx context.Context, uni university.University) (university.University, error) {
	err := repo.db.write(func(t *tables) error {
		uni.ID = t.nextID("universities")
		t.universities[uni.ID] = uni
		return nil
	})
	return uni, err
}

func (repo *universityRepository) GetUniversity(ctx context.Context, id int) (university.University, error) {
	var uni university.University
	err := repo.db.read(func(t *tables) error {
		var ok bool
		if uni, ok = t.universities[id]; !ok {
			return university.ErrNotFound
		}
		return nil
	})
	return uni, err
}

func (repo *universityRepository) QueryUniversities(ctx context.Context) ([]university.University, error) {
	unis := make([]university.University, 0)
	err := repo.db.read(func(t *tables) error {
		for _, uni := range t.universities {
			unis = append(unis, uni)
		}
		return nil
	})
	sort.Slice(unis, func(i, j int) bool { return strings.ToLower(unis[i].Name) < strings.ToLower(unis[j].Name) })
	return unis, err
}

type bookRepository struct {
	db *DB
}

var _ book.Repository = (*bookRepository)(nil)

func NewBookRepository(db *DB) book.Repository {
	return &bookRepository{db: db}
}

func (repo *bookRepository) CreateBook(ctx context.Context, b book.Book) (book.Book, error) {
	err := repo.db.write(func(t *tables) error {
		b.ID = t.nextID("books")
		b.Authors = slices.Clone(b.Authors)
		t.books[b.ID] = b
		return nil
	})
	return b, err
}

func (repo *bookRepository) GetBook(ctx context.Context, id int) (book.Book, error) {
	var b book.Book
	err := repo.db.read(func(t *tables) error {
		var ok bool
		if b, ok = t.books[id]; !ok {
			return book.ErrNotFound
		}
		return nil
	})
	b.Authors = slices.Clone(b.Authors)
	return b, err
}

func (repo *bookRepository) QueryBooks(ctx context.Context) ([]book.Book, error) {
	books := make([]book.Book, 0)
	err := repo.db.read(func(t *tables) error {
		for _, b := range t.books {
			b.Authors = slices.Clone(b.Authors)
			books = append(books, b)
		}
		return nil
	})
	sort.Slice(books, func(i, j int) bool { return strings.ToLower(books[i].Name) < strings.ToLower(books[j].Name) })
	return books, err
}

func (repo *bookRepository) DeleteBook(ctx context.Context, id int) error {
	return repo.db.write(func(t *tables) error {
		if _, ok := t.books[id]; !ok {
			return book.ErrNotFound
		}
		for _, row := range t.courses {
			if row.bookID == id {
				return book.ErrInUse
			}
		}
		delete(t.books, id)
		return nil
	})
}
