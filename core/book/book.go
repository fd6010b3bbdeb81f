package book

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia-labs/academia/core"
)

var (
	ErrNotFound = core.NewNotFoundError("book")
	ErrInUse    = core.NewConflictError("cannot delete: this book is used by at least one course")
)

type Book struct {
	ID      int         `json:"id"`
	Name    string      `json:"name"`
	ISBN    null.String `json:"isbn"`
	Authors []string    `json:"authors"`
}

type NewBook struct {
	Name    string   `json:"name" validate:"required,max=255"`
	ISBN    string   `json:"isbn" validate:"omitempty,max=20"`
	Authors []string `json:"authors" validate:"required,min=1,dive,required,max=255"`
}

func (nb *NewBook) Validate(validate *validator.Validate) error {
	nb.Name = core.CleanString(nb.Name)
	nb.ISBN = core.CleanString(nb.ISBN)
	nb.Authors = core.UniqueStrings(nb.Authors)
	return validate.Struct(nb)
}

type (
	Repository interface {
		CreateBook(ctx context.Context, b Book) (Book, error)
		GetBook(ctx context.Context, id int) (Book, error)
		// QueryBooks returns all books ordered by name.
		QueryBooks(ctx context.Context) ([]Book, error)
		// DeleteBook returns ErrInUse when a course still uses the book.
		DeleteBook(ctx context.Context, id int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nb NewBook) (Book, error) {
	b, err := svc.repo.CreateBook(ctx, Book{
		Name:    nb.Name,
		ISBN:    null.NewString(nb.ISBN, nb.ISBN != ""),
		Authors: nb.Authors,
	})
	return b, errors.Wrap(err, "creating book")
}

func (svc *Service) Get(ctx context.Context, id int) (Book, error) {
	b, err := svc.repo.GetBook(ctx, id)
	return b, errors.Wrap(err, "getting book")
}

func (svc *Service) QueryAll(ctx context.Context) ([]Book, error) {
	books, err := svc.repo.QueryBooks(ctx)
	return books, errors.Wrap(err, "querying books")
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return errors.Wrap(svc.repo.DeleteBook(ctx, id), "deleting book")
}
