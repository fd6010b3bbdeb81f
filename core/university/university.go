package university

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/academia-labs/academia/core"
)

var ErrNotFound = core.NewNotFoundError("university")

type University struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

type NewUniversity struct {
	Name    string `json:"name" validate:"required,max=255"`
	Country string `json:"country" validate:"required,max=100"`
}

func (nu *NewUniversity) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Country = core.CleanString(nu.Country)
	return validate.Struct(nu)
}

type (
	Repository interface {
		CreateUniversity(ctx context.Context, uni University) (University, error)
		GetUniversity(ctx context.Context, id int) (University, error)
		// QueryUniversities returns all universities ordered by name.
		QueryUniversities(ctx context.Context) ([]University, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nu NewUniversity) (University, error) {
	uni, err := svc.repo.CreateUniversity(ctx, University{Name: nu.Name, Country: nu.Country})
	return uni, errors.Wrap(err, "creating university")
}

func (svc *Service) Get(ctx context.Context, id int) (University, error) {
	uni, err := svc.repo.GetUniversity(ctx, id)
	return uni, errors.Wrap(err, "getting university")
}

func (svc *Service) QueryAll(ctx context.Context) ([]University, error) {
	unis, err := svc.repo.QueryUniversities(ctx)
	return unis, errors.Wrap(err, "querying universities")
}
