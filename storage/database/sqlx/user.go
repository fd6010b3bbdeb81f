package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia-labs/academia/core"
	"github.com/academia-labs/academia/core/user"
)

const userColumns = `id, email, name, role, password_hash, dob, country, skill_level, expertise, created_at`

type userRow struct {
	ID           int            `db:"id"`
	Email        string         `db:"email"`
	Name         string         `db:"name"`
	Role         string         `db:"role"`
	PasswordHash []byte         `db:"password_hash"`
	DOB          null.Time      `db:"dob"`
	Country      null.String    `db:"country"`
	SkillLevel   null.String    `db:"skill_level"`
	Expertise    pq.StringArray `db:"expertise"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r userRow) user() user.User {
	expertise := []string(r.Expertise)
	if expertise == nil {
		expertise = []string{}
	}
	return user.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		Role:         r.Role,
		PasswordHash: r.PasswordHash,
		DOB:          r.DOB,
		Country:      r.Country,
		SkillLevel:   r.SkillLevel,
		Expertise:    expertise,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func emailTakenErr() error {
	return core.NewValidationError(user.ErrEmailExists, core.FieldError{Field: "email", Error: user.ErrEmailExists.Error()})
}

func (repo *userRepository) EmailExists(ctx context.Context, email string, excludedID int) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, repo.db, &exists,
		`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND id <> $2)`, email, excludedID)
	return exists, errors.Wrap(err, "checking email uniqueness")
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := sqlx.GetContext(ctx, repo.db, &usr.ID, `INSERT INTO users
	(email, name, role, password_hash, dob, country, skill_level, expertise, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		usr.Email, usr.Name, usr.Role, usr.PasswordHash, usr.DOB, usr.Country, usr.SkillLevel,
		stringArray(usr.Expertise), usr.CreatedAt)
	if err != nil {
		if pqCode(err) == uniqueViolation {
			return user.User{}, emailTakenErr()
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) getUser(ctx context.Context, cond string, arg interface{}) (user.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, repo.db, &row, `SELECT `+userColumns+` FROM users WHERE `+cond, arg)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "selecting user")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	return repo.getUser(ctx, "id = $1", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, "LOWER(email) = LOWER($1)", email)
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	var conds []string
	var args []interface{}
	if filter.Role != "" {
		conds = append(conds, "role = ?")
		args = append(args, filter.Role)
	}
	if filter.Search != "" {
		conds = append(conds, "(name ILIKE ? OR email ILIKE ?)")
		args = append(args, "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name, id"

	var rows []userRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := execAffecting(ctx, repo.db, user.ErrNotFound, "updating user", `UPDATE users
SET email = $2, name = $3, role = $4, password_hash = $5, dob = $6, country = $7, skill_level = $8, expertise = $9
WHERE id = $1`,
		usr.ID, usr.Email, usr.Name, usr.Role, usr.PasswordHash, usr.DOB, usr.Country, usr.SkillLevel,
		stringArray(usr.Expertise))
	if pqCode(err) == uniqueViolation {
		return user.User{}, emailTakenErr()
	}
	return usr, err
}

func (repo *userRepository) DeleteUser(ctx context.Context, id int) error {
	return execAffecting(ctx, repo.db, user.ErrNotFound, "deleting user", `DELETE FROM users WHERE id = $1`, id)
}
