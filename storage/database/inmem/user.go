package inmemdb

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/academia-labs/academia/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) EmailExists(ctx context.Context, email string, excludedID int) (bool, error) {
	var exists bool
	err := repo.db.read(func(t *tables) error {
		for _, usr := range t.users {
			if usr.ID != excludedID && strings.EqualFold(usr.Email, email) {
				exists = true
				break
			}
		}
		return nil
	})
	return exists, err
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := repo.db.write(func(t *tables) error {
		usr.ID = t.nextID("users")
		usr.Expertise = slices.Clone(usr.Expertise)
		t.users[usr.ID] = usr
		return nil
	})
	return usr, err
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	var usr user.User
	err := repo.db.read(func(t *tables) error {
		var ok bool
		if usr, ok = t.users[id]; !ok {
			return user.ErrNotFound
		}
		return nil
	})
	usr.Expertise = slices.Clone(usr.Expertise)
	return usr, err
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var usr user.User
	err := repo.db.read(func(t *tables) error {
		for _, u := range t.users {
			if strings.EqualFold(u.Email, email) {
				usr = u
				return nil
			}
		}
		return user.ErrNotFound
	})
	usr.Expertise = slices.Clone(usr.Expertise)
	return usr, err
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	users := make([]user.User, 0)
	search := strings.ToLower(filter.Search)
	err := repo.db.read(func(t *tables) error {
		for _, usr := range t.users {
			if filter.Role != "" && usr.Role != filter.Role {
				continue
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(usr.Name), search) &&
				!strings.Contains(strings.ToLower(usr.Email), search) {
				continue
			}
			usr.Expertise = slices.Clone(usr.Expertise)
			users = append(users, usr)
		}
		return nil
	})
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name == users[j].Name {
			return users[i].ID < users[j].ID
		}
		return users[i].Name < users[j].Name
	})
	return users, err
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := repo.db.write(func(t *tables) error {
		if _, ok := t.users[usr.ID]; !ok {
			return user.ErrNotFound
		}
		usr.Expertise = slices.Clone(usr.Expertise)
		t.users[usr.ID] = usr
		return nil
	})
	return usr, err
}

func (repo *userRepository) DeleteUser(ctx context.Context, id int) error {
	return repo.db.write(func(t *tables) error {
		if _, ok := t.users[id]; !ok {
			return user.ErrNotFound
		}
		delete(t.users, id)
		for e := range t.teaches {
			if e.from == id {
				delete(t.teaches, e)
			}
		}
		for e := range t.enrollments {
			if e.from == id {
				delete(t.enrollments, e)
			}
		}
		return nil
	})
}
