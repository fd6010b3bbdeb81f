package user

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia-labs/academia/core"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("user")
	ErrEmailExists       = errors.New("a user with this email already exists")
	ErrCannotDeleteAdmin = core.NewPermissionError("admin users cannot be deleted")
	ErrExpertiseExists   = core.NewConflictError("expertise area already exists")
	ErrExpertiseNotFound = core.NewNotFoundError("expertise area")
)

type (
	Repository interface {
		// EmailExists reports whether another user than excludedID uses email.
		EmailExists(ctx context.Context, email string, excludedID int) (bool, error)
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields, ordered by name.
		QueryUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		// UpdateUser stores every field of usr, expertise included.
		UpdateUser(ctx context.Context, usr User) (User, error)
		// DeleteUser removes the user with their enrollments and teaching assignments.
		DeleteUser(ctx context.Context, id int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(email string, excludedID ...int) error {
	var exclID int
	if len(excludedID) > 0 {
		exclID = excludedID[0]
	}
	exists, err := svc.repo.EmailExists(context.Background(), email, exclID)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return nil
}

func (svc *Service) create(ctx context.Context, usr User, pwd string) (User, error) {
	usr.CreatedAt = time.Now().UTC()
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	return usr, errors.Wrap(err, "creating user")
}

func (svc *Service) RegisterStudent(ctx context.Context, ns NewStudent) (User, error) {
	dob, err := time.Parse(dateLayout, ns.DOB)
	if err != nil {
		return User{}, errors.Wrap(err, "parsing dob")
	}
	return svc.create(ctx, User{
		Email:      ns.Email,
		Name:       ns.Name,
		Role:       core.RoleStudent,
		DOB:        null.TimeFrom(dob),
		Country:    null.StringFrom(ns.Country),
		SkillLevel: null.StringFrom(ns.SkillLevel),
	}, ns.Password)
}

func (svc *Service) RegisterInstructor(ctx context.Context, ni NewInstructor) (User, error) {
	expertise := ni.Expertise
	if expertise == nil {
		expertise = []string{}
	}
	return svc.create(ctx, User{
		Email:     ni.Email,
		Name:      ni.Name,
		Role:      core.RoleInstructor,
		Expertise: expertise,
	}, ni.Password)
}

func (svc *Service) CreateAnalyst(ctx context.Context, na NewAnalyst) (User, error) {
	return svc.create(ctx, User{
		Email: na.Email,
		Name:  na.Name,
		Role:  core.RoleDataAnalyst,
	}, na.Password)
}

// SaveAccount updates the password and role of the user with email, or creates it.
func (svc *Service) SaveAccount(ctx context.Context, email, name, role, pwd string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	if err := CheckPasswordPolicy(pwd, name, email); err != nil {
		return User{}, err
	}

	usr, err := svc.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return User{}, errors.Wrap(err, "getting user")
		}
		if name == "" {
			name = email
		}
		return svc.create(ctx, User{Email: email, Name: core.CleanString(name), Role: role}, pwd)
	}

	usr.Role = role
	if name != "" {
		usr.Name = core.CleanString(name)
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

func (svc *Service) ResetPassword(ctx context.Context, email, pwd string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = CheckPasswordPolicy(pwd, usr.Name, usr.Email); err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	return usr, errors.Wrap(err, "getting user")
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	return usr, errors.Wrap(err, "getting user")
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]User, error) {
	filter.Clean()
	users, err := svc.repo.QueryUsers(ctx, filter)
	return users, errors.Wrap(err, "querying users")
}

func (svc *Service) Instructors(ctx context.Context) ([]User, error) {
	return svc.Query(ctx, QueryFilter{Role: core.RoleInstructor})
}

// Profile returns the user behind sess.
func (svc *Service) Profile(ctx context.Context, sess core.Session) (User, error) {
	return svc.GetByID(ctx, sess.UserID)
}

func (svc *Service) UpdateStudentProfile(ctx context.Context, sess core.Session, up UpdateStudentProfile) (User, error) {
	usr, err := svc.Profile(ctx, sess)
	if err != nil {
		return User{}, err
	}
	if err = up.apply(&usr); err != nil {
		return User{}, errors.Wrap(err, "applying profile update")
	}
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

func (svc *Service) UpdateInstructorProfile(ctx context.Context, sess core.Session, up UpdateInstructorProfile) (User, error) {
	usr, err := svc.Profile(ctx, sess)
	if err != nil {
		return User{}, err
	}
	if up.Name != nil && *up.Name != "" {
		usr.Name = *up.Name
	}
	if up.Expertise != nil {
		usr.Expertise = up.Expertise
	}
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

func (svc *Service) AddExpertise(ctx context.Context, sess core.Session, area string) (User, error) {
	usr, err := svc.Profile(ctx, sess)
	if err != nil {
		return User{}, err
	}
	if usr.HasExpertise(area) {
		return User{}, ErrExpertiseExists
	}
	if len(usr.Expertise) >= 20 {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "area", Error: "at most 20 expertise areas are allowed"})
	}
	usr.Expertise = append(usr.Expertise, area)
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

func (svc *Service) RemoveExpertise(ctx context.Context, sess core.Session, area string) (User, error) {
	usr, err := svc.Profile(ctx, sess)
	if err != nil {
		return User{}, err
	}
	if !usr.HasExpertise(area) {
		return User{}, ErrExpertiseNotFound
	}
	kept := make([]string, 0, len(usr.Expertise))
	for _, a := range usr.Expertise {
		if core.CleanString(a, true) != core.CleanString(area, true) {
			kept = append(kept, a)
		}
	}
	usr.Expertise = kept
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

// Delete removes the user with id and returns it. Admin accounts cannot be deleted.
func (svc *Service) Delete(ctx context.Context, id int) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if usr.IsAdmin() {
		return User{}, ErrCannotDeleteAdmin
	}
	return usr, errors.Wrap(svc.repo.DeleteUser(ctx, id), "deleting user")
}
