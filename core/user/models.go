package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/academia-labs/academia/core"
)

const dateLayout = "2006-01-02"

// Skill levels
const (
	SkillBeginner     = "Beginner"
	SkillIntermediate = "Intermediate"
	SkillAdvanced     = "Advanced"
)

var SkillLevels = []string{SkillBeginner, SkillIntermediate, SkillAdvanced}

type User struct {
	ID           int         `json:"id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Role         string      `json:"role"`
	PasswordHash []byte      `json:"-"`
	DOB          null.Time   `json:"dob"`
	Country      null.String `json:"country"`
	SkillLevel   null.String `json:"skill_level"`
	Expertise    []string    `json:"expertise"`
	CreatedAt    time.Time   `json:"created_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool      { return u.Role == core.RoleAdmin }
func (u User) IsInstructor() bool { return u.Role == core.RoleInstructor }
func (u User) IsStudent() bool    { return u.Role == core.RoleStudent }

// Session returns the Session of a request made by u.
func (u User) Session() core.Session {
	return core.Session{UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

func (u User) HasExpertise(area string) bool {
	for _, a := range u.Expertise {
		if core.CleanString(a, true) == core.CleanString(area, true) {
			return true
		}
	}
	return false
}

func cleanAccount(email, name string) (string, string) {
	return core.CleanString(email, true /* lower */), core.CleanString(name)
}

// NewStudent contains information needed to register a Student.
type NewStudent struct {
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,max=255"`
	Name       string `json:"name" validate:"required,max=255"`
	DOB        string `json:"dob" validate:"required,datetime=2006-01-02"`
	Country    string `json:"country" validate:"required,max=100"`
	SkillLevel string `json:"skill_level" validate:"required,skilllevel"`
}

func (ns *NewStudent) Validate(validate *validator.Validate, svc *Service) error {
	ns.Email, ns.Name = cleanAccount(ns.Email, ns.Name)
	ns.Country = core.CleanString(ns.Country)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkUniqueness(ns.Email)
}

// NewInstructor contains information needed to register an Instructor.
type NewInstructor struct {
	Email     string   `json:"email" validate:"required,email,max=255"`
	Password  string   `json:"password" validate:"required,max=255"`
	Name      string   `json:"name" validate:"required,max=255"`
	Expertise []string `json:"expertise_areas" validate:"max=20,dive,required,max=255"`
}

func (ni *NewInstructor) Validate(validate *validator.Validate, svc *Service) error {
	ni.Email, ni.Name = cleanAccount(ni.Email, ni.Name)
	ni.Expertise = core.UniqueStrings(ni.Expertise)

	if err := validate.Struct(ni); err != nil {
		return err
	}
	return svc.checkUniqueness(ni.Email)
}

// NewAnalyst contains information needed to create a Data Analyst.
type NewAnalyst struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=255"`
	Name     string `json:"name" validate:"required,max=255"`
}

func (na *NewAnalyst) Validate(validate *validator.Validate, svc *Service) error {
	na.Email, na.Name = cleanAccount(na.Email, na.Name)

	if err := validate.Struct(na); err != nil {
		return err
	}
	return svc.checkUniqueness(na.Email)
}

// UpdateStudentProfile defines what a Student may change on their profile; nil fields are left unchanged.
type UpdateStudentProfile struct {
	Name       *string `json:"name" validate:"omitempty,max=255"`
	DOB        *string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Country    *string `json:"country" validate:"omitempty,max=100"`
	SkillLevel *string `json:"skill_level" validate:"omitempty,skilllevel"`
}

func (up *UpdateStudentProfile) Validate(validate *validator.Validate) error {
	if up.Name != nil {
		name := core.CleanString(*up.Name)
		up.Name = &name
	}
	if up.Country != nil {
		country := core.CleanString(*up.Country)
		up.Country = &country
	}
	return validate.Struct(up)
}

func (up UpdateStudentProfile) apply(u *User) error {
	if up.Name != nil && *up.Name != "" {
		u.Name = *up.Name
	}
	if up.DOB != nil {
		dob, err := time.Parse(dateLayout, *up.DOB)
		if err != nil {
			return err
		}
		u.DOB = null.TimeFrom(dob)
	}
	if up.Country != nil && *up.Country != "" {
		u.Country = null.StringFrom(*up.Country)
	}
	if up.SkillLevel != nil {
		u.SkillLevel = null.StringFrom(*up.SkillLevel)
	}
	return nil
}

// UpdateInstructorProfile defines what an Instructor may change on their profile.
// A non-nil Expertise replaces all expertise areas.
type UpdateInstructorProfile struct {
	Name      *string  `json:"name" validate:"omitempty,max=255"`
	Expertise []string `json:"expertise_areas" validate:"omitempty,max=20,dive,required,max=255"`
}

func (up *UpdateInstructorProfile) Validate(validate *validator.Validate) error {
	if up.Name != nil {
		name := core.CleanString(*up.Name)
		up.Name = &name
	}
	if up.Expertise != nil {
		up.Expertise = core.UniqueStrings(up.Expertise)
	}
	return validate.Struct(up)
}

type ExpertiseArea struct {
	Area string `json:"area" validate:"required,max=255"`
}

func (ea *ExpertiseArea) Validate(validate *validator.Validate) error {
	ea.Area = core.CleanString(ea.Area)
	return validate.Struct(ea)
}

type QueryFilter struct {
	Search string // case-insensitive match on Name or Email
	Role   string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
