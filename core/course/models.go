package course

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia-labs/academia/core"
)

type Type string

const (
	TypeDiploma     Type = "Diploma"
	TypeDegree      Type = "Degree"
	TypeCertificate Type = "Certificate"
)

var Types = []string{string(TypeDiploma), string(TypeDegree), string(TypeCertificate)}

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

var Difficulties = []string{string(DifficultyBeginner), string(DifficultyIntermediate), string(DifficultyAdvanced)}

// Ref is the short form of a course or catalog entity.
type Ref struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Instructor struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"-"`
}

type Topic struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Course struct {
	ID            int          `json:"id"`
	Name          string       `json:"name"`
	Type          Type         `json:"type"`
	Difficulty    Difficulty   `json:"difficulty"`
	Price         float64      `json:"price"`
	Duration      int          `json:"duration"`
	NotesURL      null.String  `json:"notes_url"`
	VideoURL      null.String  `json:"video_url"`
	University    Ref          `json:"university"`
	Book          Ref          `json:"book"`
	Instructors   []Instructor `json:"instructors"`
	Topics        []string     `json:"topics"`
	Prerequisites []Ref        `json:"prerequisites"`
	Dependents    []Ref        `json:"dependents"`
	CreatedAt     time.Time    `json:"created_at"` // UTC
}

func (c Course) Ref() Ref {
	return Ref{ID: c.ID, Name: c.Name}
}

func (c Course) PrerequisiteIDs() []int {
	ids := make([]int, 0, len(c.Prerequisites))
	for _, p := range c.Prerequisites {
		ids = append(ids, p.ID)
	}
	return ids
}

func (c Course) DependentIDs() []int {
	ids := make([]int, 0, len(c.Dependents))
	for _, d := range c.Dependents {
		ids = append(ids, d.ID)
	}
	return ids
}

func (c Course) TaughtBy(instructorID int) bool {
	for _, i := range c.Instructors {
		if i.ID == instructorID {
			return true
		}
	}
	return false
}

// TaughtCourse is a Course listed for one of its instructors.
type TaughtCourse struct {
	Course
	EnrolledCount int `json:"enrolled_count"`
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name            string     `json:"name" validate:"required,max=255"`
	Price           float64    `json:"price" validate:"gte=0"`
	Duration        int        `json:"duration" validate:"gt=0"`
	Type            Type       `json:"type" validate:"required,coursetype"`
	Difficulty      Difficulty `json:"difficulty" validate:"required,difficulty"`
	NotesURL        string     `json:"notes_url" validate:"omitempty,url,max=500"`
	VideoURL        string     `json:"video_url" validate:"omitempty,url,max=500"`
	UniversityID    int        `json:"university_id" validate:"required"`
	BookID          int        `json:"book_id" validate:"required"`
	InstructorID    int        `json:"instructor_id" validate:"required"`
	TopicNames      []string   `json:"topic_names" validate:"required,min=1,dive,required,max=255"`
	PrerequisiteIDs []int      `json:"prerequisite_ids" validate:"omitempty,dive,gt=0"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.NotesURL = core.CleanString(nc.NotesURL)
	nc.VideoURL = core.CleanString(nc.VideoURL)
	nc.TopicNames = core.UniqueStrings(nc.TopicNames)
	nc.PrerequisiteIDs = core.UniqueInts(nc.PrerequisiteIDs)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// nil fields are left unchanged; a non-nil PrerequisiteIDs replaces the whole prerequisite set.
type UpdateCourse struct {
	Name            *string     `json:"name" validate:"omitempty,max=255"`
	Price           *float64    `json:"price" validate:"omitempty,gte=0"`
	Duration        *int        `json:"duration"`
	Type            *Type       `json:"type" validate:"omitempty,coursetype"`
	Difficulty      *Difficulty `json:"difficulty" validate:"omitempty,difficulty"`
	NotesURL        *string     `json:"notes_url" validate:"omitempty,url,max=500"`
	VideoURL        *string     `json:"video_url" validate:"omitempty,url,max=500"`
	UniversityID    *int        `json:"university_id"`
	BookID          *int        `json:"book_id"`
	TopicNames      []string    `json:"topic_names" validate:"omitempty,dive,required,max=255"`
	PrerequisiteIDs []int       `json:"prerequisite_ids" validate:"omitempty,dive,gt=0"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	if uc.Name != nil {
		name := core.CleanString(*uc.Name)
		uc.Name = &name
		if name == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "name", Error: "this field may not be blank"})
		}
	}
	if uc.Duration != nil && *uc.Duration <= 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "duration", Error: "duration must be greater than 0"})
	}
	if uc.TopicNames != nil {
		uc.TopicNames = core.UniqueStrings(uc.TopicNames)
		if len(uc.TopicNames) == 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "topic_names", Error: "at least one topic is required"})
		}
	}
	if uc.PrerequisiteIDs != nil {
		uc.PrerequisiteIDs = core.UniqueInts(uc.PrerequisiteIDs)
	}
	return validate.Struct(uc)
}

func (uc UpdateCourse) apply(c *Course) {
	if uc.Name != nil {
		c.Name = *uc.Name
	}
	if uc.Price != nil {
		c.Price = *uc.Price
	}
	if uc.Duration != nil {
		c.Duration = *uc.Duration
	}
	if uc.Type != nil {
		c.Type = *uc.Type
	}
	if uc.Difficulty != nil {
		c.Difficulty = *uc.Difficulty
	}
	if uc.NotesURL != nil {
		c.NotesURL = null.NewString(*uc.NotesURL, *uc.NotesURL != "")
	}
	if uc.VideoURL != nil {
		c.VideoURL = null.NewString(*uc.VideoURL, *uc.VideoURL != "")
	}
	if uc.UniversityID != nil {
		c.University = Ref{ID: *uc.UniversityID}
	}
	if uc.BookID != nil {
		c.Book = Ref{ID: *uc.BookID}
	}
}

// ContentUpdate is what an instructor may change on a course they teach; topics are appended.
type ContentUpdate struct {
	NotesURL   *string  `json:"notes_url" validate:"omitempty,url,max=500"`
	VideoURL   *string  `json:"video_url" validate:"omitempty,url,max=500"`
	TopicNames []string `json:"topic_names" validate:"omitempty,dive,required,max=255"`
}

func (cu *ContentUpdate) Validate(validate *validator.Validate) error {
	cu.TopicNames = core.UniqueStrings(cu.TopicNames)
	return validate.Struct(cu)
}

type ChangeBook struct {
	BookID int `json:"book_id" validate:"required"`
}

func (cb ChangeBook) Validate(validate *validator.Validate) error { return validate.Struct(cb) }

type AssignInstructor struct {
	InstructorID int `json:"instructor_id" validate:"required"`
}

func (ai AssignInstructor) Validate(validate *validator.Validate) error { return validate.Struct(ai) }

// QueryFilter applies AND operation on its non-zero fields.
// Search, University and Topic are case-insensitive partial matches.
type QueryFilter struct {
	Search       string
	Type         Type
	Difficulty   Difficulty
	MinPrice     null.Float64
	MaxPrice     null.Float64
	University   string
	Topic        string
	InstructorID int
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.University = core.CleanString(qf.University)
	qf.Topic = core.CleanString(qf.Topic)
}

func (qf QueryFilter) Validate() error {
	if qf.Type != "" && !oneOf(string(qf.Type), Types) {
		return core.NewValidationError(nil, core.FieldError{Field: "type", Error: errInvalidType.Error()})
	}
	if qf.Difficulty != "" && !oneOf(string(qf.Difficulty), Difficulties) {
		return core.NewValidationError(nil, core.FieldError{Field: "difficulty", Error: errInvalidDifficulty.Error()})
	}
	if qf.MinPrice.Valid && qf.MaxPrice.Valid && qf.MinPrice.Float64 > qf.MaxPrice.Float64 {
		return core.NewValidationError(errors.New("min_price cannot exceed max_price"))
	}
	return nil
}

// Match reports whether c passes the filter. Used by stores that filter in Go.
func (qf QueryFilter) Match(c Course) bool {
	if qf.Search != "" && !containsFold(c.Name, qf.Search) {
		return false
	}
	if qf.Type != "" && c.Type != qf.Type {
		return false
	}
	if qf.Difficulty != "" && c.Difficulty != qf.Difficulty {
		return false
	}
	if qf.MinPrice.Valid && c.Price < qf.MinPrice.Float64 {
		return false
	}
	if qf.MaxPrice.Valid && c.Price > qf.MaxPrice.Float64 {
		return false
	}
	if qf.University != "" && !containsFold(c.University.Name, qf.University) {
		return false
	}
	if qf.Topic != "" {
		var found bool
		for _, t := range c.Topics {
			if containsFold(t, qf.Topic) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if qf.InstructorID != 0 && !c.TaughtBy(qf.InstructorID) {
		return false
	}
	return true
}
