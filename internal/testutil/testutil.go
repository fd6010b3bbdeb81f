// Package testutil wires the in-memory stack used by the package tests.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/academia-labs/academia/core"
	"github.com/academia-labs/academia/core/book"
	"github.com/academia-labs/academia/core/course"
	"github.com/academia-labs/academia/core/enrollment"
	"github.com/academia-labs/academia/core/university"
	"github.com/academia-labs/academia/core/user"
	emailsvc "github.com/academia-labs/academia/services/email"
	logsvc "github.com/academia-labs/academia/services/logger"
	"github.com/academia-labs/academia/storage/cache"
	inmemdb "github.com/academia-labs/academia/storage/database/inmem"
)

// Password satisfies the password policy for every fixture user.
const Password = "Xq7#Zk9!Wm"

type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	DB         *inmemdb.DB
	Cache      *cache.LRU

	UserRepo       user.Repository
	CourseRepo     course.Repository
	EnrollmentRepo enrollment.Repository

	UniversitySvc *university.Service
	BookSvc       *book.Service
	CourseSvc     *course.Service
	UserSvc       *user.Service
	EnrollmentSvc *enrollment.Service
}

func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", 0), conf)
	logger.Enable(false)
	return logger
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	enrollment.InitValidators(validate, translator)
	return validate, translator
}

// NewEnv returns services backed by a fresh in-memory DB, an LRU cache and the synchronous console mailer.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	conf := core.NewTestConfig()
	logger := NewLogger(conf)
	validate, translator := NewValidator()
	db := inmemdb.NewDB()
	lru := cache.NewLRU(conf.Cache.Size, conf.Cache.TTL)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	emailsvc.ResetSentMessages()

	env := &Env{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DB:             db,
		Cache:          lru,
		UserRepo:       inmemdb.NewUserRepository(db),
		CourseRepo:     inmemdb.NewCourseRepository(db),
		EnrollmentRepo: inmemdb.NewEnrollmentRepository(db),
	}
	env.UniversitySvc = university.NewService(inmemdb.NewUniversityRepository(db))
	env.BookSvc = book.NewService(inmemdb.NewBookRepository(db))
	env.CourseSvc = course.NewService(env.CourseRepo, lru, mailSvc, logger)
	env.UserSvc = user.NewService(env.UserRepo)
	env.EnrollmentSvc = enrollment.NewService(env.EnrollmentRepo, env.CourseSvc)
	return env
}

func CreateUser(t *testing.T, repo user.Repository, name, email, role string) user.User {
	t.Helper()
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		Expertise: []string{},
		CreatedAt: time.Now().UTC(),
	}
	if role == core.RoleStudent {
		usr.DOB = null.TimeFrom(time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC))
		usr.Country = null.StringFrom("Kenya")
		usr.SkillLevel = null.StringFrom(user.SkillBeginner)
	}
	if err := usr.SetPassword(Password); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func (env *Env) CreateUniversity(t *testing.T, name string) university.University {
	t.Helper()
	uni, err := env.UniversitySvc.Create(context.Background(), university.NewUniversity{Name: name, Country: "Kenya"})
	if err != nil {
		t.Fatalf("CreateUniversity() failed: %v", err)
	}
	return uni
}

func (env *Env) CreateBook(t *testing.T, name string) book.Book {
	t.Helper()
	b, err := env.BookSvc.Create(context.Background(), book.NewBook{Name: name, Authors: []string{"D. Knuth"}})
	if err != nil {
		t.Fatalf("CreateBook() failed: %v", err)
	}
	return b
}

// Catalog holds the rows every course fixture points to.
type Catalog struct {
	University university.University
	Book       book.Book
	Instructor user.User
}

func (env *Env) CreateCatalog(t *testing.T) Catalog {
	t.Helper()
	return Catalog{
		University: env.CreateUniversity(t, "University of Nairobi"),
		Book:       env.CreateBook(t, "The Art of Computer Programming"),
		Instructor: CreateUser(t, env.UserRepo, "Ada Lovelace", "ada@academia.test", core.RoleInstructor),
	}
}

// CreateCourse creates a course of cat requiring prerequisiteIDs.
func (env *Env) CreateCourse(t *testing.T, cat Catalog, name string, prerequisiteIDs ...int) course.Course {
	t.Helper()
	nc := course.NewCourse{
		Name:            name,
		Price:           100,
		Duration:        12,
		Type:            course.TypeCertificate,
		Difficulty:      course.DifficultyBeginner,
		UniversityID:    cat.University.ID,
		BookID:          cat.Book.ID,
		InstructorID:    cat.Instructor.ID,
		TopicNames:      []string{"Computing"},
		PrerequisiteIDs: prerequisiteIDs,
	}
	if err := nc.Validate(env.Validate); err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	c, err := env.CourseSvc.Create(context.Background(), nc)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}
