package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/academia-labs/academia/apps/api/echo"
	"github.com/academia-labs/academia/core"
	"github.com/academia-labs/academia/core/book"
	"github.com/academia-labs/academia/core/course"
	"github.com/academia-labs/academia/core/enrollment"
	"github.com/academia-labs/academia/core/university"
	"github.com/academia-labs/academia/core/user"
	emailsvc "github.com/academia-labs/academia/services/email"
	logsvc "github.com/academia-labs/academia/services/logger"
	"github.com/academia-labs/academia/storage/cache"
	"github.com/academia-labs/academia/storage/database"
	inmemdb "github.com/academia-labs/academia/storage/database/inmem"
	sqlxrepos "github.com/academia-labs/academia/storage/database/sqlx"
)

type repositories struct {
	university university.Repository
	book       book.Repository
	course     course.Repository
	user       user.Repository
	enrollment enrollment.Repository
	close      func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	repos, err := setUpRepositories(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up course cache
	var courseCache course.Cache
	if conf.Cache.RedisURL != "" {
		rc, err := cache.NewRedis(context.Background(), conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up redis cache: %v", err), err)
		}
		defer func() { _ = rc.Close() }()
		courseCache = rc
	} else {
		courseCache = cache.NewLRU(conf.Cache.Size, conf.Cache.TTL)
	}

	// set up services
	mailSvc := emailsvc.NewService(conf, logger)
	courseSvc := course.NewService(repos.course, courseCache, mailSvc, logger)
	deps := &echoapi.Deps{
		Conf:          conf,
		Logger:        logger,
		UniversitySvc: university.NewService(repos.university),
		BookSvc:       book.NewService(repos.book),
		CourseSvc:     courseSvc,
		UserSvc:       user.NewService(repos.user),
		EnrollmentSvc: enrollment.NewService(repos.enrollment, courseSvc),
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	deps.Validate = validator.New()
	deps.Translator = core.NewTranslator()
	core.InitValidators(deps.Validate, deps.Translator)
	course.InitValidators(deps.Validate, deps.Translator)
	user.InitValidators(deps.Validate, deps.Translator)
	enrollment.InitValidators(deps.Validate, deps.Translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(deps)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpRepositories returns the in-memory store when conf.Database.InMemory, Postgres otherwise.
func setUpRepositories(conf *core.Config) (*repositories, error) {
	if conf.Database.InMemory {
		db := inmemdb.NewDB()
		return &repositories{
			university: inmemdb.NewUniversityRepository(db),
			book:       inmemdb.NewBookRepository(db),
			course:     inmemdb.NewCourseRepository(db),
			user:       inmemdb.NewUserRepository(db),
			enrollment: inmemdb.NewEnrollmentRepository(db),
			close:      func() error { return nil },
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &repositories{
		university: sqlxrepos.NewUniversityRepository(db),
		book:       sqlxrepos.NewBookRepository(db),
		course:     sqlxrepos.NewCourseRepository(db),
		user:       sqlxrepos.NewUserRepository(db),
		enrollment: sqlxrepos.NewEnrollmentRepository(db),
		close:      db.Close,
	}, nil
}
