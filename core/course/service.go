package course

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia-labs/academia/core"
)

var (
	ErrPrerequisiteNotFound = core.NewNotFoundError("prerequisite course")
	ErrReplacementNotFound  = core.NewNotFoundError("replacement course")

	// orderingFields maps the accepted `ordering` fields to their column names.
	orderingFields = map[string]string{
		"id":         "id",
		"name":       "name",
		"price":      "price",
		"duration":   "duration",
		"type":       "type",
		"difficulty": "difficulty",
		"created_at": "created_at",
	}
)

type Service struct {
	repo    Repository
	cache   Cache
	mailSvc core.EmailService
	logger  core.Logger
}

// NewService returns a course Service. cache and mailSvc may be nil.
func NewService(repo Repository, cache Cache, mailSvc core.EmailService, logger core.Logger) *Service {
	if cache == nil {
		cache = nopCache{}
	}
	return &Service{repo: repo, cache: cache, mailSvc: mailSvc, logger: logger}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	var created Course
	err := svc.repo.WithTx(ctx, func(repo Repository) error {
		uni, err := repo.GetUniversityRef(ctx, nc.UniversityID)
		if err != nil {
			return errors.Wrap(err, "getting university")
		}
		book, err := repo.GetBookRef(ctx, nc.BookID)
		if err != nil {
			return errors.Wrap(err, "getting book")
		}
		instr, err := repo.GetInstructor(ctx, nc.InstructorID)
		if err != nil {
			return errors.Wrap(err, "getting instructor")
		}
		prereqs, err := svc.prerequisiteRefs(ctx, repo, nc.PrerequisiteIDs)
		if err != nil {
			return err
		}

		created, err = repo.CreateCourse(ctx, Course{
			Name:          nc.Name,
			Type:          nc.Type,
			Difficulty:    nc.Difficulty,
			Price:         nc.Price,
			Duration:      nc.Duration,
			NotesURL:      null.NewString(nc.NotesURL, nc.NotesURL != ""),
			VideoURL:      null.NewString(nc.VideoURL, nc.VideoURL != ""),
			University:    uni,
			Book:          book,
			Instructors:   []Instructor{instr},
			Topics:        nc.TopicNames,
			Prerequisites: prereqs,
			CreatedAt:     time.Now().UTC(),
		})
		return errors.Wrap(err, "creating course")
	})
	if err != nil {
		return Course{}, err
	}

	svc.invalidate(ctx, created.PrerequisiteIDs()...)
	return svc.Get(ctx, created.ID)
}

func (svc *Service) prerequisiteRefs(ctx context.Context, repo Repository, ids []int) ([]Ref, error) {
	refs := make([]Ref, 0, len(ids))
	for _, id := range ids {
		ref, err := repo.GetCourseRef(ctx, id)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				return nil, errors.Wrapf(ErrPrerequisiteNotFound, "course %d", id)
			}
			return nil, errors.Wrap(err, "getting prerequisite")
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (svc *Service) Get(ctx context.Context, id int) (Course, error) {
	if c, ok, err := svc.cache.Get(ctx, id); err != nil {
		svc.logger.Warn("reading course cache", err)
	} else if ok {
		return c, nil
	}

	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, errors.Wrap(err, "getting course")
	}
	if err = svc.cache.Set(ctx, c); err != nil {
		svc.logger.Warn("writing course cache", err)
	}
	return c, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Course, error) {
	filter.Clean()
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	courses, err := svc.repo.QueryCourses(ctx, filter, core.FilterOrderings(orderings, orderingFields)...)
	return courses, errors.Wrap(err, "querying courses")
}

func (svc *Service) Update(ctx context.Context, id int, uc UpdateCourse) (Course, error) {
	var before Course
	err := svc.repo.WithTx(ctx, func(repo Repository) error {
		c, err := repo.GetCourse(ctx, id)
		if err != nil {
			return errors.Wrap(err, "getting course")
		}
		before = c

		uc.apply(&c)
		if uc.UniversityID != nil {
			if c.University, err = repo.GetUniversityRef(ctx, *uc.UniversityID); err != nil {
				return errors.Wrap(err, "getting university")
			}
		}
		if uc.BookID != nil {
			if c.Book, err = repo.GetBookRef(ctx, *uc.BookID); err != nil {
				return errors.Wrap(err, "getting book")
			}
		}
		if err = repo.UpdateCourse(ctx, c); err != nil {
			return errors.Wrap(err, "updating course")
		}

		if uc.TopicNames != nil {
			if err = repo.SetTopics(ctx, id, uc.TopicNames); err != nil {
				return errors.Wrap(err, "setting topics")
			}
		}

		if uc.PrerequisiteIDs != nil {
			if err = checkPrerequisites(ctx, repo, id, uc.PrerequisiteIDs); err != nil {
				return err
			}
			if _, err = svc.prerequisiteRefs(ctx, repo, uc.PrerequisiteIDs); err != nil {
				return err
			}
			if err = repo.SetPrerequisites(ctx, id, uc.PrerequisiteIDs); err != nil {
				return errors.Wrap(err, "setting prerequisites")
			}
		}
		return nil
	})
	if err != nil {
		return Course{}, err
	}

	affected := append([]int{id}, before.PrerequisiteIDs()...)
	affected = append(affected, before.DependentIDs()...)
	affected = append(affected, uc.PrerequisiteIDs...)
	svc.invalidate(ctx, affected...)
	return svc.Get(ctx, id)
}

// DependentsOf lists the courses requiring course id.
func (svc *Service) DependentsOf(ctx context.Context, id int) ([]Ref, error) {
	if _, err := svc.repo.GetCourseRef(ctx, id); err != nil {
		return nil, errors.Wrap(err, "getting course")
	}
	deps, err := svc.repo.DependentsOf(ctx, id)
	return deps, errors.Wrap(err, "listing dependents")
}

// Delete runs the deletion workflow for req in one transaction.
//
// With dependents and no Force it mutates nothing and returns a pending Deletion along with a
// *DependentsError. Forced, every dependent edge to the course is dropped, or moved to
// req.ReplaceWith when given. The replacement must exist, differ from the course and must not
// itself require any rewired dependent.
func (svc *Service) Delete(ctx context.Context, sess core.Session, req DeleteRequest) (Deletion, error) {
	var (
		target      Course
		replacement Ref
		deletion    Deletion
	)
	err := svc.repo.WithTx(ctx, func(repo Repository) error {
		var err error
		if target, err = repo.GetCourse(ctx, req.CourseID); err != nil {
			return errors.Wrap(err, "getting course")
		}

		dependents, err := repo.DependentsOf(ctx, req.CourseID)
		if err != nil {
			return errors.Wrap(err, "listing dependents")
		}

		requiresReplacement := make(map[int]bool)
		if req.replacing() && *req.ReplaceWith != req.CourseID {
			if replacement, err = repo.GetCourseRef(ctx, *req.ReplaceWith); err != nil {
				if errors.Cause(err) == ErrNotFound {
					return errors.Wrapf(ErrReplacementNotFound, "course %d", *req.ReplaceWith)
				}
				return errors.Wrap(err, "getting replacement course")
			}
			for _, dep := range dependents {
				has, err := repo.HasEdge(ctx, dep.ID, replacement.ID)
				if err != nil {
					return errors.Wrap(err, "checking prerequisite edge")
				}
				requiresReplacement[dep.ID] = has
			}
		}

		if deletion, err = PlanDeletion(req, target.Ref(), dependents, requiresReplacement); err != nil {
			return err
		}

		for _, depID := range deletion.Rewired {
			cyclic, err := requires(ctx, repo, replacement.ID, depID, req.CourseID)
			if err != nil {
				return err
			}
			if cyclic {
				return &InvalidReplacementError{
					CourseID:    req.CourseID,
					ReplaceWith: replacement.ID,
					Reason:      fmt.Sprintf("%q already requires dependent course %d", replacement.Name, depID),
				}
			}
		}

		for _, depID := range deletion.Detached {
			if err = repo.RemoveEdge(ctx, depID, req.CourseID); err != nil {
				return errors.Wrap(err, "removing prerequisite edge")
			}
		}
		for _, depID := range deletion.Rewired {
			if err = repo.ReplaceEdge(ctx, depID, req.CourseID, replacement.ID); err != nil {
				return errors.Wrap(err, "replacing prerequisite edge")
			}
		}
		return errors.Wrap(repo.DeleteCourse(ctx, req.CourseID), "deleting course")
	})
	if err != nil {
		if deletion.Status == StatusPendingConfirmation {
			return deletion, err
		}
		return Deletion{Status: StatusIdle, CourseID: req.CourseID}, err
	}

	affected := append([]int{target.ID, replacement.ID}, target.PrerequisiteIDs()...)
	affected = append(affected, deletion.Detached...)
	affected = append(affected, deletion.Rewired...)
	svc.invalidate(ctx, affected...)

	svc.logger.Info(
		fmt.Sprintf("course %d deleted (detached: %v, rewired: %v)", target.ID, deletion.Detached, deletion.Rewired),
		sess,
	)
	svc.notifyDependents(ctx, target, replacement, deletion)
	return deletion, nil
}

// notifyDependents emails the instructors of every course that lost its prerequisite edge to target.
func (svc *Service) notifyDependents(ctx context.Context, target Course, replacement Ref, d Deletion) {
	if svc.mailSvc == nil {
		return
	}

	rewired := make(map[int]bool, len(d.Rewired))
	for _, id := range d.Rewired {
		rewired[id] = true
	}

	msgs := make([]*core.EmailMessage, 0)
	for _, id := range append(append([]int{}, d.Detached...), d.Rewired...) {
		dep, err := svc.repo.GetCourse(ctx, id)
		if err != nil {
			svc.logger.Warn("loading dependent course for notification", err)
			continue
		}

		var body string
		if rewired[id] {
			body = fmt.Sprintf(
				"%q, a prerequisite of your course %q, was removed from the catalogue.\n\n"+
					"%q now requires %q in its place.",
				target.Name, dep.Name, dep.Name, replacement.Name,
			)
		} else {
			body = fmt.Sprintf(
				"%q, a prerequisite of your course %q, was removed from the catalogue.\n\n"+
					"%q no longer requires it.",
				target.Name, dep.Name, dep.Name,
			)
		}

		for _, instr := range dep.Instructors {
			if instr.Email == "" {
				continue
			}
			msgs = append(msgs, &core.EmailMessage{
				To:      []mail.Address{{Name: instr.Name, Address: instr.Email}},
				Subject: "Prerequisites of " + strconv.Quote(dep.Name) + " changed",
				BodyStr: body,
			})
		}
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}

func (svc *Service) AddInstructor(ctx context.Context, courseID, instructorID int) (Course, error) {
	err := svc.repo.WithTx(ctx, func(repo Repository) error {
		if _, err := repo.GetCourseRef(ctx, courseID); err != nil {
			return errors.Wrap(err, "getting course")
		}
		if _, err := repo.GetInstructor(ctx, instructorID); err != nil {
			return errors.Wrap(err, "getting instructor")
		}
		teaches, err := repo.Teaches(ctx, instructorID, courseID)
		if err != nil {
			return errors.Wrap(err, "checking teaching assignment")
		}
		if teaches {
			return ErrAlreadyAssigned
		}
		return errors.Wrap(repo.AddInstructor(ctx, courseID, instructorID), "adding instructor")
	})
	if err != nil {
		return Course{}, err
	}
	svc.invalidate(ctx, courseID)
	return svc.Get(ctx, courseID)
}

func (svc *Service) Topics(ctx context.Context) ([]Topic, error) {
	topics, err := svc.repo.QueryTopics(ctx)
	return topics, errors.Wrap(err, "querying topics")
}

// Teaching lists the courses taught by the session's instructor with their enrollment counts.
func (svc *Service) Teaching(ctx context.Context, sess core.Session) ([]TaughtCourse, error) {
	courses, err := svc.repo.QueryCourses(ctx, QueryFilter{InstructorID: sess.UserID}, core.DBOrdering{Field: "name", Ascending: true})
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	ids := make([]int, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	counts, err := svc.repo.CountEnrollments(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "counting enrollments")
	}

	taught := make([]TaughtCourse, 0, len(courses))
	for _, c := range courses {
		taught = append(taught, TaughtCourse{Course: c, EnrolledCount: counts[c.ID]})
	}
	return taught, nil
}

// CheckTeaches returns ErrNotTeaching unless the session's instructor teaches course courseID.
func (svc *Service) CheckTeaches(ctx context.Context, sess core.Session, courseID int) error {
	return checkTeaches(ctx, svc.repo, sess, courseID)
}

func checkTeaches(ctx context.Context, repo Repository, sess core.Session, courseID int) error {
	if _, err := repo.GetCourseRef(ctx, courseID); err != nil {
		return errors.Wrap(err, "getting course")
	}
	teaches, err := repo.Teaches(ctx, sess.UserID, courseID)
	if err != nil {
		return errors.Wrap(err, "checking teaching assignment")
	}
	if !teaches {
		return ErrNotTeaching
	}
	return nil
}

func (svc *Service) UpdateContent(ctx context.Context, sess core.Session, courseID int, cu ContentUpdate) (Course, error) {
	err := svc.repo.WithTx(ctx, func(repo Repository) error {
		if err := checkTeaches(ctx, repo, sess, courseID); err != nil {
			return err
		}
		c, err := repo.GetCourse(ctx, courseID)
		if err != nil {
			return errors.Wrap(err, "getting course")
		}
		UpdateCourse{NotesURL: cu.NotesURL, VideoURL: cu.VideoURL}.apply(&c)
		if err = repo.UpdateCourse(ctx, c); err != nil {
			return errors.Wrap(err, "updating course")
		}
		if len(cu.TopicNames) > 0 {
			return errors.Wrap(repo.AddTopics(ctx, courseID, cu.TopicNames), "adding topics")
		}
		return nil
	})
	if err != nil {
		return Course{}, err
	}
	svc.invalidate(ctx, courseID)
	return svc.Get(ctx, courseID)
}

func (svc *Service) ChangeBook(ctx context.Context, sess core.Session, courseID int, cb ChangeBook) (Course, error) {
	err := svc.repo.WithTx(ctx, func(repo Repository) error {
		if err := checkTeaches(ctx, repo, sess, courseID); err != nil {
			return err
		}
		c, err := repo.GetCourse(ctx, courseID)
		if err != nil {
			return errors.Wrap(err, "getting course")
		}
		if c.Book, err = repo.GetBookRef(ctx, cb.BookID); err != nil {
			return errors.Wrap(err, "getting book")
		}
		return errors.Wrap(repo.UpdateCourse(ctx, c), "updating course")
	})
	if err != nil {
		return Course{}, err
	}
	svc.invalidate(ctx, courseID)
	return svc.Get(ctx, courseID)
}

// ForgetAll drops every cached course, e.g. after an instructor account was removed.
func (svc *Service) ForgetAll(ctx context.Context) {
	if err := svc.cache.Purge(ctx); err != nil {
		svc.logger.Warn("purging course cache", err)
	}
}

func (svc *Service) invalidate(ctx context.Context, ids ...int) {
	ids = core.UniqueInts(ids)
	keep := ids[:0]
	for _, id := range ids {
		if id > 0 {
			keep = append(keep, id)
		}
	}
	if len(keep) == 0 {
		return
	}
	if err := svc.cache.Invalidate(ctx, keep...); err != nil {
		svc.logger.Warn("invalidating course cache", err)
	}
}
