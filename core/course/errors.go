package course

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/academia-labs/academia/core"
)

// Any other error returned by a Repository is a storage failure: services wrap and surface it as-is,
// without retrying.
var (
	ErrNotFound           = core.NewNotFoundError("course")
	ErrUniversityNotFound = core.NewNotFoundError("university")
	ErrBookNotFound       = core.NewNotFoundError("book")
	ErrInstructorNotFound = core.NewNotFoundError("instructor")

	ErrSelfPrerequisite = core.NewValidationError(
		errors.New("a course cannot be its own prerequisite"),
		core.FieldError{Field: "prerequisite_ids", Error: "a course cannot be its own prerequisite"},
	)
	ErrCircularDependency = core.NewValidationError(
		errors.New("circular prerequisite dependency detected"),
		core.FieldError{Field: "prerequisite_ids", Error: "circular prerequisite dependency detected"},
	)

	ErrAlreadyAssigned = core.NewConflictError("instructor already assigned to this course")
	ErrNotTeaching     = core.NewPermissionError("you do not teach this course")
)

// DependentsError is returned when deleting a course that other courses still require and force was not set.
// It is the signal to ask for confirmation, not a terminal failure.
type DependentsError struct {
	Course     Ref
	Dependents []Ref
}

func (e DependentsError) Error() string {
	return fmt.Sprintf(
		"cannot delete: this course is a prerequisite for: %s. Use force deletion to proceed",
		strings.Join(e.DependentNames(), ", "),
	)
}

func (e DependentsError) DependentNames() []string {
	names := make([]string, 0, len(e.Dependents))
	for _, d := range e.Dependents {
		names = append(names, d.Name)
	}
	return names
}

// InvalidReplacementError is returned when the replacement for a deleted course cannot take its place.
type InvalidReplacementError struct {
	CourseID    int
	ReplaceWith int
	Reason      string
}

func (e InvalidReplacementError) Error() string {
	return "invalid replacement: " + e.Reason
}

// IsInvalidReplacement reports whether err was caused by an InvalidReplacementError.
func IsInvalidReplacement(err error) bool {
	_, ok := errors.Cause(err).(*InvalidReplacementError)
	return ok
}

// IsNotFound reports whether err was caused by a missing course or catalog entity.
func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*core.NotFoundError)
	return ok
}

// HasDependents reports whether err signals a deletion that needs confirmation.
func HasDependents(err error) (*DependentsError, bool) {
	depErr, ok := errors.Cause(err).(*DependentsError)
	return depErr, ok
}
