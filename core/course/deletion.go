package course

import "fmt"

type DeletionStatus string

const (
	StatusIdle                DeletionStatus = "idle"
	StatusPendingConfirmation DeletionStatus = "pending_confirmation"
	StatusDeleted             DeletionStatus = "deleted"
	StatusCancelled           DeletionStatus = "cancelled"
)

type DeleteRequest struct {
	CourseID    int
	Force       bool
	ReplaceWith *int
}

func (r DeleteRequest) replacing() bool { return r.ReplaceWith != nil }

// Deletion is the outcome of a DeleteRequest.
//
// A Deletion in StatusPendingConfirmation lists the dependents that blocked it; the caller either
// re-submits the request with Force (and optionally ReplaceWith) or cancels it.
type Deletion struct {
	Status      DeletionStatus `json:"status"`
	CourseID    int            `json:"course_id"`
	Dependents  []Ref          `json:"dependents,omitempty"`
	Detached    []int          `json:"detached"`
	Rewired     []int          `json:"rewired"`
	ReplaceWith *int           `json:"replace_with,omitempty"`
}

// Cancel resolves a pending deletion without touching the store.
func (d Deletion) Cancel() (Deletion, error) {
	if d.Status != StatusPendingConfirmation {
		return d, fmt.Errorf("cannot cancel a deletion in status %q", d.Status)
	}
	return Deletion{Status: StatusCancelled, CourseID: d.CourseID, Dependents: d.Dependents}, nil
}

// PlanDeletion decides what deleting req.CourseID does to the prerequisite graph, without touching the store.
//
// dependents are the courses requiring the target. requiresReplacement holds the dependents that already
// require req.ReplaceWith (or are the replacement itself); their edge to the target is dropped instead of
// rewired so that no duplicate edge or self-loop appears.
//
// The returned Deletion is either StatusPendingConfirmation (with a *DependentsError), or
// StatusDeleted describing the edge changes to apply.
func PlanDeletion(req DeleteRequest, target Ref, dependents []Ref, requiresReplacement map[int]bool) (Deletion, error) {
	if req.replacing() && *req.ReplaceWith == req.CourseID {
		return Deletion{Status: StatusIdle, CourseID: req.CourseID}, &InvalidReplacementError{
			CourseID:    req.CourseID,
			ReplaceWith: *req.ReplaceWith,
			Reason:      "a course cannot replace itself",
		}
	}

	if len(dependents) > 0 && !req.Force {
		return Deletion{
				Status:     StatusPendingConfirmation,
				CourseID:   req.CourseID,
				Dependents: dependents,
			}, &DependentsError{
				Course:     target,
				Dependents: dependents,
			}
	}

	d := Deletion{
		Status:   StatusDeleted,
		CourseID: req.CourseID,
		Detached: make([]int, 0, len(dependents)),
		Rewired:  make([]int, 0, len(dependents)),
	}
	if req.replacing() {
		r := *req.ReplaceWith
		d.ReplaceWith = &r
	}
	for _, dep := range dependents {
		if req.replacing() && !requiresReplacement[dep.ID] && dep.ID != *req.ReplaceWith {
			d.Rewired = append(d.Rewired, dep.ID)
		} else {
			d.Detached = append(d.Detached, dep.ID)
		}
	}
	return d, nil
}
