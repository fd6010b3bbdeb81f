package course

import (
	"context"

	"github.com/pkg/errors"
)

type prerequisiteLister interface {
	PrerequisiteIDs(ctx context.Context, courseID int) ([]int, error)
}

// requires reports whether course `from` requires course `to`, directly or transitively.
// Courses in skip are treated as absent from the graph.
func requires(ctx context.Context, g prerequisiteLister, from, to int, skip ...int) (bool, error) {
	visited := make(map[int]bool, len(skip)+1)
	for _, id := range skip {
		visited[id] = true
	}
	if visited[from] {
		return false, nil
	}

	queue := []int{from}
	visited[from] = true
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		prereqs, err := g.PrerequisiteIDs(ctx, current)
		if err != nil {
			return false, errors.Wrapf(err, "listing prerequisites of course %d", current)
		}
		for _, p := range prereqs {
			if p == to {
				return true, nil
			}
			if !visited[p] {
				visited[p] = true
				queue = append(queue, p)
			}
		}
	}
	return false, nil
}

// checkPrerequisites rejects a prerequisite set that would give courseID a self-loop or close a cycle.
func checkPrerequisites(ctx context.Context, g prerequisiteLister, courseID int, prerequisiteIDs []int) error {
	for _, p := range prerequisiteIDs {
		if p == courseID {
			return ErrSelfPrerequisite
		}
		cyclic, err := requires(ctx, g, p, courseID)
		if err != nil {
			return err
		}
		if cyclic {
			return ErrCircularDependency
		}
	}
	return nil
}
