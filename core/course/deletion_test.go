package course_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academia-labs/academia/core/course"
)

func intPtr(i int) *int { return &i }

func TestPlanDeletion(t *testing.T) {
	target := course.Ref{ID: 1, Name: "Algorithms"}
	advanced := course.Ref{ID: 2, Name: "Advanced Algorithms"}
	graphs := course.Ref{ID: 4, Name: "Graph Theory"}

	tests := []struct {
		name                string
		req                 course.DeleteRequest
		dependents          []course.Ref
		requiresReplacement map[int]bool
		wantStatus          course.DeletionStatus
		wantDetached        []int
		wantRewired         []int
		wantErr             func(t *testing.T, err error)
	}{
		{
			name:         "no dependents",
			req:          course.DeleteRequest{CourseID: 1},
			wantStatus:   course.StatusDeleted,
			wantDetached: []int{},
			wantRewired:  []int{},
		},
		{
			name:       "dependents without force",
			req:        course.DeleteRequest{CourseID: 1},
			dependents: []course.Ref{advanced, graphs},
			wantStatus: course.StatusPendingConfirmation,
			wantErr: func(t *testing.T, err error) {
				depErr, ok := course.HasDependents(err)
				require.True(t, ok, "want a DependentsError, got %v", err)
				assert.Equal(t, []string{"Advanced Algorithms", "Graph Theory"}, depErr.DependentNames())
				assert.Equal(t, target, depErr.Course)
			},
		},
		{
			name:       "dependents with a replacement but without force",
			req:        course.DeleteRequest{CourseID: 1, ReplaceWith: intPtr(3)},
			dependents: []course.Ref{advanced},
			wantStatus: course.StatusPendingConfirmation,
			wantErr: func(t *testing.T, err error) {
				_, ok := course.HasDependents(err)
				assert.True(t, ok)
			},
		},
		{
			name:         "forced without replacement",
			req:          course.DeleteRequest{CourseID: 1, Force: true},
			dependents:   []course.Ref{advanced, graphs},
			wantStatus:   course.StatusDeleted,
			wantDetached: []int{2, 4},
			wantRewired:  []int{},
		},
		{
			name:         "forced with replacement",
			req:          course.DeleteRequest{CourseID: 1, Force: true, ReplaceWith: intPtr(3)},
			dependents:   []course.Ref{advanced, graphs},
			wantStatus:   course.StatusDeleted,
			wantDetached: []int{},
			wantRewired:  []int{2, 4},
		},
		{
			name:                "dependent already requiring the replacement",
			req:                 course.DeleteRequest{CourseID: 1, Force: true, ReplaceWith: intPtr(3)},
			dependents:          []course.Ref{advanced, graphs},
			requiresReplacement: map[int]bool{4: true},
			wantStatus:          course.StatusDeleted,
			wantDetached:        []int{4},
			wantRewired:         []int{2},
		},
		{
			name:         "replacement is a dependent",
			req:          course.DeleteRequest{CourseID: 1, Force: true, ReplaceWith: intPtr(2)},
			dependents:   []course.Ref{advanced, graphs},
			wantStatus:   course.StatusDeleted,
			wantDetached: []int{2},
			wantRewired:  []int{4},
		},
		{
			name:       "replacement is the course itself",
			req:        course.DeleteRequest{CourseID: 1, Force: true, ReplaceWith: intPtr(1)},
			dependents: []course.Ref{advanced},
			wantStatus: course.StatusIdle,
			wantErr: func(t *testing.T, err error) {
				assert.True(t, course.IsInvalidReplacement(err), "want an InvalidReplacementError, got %v", err)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, err := course.PlanDeletion(tc.req, target, tc.dependents, tc.requiresReplacement)
			if tc.wantErr != nil {
				require.Error(t, err)
				tc.wantErr(t, err)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tc.wantStatus, d.Status)
			assert.Equal(t, tc.req.CourseID, d.CourseID)
			if tc.wantStatus == course.StatusDeleted {
				assert.Equal(t, tc.wantDetached, d.Detached)
				assert.Equal(t, tc.wantRewired, d.Rewired)
			}
		})
	}
}

func TestPlanDeletion_pure(t *testing.T) {
	dependents := []course.Ref{{ID: 2, Name: "Advanced Algorithms"}}
	req := course.DeleteRequest{CourseID: 1, Force: true, ReplaceWith: intPtr(3)}

	first, err := course.PlanDeletion(req, course.Ref{ID: 1, Name: "Algorithms"}, dependents, nil)
	require.NoError(t, err)
	second, err := course.PlanDeletion(req, course.Ref{ID: 1, Name: "Algorithms"}, dependents, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []course.Ref{{ID: 2, Name: "Advanced Algorithms"}}, dependents)
	require.NotNil(t, first.ReplaceWith)
	assert.Equal(t, 3, *first.ReplaceWith)

	*req.ReplaceWith = 5
	assert.Equal(t, 3, *first.ReplaceWith)
}

func TestDeletion_Cancel(t *testing.T) {
	pending, err := course.PlanDeletion(
		course.DeleteRequest{CourseID: 1},
		course.Ref{ID: 1, Name: "Algorithms"},
		[]course.Ref{{ID: 2, Name: "Advanced Algorithms"}},
		nil,
	)
	require.Error(t, err)

	cancelled, err := pending.Cancel()
	require.NoError(t, err)
	assert.Equal(t, course.StatusCancelled, cancelled.Status)
	assert.Equal(t, pending.Dependents, cancelled.Dependents)

	_, err = cancelled.Cancel()
	assert.Error(t, err)

	_, err = course.Deletion{Status: course.StatusDeleted, CourseID: 1}.Cancel()
	assert.Error(t, err)
}

func TestDependentsError_Error(t *testing.T) {
	err := &course.DependentsError{
		Course: course.Ref{ID: 1, Name: "Algorithms"},
		Dependents: []course.Ref{
			{ID: 2, Name: "Advanced Algorithms"},
			{ID: 4, Name: "Graph Theory"},
		},
	}
	want := "cannot delete: this course is a prerequisite for: Advanced Algorithms, Graph Theory. Use force deletion to proceed"
	assert.Equal(t, want, err.Error())
}
