package services

import (
	"testing"

	"github.com/google/uuid"

	"github.com/coursehub/coursehub-backend/internal/types"
)

func TestComputeProgress(t *testing.T) {
	cases := []struct {
		name      string
		completed int
		total     int
		want      int
	}{
		{name: "empty_course_is_complete", completed: 0, total: 0, want: 100},
		{name: "nothing_done", completed: 0, total: 10, want: 0},
		{name: "half", completed: 5, total: 10, want: 50},
		{name: "two_thirds_rounds_up", completed: 2, total: 3, want: 67},
		{name: "one_third_rounds_down", completed: 1, total: 3, want: 33},
		{name: "all_done", completed: 10, total: 10, want: 100},
		{name: "overflow_clamps", completed: 12, total: 10, want: 100},
		{name: "negative_total_is_complete", completed: 0, total: -1, want: 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeProgress(tc.completed, tc.total)
			if got != tc.want {
				t.Fatalf("ComputeProgress(%d, %d)=%d, want %d", tc.completed, tc.total, got, tc.want)
			}
		})
	}
}

func TestComputeModuleBreakdownEmptyModule(t *testing.T) {
	module := &types.CourseModule{ID: uuid.New(), Title: "Empty"}
	breakdown := ComputeModuleBreakdown(
		[]*types.CourseModule{module},
		map[uuid.UUID][]*types.Lesson{},
		map[uuid.UUID]bool{},
	)
	if len(breakdown) != 1 {
		t.Fatalf("expected 1 module, got %d", len(breakdown))
	}
	if breakdown[0].Percent != 0 {
		t.Fatalf("empty module percent=%d, want 0", breakdown[0].Percent)
	}
}

func TestComputeModuleBreakdownCounts(t *testing.T) {
	module := &types.CourseModule{ID: uuid.New(), Title: "Basics"}
	l1 := &types.Lesson{ID: uuid.New(), Title: "One"}
	l2 := &types.Lesson{ID: uuid.New(), Title: "Two"}
	l3 := &types.Lesson{ID: uuid.New(), Title: "Three"}

	breakdown := ComputeModuleBreakdown(
		[]*types.CourseModule{module},
		map[uuid.UUID][]*types.Lesson{module.ID: {l1, l2, l3}},
		map[uuid.UUID]bool{l1.ID: true, l2.ID: true},
	)
	mp := breakdown[0]
	if mp.CompletedLessons != 2 || mp.TotalLessons != 3 {
		t.Fatalf("got %d/%d, want 2/3", mp.CompletedLessons, mp.TotalLessons)
	}
	if mp.Percent != 67 {
		t.Fatalf("percent=%d, want 67", mp.Percent)
	}
	if !mp.Lessons[0].IsCompleted || mp.Lessons[2].IsCompleted {
		t.Fatalf("per-lesson flags wrong: %+v", mp.Lessons)
	}
}
