package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/coursehub-backend/internal/types"
)

func TestRecalculateCourseDuration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	course, _, lessons := env.createCourse(t, instructor, 600, 1200)

	total, err := env.reconciler.RecalculateCourseDuration(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, 1800, total)

	require.NoError(t, env.lessonRepo.DeleteByIDs(ctx, nil, []uuid.UUID{lessons[0].ID}))
	env.reconciler.LessonDeleted(ctx, course)

	stored, err := env.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{course.ID})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, 1200, stored[0].DurationSeconds)
}

func TestLessonPublishedReopensCompletedEnrollments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)
	course, module, lessons := env.createCourse(t, instructor, 600)
	env.enroll(t, learner, course)

	result, err := env.completion.MarkLessonComplete(ctx, learner.ID, types.RoleUser, lessons[0].ID)
	require.NoError(t, err)
	require.True(t, result.IsCompleted)

	// Draft lesson flips to published.
	draft := &types.Lesson{
		ID:            uuid.New(),
		ModuleID:      module.ID,
		Position:      2,
		Title:         "Draft",
		IsPublished:   false,
		VideoDuration: 300,
	}
	_, err = env.lessonRepo.Create(ctx, nil, []*types.Lesson{draft})
	require.NoError(t, err)
	draft.IsPublished = true
	require.NoError(t, env.lessonRepo.Update(ctx, nil, draft))
	env.reconciler.LessonPublished(ctx, course, draft)

	enrollment, err := env.enrollRepo.GetByUserAndCourse(ctx, nil, learner.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, types.EnrollmentStatusActive, enrollment.Status)
	require.Nil(t, enrollment.CompletedAt)
	require.Equal(t, 50, enrollment.Progress)

	notifications, err := env.notifRepo.GetByUserID(ctx, nil, learner.ID)
	require.NoError(t, err)
	found := false
	for _, notification := range notifications {
		if notification.Type == types.NotificationNewCourseContent {
			found = true
		}
	}
	require.True(t, found, "expected a new-content notification")
}

// A reopened enrollment must not keep its stale 100%; both the stored row and
// the progress report reflect the grown lesson count.
func TestNewContentRecomputesProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)
	course, module, lessons := env.createCourse(t, instructor, 600, 600)
	env.enroll(t, learner, course)

	for _, lesson := range lessons {
		_, err := env.completion.MarkLessonComplete(ctx, learner.ID, types.RoleUser, lesson.ID)
		require.NoError(t, err)
	}

	extra := &types.Lesson{
		ID:            uuid.New(),
		ModuleID:      module.ID,
		Position:      3,
		Title:         "Late Addition",
		IsPublished:   true,
		VideoDuration: 300,
	}
	_, err := env.lessonRepo.Create(ctx, nil, []*types.Lesson{extra})
	require.NoError(t, err)
	env.reconciler.LessonCreated(ctx, course, extra)

	enrollment, err := env.enrollRepo.GetByUserAndCourse(ctx, nil, learner.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, types.EnrollmentStatusActive, enrollment.Status)
	require.Equal(t, 67, enrollment.Progress)

	report, err := env.progress.GetCourseProgress(ctx, learner.ID, course.Slug)
	require.NoError(t, err)
	require.Equal(t, 3, report.TotalLessons)
	require.Equal(t, 2, report.CompletedLessons)
	require.Equal(t, 67, report.Enrollment.Progress)
}

func TestLessonDeletedDoesNotReopenCompletedEnrollments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)
	course, _, lessons := env.createCourse(t, instructor, 600, 600)
	env.enroll(t, learner, course)

	for _, lesson := range lessons {
		_, err := env.completion.MarkLessonComplete(ctx, learner.ID, types.RoleUser, lesson.ID)
		require.NoError(t, err)
	}

	require.NoError(t, env.lessonRepo.DeleteByIDs(ctx, nil, []uuid.UUID{lessons[1].ID}))
	env.reconciler.LessonDeleted(ctx, course)

	enrollment, err := env.enrollRepo.GetByUserAndCourse(ctx, nil, learner.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, types.EnrollmentStatusCompleted, enrollment.Status)
	require.NotNil(t, enrollment.CompletedAt)
}

func TestUnpublishedLessonCreateDoesNotReopen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)
	course, module, lessons := env.createCourse(t, instructor, 600)
	env.enroll(t, learner, course)

	_, err := env.completion.MarkLessonComplete(ctx, learner.ID, types.RoleUser, lessons[0].ID)
	require.NoError(t, err)

	draft := &types.Lesson{
		ID:            uuid.New(),
		ModuleID:      module.ID,
		Position:      2,
		Title:         "Draft",
		IsPublished:   false,
		VideoDuration: 300,
	}
	_, err = env.lessonRepo.Create(ctx, nil, []*types.Lesson{draft})
	require.NoError(t, err)
	env.reconciler.LessonCreated(ctx, course, draft)

	enrollment, err := env.enrollRepo.GetByUserAndCourse(ctx, nil, learner.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, types.EnrollmentStatusCompleted, enrollment.Status)

	// Duration still includes the draft.
	stored, err := env.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{course.ID})
	require.NoError(t, err)
	require.Equal(t, 900, stored[0].DurationSeconds)
}
