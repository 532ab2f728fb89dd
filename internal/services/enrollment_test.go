package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/coursehub-backend/internal/pkg/apperr"
	"github.com/coursehub/coursehub-backend/internal/types"
)

func TestEnrollBySlugAndByID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)
	other := env.createUser(t, "Olli Other", types.RoleUser)
	course, _, _ := env.createCourse(t, instructor, 600)

	enrollment, err := env.enrollments.Enroll(ctx, learner.ID, course.Slug)
	require.NoError(t, err)
	require.Equal(t, types.EnrollmentStatusActive, enrollment.Status)
	require.Equal(t, 0, enrollment.Progress)

	_, err = env.enrollments.Enroll(ctx, other.ID, course.ID.String())
	require.NoError(t, err)

	stored, err := env.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{course.ID})
	require.NoError(t, err)
	require.Equal(t, 2, stored[0].EnrollmentCount)
}

func TestEnrollTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)
	course, _, _ := env.createCourse(t, instructor, 600)

	_, err := env.enrollments.Enroll(ctx, learner.ID, course.Slug)
	require.NoError(t, err)

	_, err = env.enrollments.Enroll(ctx, learner.ID, course.Slug)
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestEnrollRejectsUnpublishedAndPaidCourses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)

	draft := &types.Course{
		ID:           uuid.New(),
		InstructorID: instructor.ID,
		Title:        "Draft Course",
		Slug:         "draft-course",
		IsPublished:  false,
		IsFree:       true,
	}
	_, err := env.courseRepo.Create(ctx, nil, []*types.Course{draft})
	require.NoError(t, err)

	_, err = env.enrollments.Enroll(ctx, learner.ID, draft.Slug)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	paid := &types.Course{
		ID:           uuid.New(),
		InstructorID: instructor.ID,
		Title:        "Paid Course",
		Slug:         "paid-course",
		IsPublished:  true,
		IsFree:       false,
		PriceCents:   4900,
	}
	_, err = env.courseRepo.Create(ctx, nil, []*types.Course{paid})
	require.NoError(t, err)

	_, err = env.enrollments.Enroll(ctx, learner.ID, paid.Slug)
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestGetCourseProgressReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)
	course, _, lessons := env.createCourse(t, instructor, 600, 600, 600)
	env.enroll(t, learner, course)

	_, err := env.completion.MarkLessonComplete(ctx, learner.ID, types.RoleUser, lessons[0].ID)
	require.NoError(t, err)
	_, err = env.completion.MarkLessonComplete(ctx, learner.ID, types.RoleUser, lessons[1].ID)
	require.NoError(t, err)

	report, err := env.progress.GetCourseProgress(ctx, learner.ID, course.Slug)
	require.NoError(t, err)
	require.Equal(t, 3, report.TotalLessons)
	require.Equal(t, 2, report.CompletedLessons)
	require.Equal(t, 67, report.Enrollment.Progress)
	require.Len(t, report.ModuleProgress, 1)
	require.Equal(t, 67, report.ModuleProgress[0].Percent)
}
