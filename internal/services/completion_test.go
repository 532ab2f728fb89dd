package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/coursehub-backend/internal/pkg/apperr"
	"github.com/coursehub/coursehub-backend/internal/types"
)

func TestMarkLessonCompleteProgression(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)
	course, _, lessons := env.createCourse(t, instructor, 600, 600)
	env.enroll(t, learner, course)

	result, err := env.completion.MarkLessonComplete(ctx, learner.ID, types.RoleUser, lessons[0].ID)
	require.NoError(t, err)
	require.Equal(t, 50, result.Progress)
	require.Equal(t, 1, result.CompletedLessons)
	require.Equal(t, 2, result.TotalLessons)
	require.False(t, result.IsCompleted)
	require.False(t, result.CertificateIssued)

	result, err = env.completion.MarkLessonComplete(ctx, learner.ID, types.RoleUser, lessons[1].ID)
	require.NoError(t, err)
	require.Equal(t, 100, result.Progress)
	require.True(t, result.IsCompleted)
	require.True(t, result.CertificateIssued)

	enrollment, err := env.enrollRepo.GetByUserAndCourse(ctx, nil, learner.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, types.EnrollmentStatusCompleted, enrollment.Status)
	require.NotNil(t, enrollment.CompletedAt)

	cert, err := env.certRepo.GetByUserAndCourse(ctx, nil, learner.ID, course.ID)
	require.NoError(t, err)
	require.NotNil(t, cert)
	require.Regexp(t, `^CERT-\d{6}-[A-Z0-9]{8}$`, cert.CertificateNumber)
}

func TestMarkLessonCompleteIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)
	course, _, lessons := env.createCourse(t, instructor, 600, 600)
	env.enroll(t, learner, course)

	first, err := env.completion.MarkLessonComplete(ctx, learner.ID, types.RoleUser, lessons[0].ID)
	require.NoError(t, err)
	require.False(t, first.AlreadyCompleted)

	second, err := env.completion.MarkLessonComplete(ctx, learner.ID, types.RoleUser, lessons[0].ID)
	require.NoError(t, err)
	require.True(t, second.AlreadyCompleted)
	require.Equal(t, first.Progress, second.Progress)
	require.Equal(t, first.CompletedLessons, second.CompletedLessons)

	count, err := env.doneRepo.CountByEnrollmentID(ctx, nil, mustEnrollment(t, env, learner.ID, course.ID).ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

// Retrying the final lesson of a finished course must report the stored
// completed state, not flip the enrollment back to active.
func TestRetryFinalLessonReportsCompleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)
	course, _, lessons := env.createCourse(t, instructor, 600)
	env.enroll(t, learner, course)

	first, err := env.completion.MarkLessonComplete(ctx, learner.ID, types.RoleUser, lessons[0].ID)
	require.NoError(t, err)
	require.True(t, first.IsCompleted)

	retry, err := env.completion.MarkLessonComplete(ctx, learner.ID, types.RoleUser, lessons[0].ID)
	require.NoError(t, err)
	require.True(t, retry.AlreadyCompleted)
	require.True(t, retry.IsCompleted)
	require.Equal(t, 100, retry.Progress)

	enrollment := mustEnrollment(t, env, learner.ID, course.ID)
	require.Equal(t, types.EnrollmentStatusCompleted, enrollment.Status)
	require.NotNil(t, enrollment.CompletedAt)
}

func TestMarkLessonCompleteRequiresEnrollment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	stranger := env.createUser(t, "Sam Stranger", types.RoleUser)
	_, _, lessons := env.createCourse(t, instructor, 600)

	_, err := env.completion.MarkLessonComplete(ctx, stranger.ID, types.RoleUser, lessons[0].ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestMarkLessonCompleteAdminAutoEnrolls(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	admin := env.createUser(t, "Amy Admin", types.RoleAdmin)
	course, _, lessons := env.createCourse(t, instructor, 600, 600)

	result, err := env.completion.MarkLessonComplete(ctx, admin.ID, types.RoleAdmin, lessons[0].ID)
	require.NoError(t, err)
	require.Equal(t, 50, result.Progress)

	enrollment, err := env.enrollRepo.GetByUserAndCourse(ctx, nil, admin.ID, course.ID)
	require.NoError(t, err)
	require.NotNil(t, enrollment)
	require.Equal(t, types.EnrollmentStatusActive, enrollment.Status)
}

func TestMarkLessonCompleteExpiredEnrollmentRefused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)
	course, _, lessons := env.createCourse(t, instructor, 600)
	enrollment := env.enroll(t, learner, course)

	enrollment.Status = types.EnrollmentStatusExpired
	require.NoError(t, env.enrollRepo.Update(ctx, nil, enrollment))

	_, err := env.completion.MarkLessonComplete(ctx, learner.ID, types.RoleUser, lessons[0].ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

// Completing a course, having it reopened by new content, and completing it
// again must not mint a second certificate.
func TestRecompletionKeepsSingleCertificate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)
	course, module, lessons := env.createCourse(t, instructor, 600)
	env.enroll(t, learner, course)

	result, err := env.completion.MarkLessonComplete(ctx, learner.ID, types.RoleUser, lessons[0].ID)
	require.NoError(t, err)
	require.True(t, result.IsCompleted)
	require.True(t, result.CertificateIssued)

	// New published lesson reopens the enrollment.
	extra := &types.Lesson{
		ID:            uuid.New(),
		ModuleID:      module.ID,
		Position:      2,
		Title:         "Late Addition",
		IsPublished:   true,
		VideoDuration: 300,
	}
	_, err = env.lessonRepo.Create(ctx, nil, []*types.Lesson{extra})
	require.NoError(t, err)
	env.reconciler.LessonCreated(ctx, course, extra)

	enrollment, err := env.enrollRepo.GetByUserAndCourse(ctx, nil, learner.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, types.EnrollmentStatusActive, enrollment.Status)
	require.Nil(t, enrollment.CompletedAt)

	result, err = env.completion.MarkLessonComplete(ctx, learner.ID, types.RoleUser, extra.ID)
	require.NoError(t, err)
	require.True(t, result.IsCompleted)
	require.False(t, result.CertificateIssued)

	certs, err := env.certRepo.GetByUserID(ctx, nil, learner.ID)
	require.NoError(t, err)
	require.Len(t, certs, 1)
}

func mustEnrollment(t *testing.T, env *testEnv, userID, courseID uuid.UUID) *types.Enrollment {
	t.Helper()
	enrollment, err := env.enrollRepo.GetByUserAndCourse(context.Background(), nil, userID, courseID)
	require.NoError(t, err)
	require.NotNil(t, enrollment)
	return enrollment
}
