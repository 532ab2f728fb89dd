package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/coursehub/coursehub-backend/internal/pkg/apperr"
	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/repos"
	"github.com/coursehub/coursehub-backend/internal/types"
)

// racingCertificateRepo makes a rival issuer win the unique index: right
// before the wrapped Create runs, it inserts its rival row, so the service's
// own insert hits the duplicate-key path even though the pre-check saw
// nothing.
type racingCertificateRepo struct {
	repos.CertificateRepo
	rival *types.Certificate
}

func (r *racingCertificateRepo) Create(ctx context.Context, tx *gorm.DB, row *types.Certificate) error {
	if r.rival != nil {
		rival := r.rival
		r.rival = nil
		if err := r.CertificateRepo.Create(ctx, tx, rival); err != nil {
			return err
		}
	}
	return r.CertificateRepo.Create(ctx, tx, row)
}

func TestGenerateCertificateNumberFormat(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^CERT-202603-[A-Z0-9]{8}$`)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		number := GenerateCertificateNumber(now)
		if !pattern.MatchString(number) {
			t.Fatalf("bad certificate number %q", number)
		}
		if seen[number] {
			t.Fatalf("duplicate number %q in 50 draws", number)
		}
		seen[number] = true
	}
}

func TestIssueIfAbsentIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)
	course, _, _ := env.createCourse(t, instructor, 600)

	first, err := env.certificates.IssueIfAbsent(ctx, nil, learner.ID, course)
	require.NoError(t, err)
	require.True(t, first.Created)
	require.NotEmpty(t, first.Certificate.CertificateURL)

	second, err := env.certificates.IssueIfAbsent(ctx, nil, learner.ID, course)
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.Certificate.ID, second.Certificate.ID)
}

func TestIssueIfAbsentSurvivesRenderFailure(t *testing.T) {
	env := newTestEnv(t)
	env.renderer.fail = true
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)
	course, _, _ := env.createCourse(t, instructor, 600)

	result, err := env.certificates.IssueIfAbsent(ctx, nil, learner.ID, course)
	require.NoError(t, err)
	require.True(t, result.Created)
	require.Empty(t, result.Certificate.CertificateURL)

	stored, err := env.certRepo.GetByUserAndCourse(ctx, nil, learner.ID, course.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestVerifyByNumber(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)
	course, _, _ := env.createCourse(t, instructor, 600)

	issued, err := env.certificates.IssueIfAbsent(ctx, nil, learner.ID, course)
	require.NoError(t, err)

	verification, err := env.certificates.VerifyByNumber(ctx, issued.Certificate.CertificateNumber)
	require.NoError(t, err)
	require.True(t, verification.IsValid)
	require.Equal(t, "Lou Learner", verification.RecipientName)
	require.Equal(t, course.Title, verification.CourseName)

	_, err = env.certificates.VerifyByNumber(ctx, "CERT-000000-NOPENOPE")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDownloadAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)
	other := env.createUser(t, "Olli Other", types.RoleUser)
	course, _, _ := env.createCourse(t, instructor, 600)

	issued, err := env.certificates.IssueIfAbsent(ctx, nil, learner.ID, course)
	require.NoError(t, err)

	_, _, err = env.certificates.Download(ctx, issued.Certificate.ID, other.ID, types.RoleUser)
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

// Losing the insert race must surface the winner's row, not an error and not
// a second certificate.
func TestIssueIfAbsentLosingRaceReturnsWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	log := logger.NewNop()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)
	course, _, _ := env.createCourse(t, instructor, 600)

	now := time.Now()
	racing := &racingCertificateRepo{
		CertificateRepo: env.certRepo,
		rival: &types.Certificate{
			ID:                uuid.New(),
			UserID:            learner.ID,
			CourseID:          course.ID,
			CertificateNumber: GenerateCertificateNumber(now),
			IssuedAt:          now,
			CreatedAt:         now,
			UpdatedAt:         now,
		},
	}
	rivalID := racing.rival.ID
	certificates := NewCertificateService(env.db, log, racing, env.userRepo, env.courseRepo, env.renderer, nil, "CourseHub")

	result, err := certificates.IssueIfAbsent(ctx, nil, learner.ID, course)
	require.NoError(t, err)
	require.False(t, result.Created)
	require.Equal(t, rivalID, result.Certificate.ID)

	certs, err := env.certRepo.GetByUserID(ctx, nil, learner.ID)
	require.NoError(t, err)
	require.Len(t, certs, 1)
	require.Equal(t, rivalID, certs[0].ID)
}

// Two callers finishing the same course at once yield exactly one
// certificate; the loser's completion reports CertificateIssued false.
func TestConcurrentCompletionKeepsSingleCertificate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	log := logger.NewNop()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	learner := env.createUser(t, "Lou Learner", types.RoleUser)
	course, _, lessons := env.createCourse(t, instructor, 600)
	env.enroll(t, learner, course)

	now := time.Now()
	racing := &racingCertificateRepo{
		CertificateRepo: env.certRepo,
		rival: &types.Certificate{
			ID:                uuid.New(),
			UserID:            learner.ID,
			CourseID:          course.ID,
			CertificateNumber: GenerateCertificateNumber(now),
			IssuedAt:          now,
			CreatedAt:         now,
			UpdatedAt:         now,
		},
	}
	certificates := NewCertificateService(env.db, log, racing, env.userRepo, env.courseRepo, env.renderer, nil, "CourseHub")
	completion := NewCompletionService(env.db, log, env.catalog, env.enrollRepo, env.doneRepo, certificates, nil)

	result, err := completion.MarkLessonComplete(ctx, learner.ID, types.RoleUser, lessons[0].ID)
	require.NoError(t, err)
	require.True(t, result.IsCompleted)
	require.False(t, result.CertificateIssued)

	certs, err := env.certRepo.GetByUserID(ctx, nil, learner.ID)
	require.NoError(t, err)
	require.Len(t, certs, 1)
}
