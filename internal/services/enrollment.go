package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursehub/coursehub-backend/internal/pkg/apperr"
	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/repos"
	"github.com/coursehub/coursehub-backend/internal/types"
)

type EnrollmentService interface {
	// Enroll creates the single (user, course) enrollment at zero progress.
	// Paid courses refuse free join; payment verification happens elsewhere.
	Enroll(ctx context.Context, userID uuid.UUID, courseIDOrSlug string) (*types.Enrollment, error)
	GetForCourse(ctx context.Context, userID uuid.UUID, courseIDOrSlug string) (*types.Enrollment, error)
	ListForUser(ctx context.Context, userID uuid.UUID, status string) ([]*types.Enrollment, error)
}

type enrollmentService struct {
	db             *gorm.DB
	log            *logger.Logger
	catalog        CatalogService
	enrollmentRepo repos.EnrollmentRepo
	courseRepo     repos.CourseRepo
	notifier       Notifier
}

func NewEnrollmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	catalog CatalogService,
	enrollmentRepo repos.EnrollmentRepo,
	courseRepo repos.CourseRepo,
	notifier Notifier,
) EnrollmentService {
	serviceLog := baseLog.With("service", "EnrollmentService")
	return &enrollmentService{
		db:             db,
		log:            serviceLog,
		catalog:        catalog,
		enrollmentRepo: enrollmentRepo,
		courseRepo:     courseRepo,
		notifier:       notifier,
	}
}

func (es *enrollmentService) Enroll(ctx context.Context, userID uuid.UUID, courseIDOrSlug string) (*types.Enrollment, error) {
	course, err := es.catalog.GetCourseByIDOrSlug(ctx, nil, courseIDOrSlug)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished {
		return nil, fmt.Errorf("course %s is not available for enrollment: %w", course.ID, apperr.ErrNotFound)
	}
	if !course.IsFree && course.PriceCents > 0 {
		return nil, fmt.Errorf("course %s requires payment: %w", course.ID, apperr.ErrForbidden)
	}

	existing, err := es.enrollmentRepo.GetByUserAndCourse(ctx, nil, userID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("already enrolled in course %s: %w", course.ID, apperr.ErrConflict)
	}

	now := time.Now()
	enrollment := &types.Enrollment{
		ID:        uuid.New(),
		UserID:    userID,
		CourseID:  course.ID,
		Status:    types.EnrollmentStatusActive,
		Progress:  0,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := es.enrollmentRepo.Create(ctx, nil, []*types.Enrollment{enrollment}); err != nil {
		if apperr.IsDuplicateKey(err) {
			return nil, fmt.Errorf("already enrolled in course %s: %w", course.ID, apperr.ErrConflict)
		}
		return nil, fmt.Errorf("create enrollment: %w", err)
	}

	// Enrollment count is derived the same way duration is: recounted from
	// the enrollment table, never incremented.
	if count, err := es.enrollmentRepo.CountByCourseID(ctx, nil, course.ID); err != nil {
		es.log.Warn("failed to recount enrollments", "course_id", course.ID, "error", err)
	} else if err := es.courseRepo.SetEnrollmentCount(ctx, nil, course.ID, int(count)); err != nil {
		es.log.Warn("failed to store enrollment count", "course_id", course.ID, "error", err)
	}

	if es.notifier != nil {
		es.notifier.Notify(ctx, userID,
			types.NotificationCourseEnrolled,
			"Enrollment Successful",
			fmt.Sprintf("You have successfully enrolled in %q", course.Title),
			fmt.Sprintf("/courses/%s", course.Slug),
		)
	}

	return enrollment, nil
}

func (es *enrollmentService) GetForCourse(ctx context.Context, userID uuid.UUID, courseIDOrSlug string) (*types.Enrollment, error) {
	course, err := es.catalog.GetCourseByIDOrSlug(ctx, nil, courseIDOrSlug)
	if err != nil {
		return nil, err
	}
	enrollment, err := es.enrollmentRepo.GetByUserAndCourse(ctx, nil, userID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment == nil {
		return nil, fmt.Errorf("enrollment for course %s: %w", course.ID, apperr.ErrNotFound)
	}
	return enrollment, nil
}

func (es *enrollmentService) ListForUser(ctx context.Context, userID uuid.UUID, status string) ([]*types.Enrollment, error) {
	enrollments, err := es.enrollmentRepo.GetByUserID(ctx, nil, userID, status)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}
