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

// CompletionResult is what a lesson-completion call reports back.
type CompletionResult struct {
	Progress          int  `json:"progress"`
	CompletedLessons  int  `json:"completed_lessons"`
	TotalLessons      int  `json:"total_lessons"`
	IsCompleted       bool `json:"is_completed"`
	CertificateIssued bool `json:"certificate_issued"`
	AlreadyCompleted  bool `json:"already_completed"`
}

// CompletionService owns the enrollment status lifecycle:
// active -> completed on reaching 100%, completed -> active again when the
// caller records a lesson that arrived after the previous completion.
type CompletionService interface {
	// MarkLessonComplete is idempotent per (user, lesson): repeating the
	// call returns the current progress unchanged with no side effects.
	MarkLessonComplete(ctx context.Context, userID uuid.UUID, role string, lessonID uuid.UUID) (*CompletionResult, error)
}

type completionService struct {
	db                  *gorm.DB
	log                 *logger.Logger
	catalog             CatalogService
	enrollmentRepo      repos.EnrollmentRepo
	completedLessonRepo repos.CompletedLessonRepo
	certificates        CertificateService
	notifier            Notifier
}

func NewCompletionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	catalog CatalogService,
	enrollmentRepo repos.EnrollmentRepo,
	completedLessonRepo repos.CompletedLessonRepo,
	certificates CertificateService,
	notifier Notifier,
) CompletionService {
	serviceLog := baseLog.With("service", "CompletionService")
	return &completionService{
		db:                  db,
		log:                 serviceLog,
		catalog:             catalog,
		enrollmentRepo:      enrollmentRepo,
		completedLessonRepo: completedLessonRepo,
		certificates:        certificates,
		notifier:            notifier,
	}
}

func (cs *completionService) MarkLessonComplete(ctx context.Context, userID uuid.UUID, role string, lessonID uuid.UUID) (*CompletionResult, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("caller identity required: %w", apperr.ErrForbidden)
	}

	lesson, _, course, err := cs.catalog.ResolveLessonChain(ctx, nil, lessonID)
	if err != nil {
		return nil, err
	}

	enrollment, err := cs.enrollmentRepo.GetByUserAndCourse(ctx, nil, userID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment != nil && enrollment.Status == types.EnrollmentStatusExpired {
		// Expired is a dead end; an expired learner cannot record progress.
		return nil, fmt.Errorf("enrollment expired: %w", apperr.ErrForbidden)
	}

	// Admins get auto-enrolled on their first completion attempt. This is a
	// narrow exception: instructors do not get it for courses they don't own
	// an enrollment in.
	if enrollment == nil && role == types.RoleAdmin {
		now := time.Now()
		created := &types.Enrollment{
			ID:        uuid.New(),
			UserID:    userID,
			CourseID:  course.ID,
			Status:    types.EnrollmentStatusActive,
			Progress:  0,
			StartedAt: now,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := cs.enrollmentRepo.Create(ctx, nil, []*types.Enrollment{created}); err != nil {
			if apperr.IsDuplicateKey(err) {
				// Lost a race with another auto-enroll; use the winner.
				enrollment, err = cs.enrollmentRepo.GetByUserAndCourse(ctx, nil, userID, course.ID)
				if err != nil || enrollment == nil {
					return nil, fmt.Errorf("load enrollment after conflict: %w", err)
				}
			} else {
				return nil, fmt.Errorf("auto-enroll admin: %w", err)
			}
		} else {
			enrollment = created
		}
	}

	if enrollment == nil {
		return nil, fmt.Errorf("must be enrolled in this course to track progress: %w", apperr.ErrForbidden)
	}

	totalLessons, err := cs.catalog.CountLessons(ctx, nil, course.ID)
	if err != nil {
		return nil, err
	}

	alreadyDone, err := cs.completedLessonRepo.Exists(ctx, nil, enrollment.ID, lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("check completed lesson: %w", err)
	}
	if alreadyDone {
		completedCount, err := cs.completedLessonRepo.CountByEnrollmentID(ctx, nil, enrollment.ID)
		if err != nil {
			return nil, fmt.Errorf("count completed lessons: %w", err)
		}
		return &CompletionResult{
			Progress:         enrollment.Progress,
			CompletedLessons: int(completedCount),
			TotalLessons:     totalLessons,
			IsCompleted:      enrollment.Status == types.EnrollmentStatusCompleted,
			AlreadyCompleted: true,
		}, nil
	}

	// A completed enrollment recording a lesson it has not seen means content
	// changed since the prior completion; reopen it. Retries of an
	// already-recorded lesson return above with the stored status untouched.
	if enrollment.Status == types.EnrollmentStatusCompleted {
		enrollment.Status = types.EnrollmentStatusActive
		enrollment.CompletedAt = nil
	}

	var completedCount int
	completedNow := false
	err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := &types.CompletedLesson{
			ID:           uuid.New(),
			EnrollmentID: enrollment.ID,
			LessonID:     lesson.ID,
			CompletedAt:  time.Now(),
		}
		if err := cs.completedLessonRepo.Create(ctx, tx, row); err != nil {
			if apperr.IsDuplicateKey(err) {
				// A concurrent retry inserted it first; fall through and
				// recompute, the outcome is identical.
				cs.log.Debug("completed lesson already recorded", "enrollment_id", enrollment.ID, "lesson_id", lesson.ID)
			} else {
				return fmt.Errorf("record completed lesson: %w", err)
			}
		}

		count, err := cs.completedLessonRepo.CountByEnrollmentID(ctx, tx, enrollment.ID)
		if err != nil {
			return fmt.Errorf("count completed lessons: %w", err)
		}
		completedCount = int(count)

		enrollment.Progress = ComputeProgress(completedCount, totalLessons)
		if enrollment.Progress >= 100 {
			enrollment.Status = types.EnrollmentStatusCompleted
			now := time.Now()
			enrollment.CompletedAt = &now
			completedNow = true
		}
		enrollment.UpdatedAt = time.Now()

		if err := cs.enrollmentRepo.Update(ctx, tx, enrollment); err != nil {
			return fmt.Errorf("update enrollment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &CompletionResult{
		Progress:         enrollment.Progress,
		CompletedLessons: completedCount,
		TotalLessons:     totalLessons,
		IsCompleted:      enrollment.Status == types.EnrollmentStatusCompleted,
	}

	if completedNow {
		// Certificate issuance and notifications sit outside the progress
		// transaction: they are best-effort and must not unwind a recorded
		// completion.
		issue, issueErr := cs.certificates.IssueIfAbsent(ctx, nil, userID, course)
		if issueErr != nil {
			cs.log.Warn("certificate issuance failed after completion", "user_id", userID, "course_id", course.ID, "error", issueErr)
		} else {
			result.CertificateIssued = issue.Created
		}

		if cs.notifier != nil {
			cs.notifier.Notify(ctx, userID,
				types.NotificationCourseCompleted,
				"Course Completed",
				fmt.Sprintf("Congratulations! You've completed %q", course.Title),
				fmt.Sprintf("/courses/%s", course.ID),
			)
		}
	}

	return result, nil
}
