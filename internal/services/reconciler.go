package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/repos"
	"github.com/coursehub/coursehub-backend/internal/types"
)

// ReconcilerService keeps derived course state consistent with the live
// content tree: the cached course duration, and the completion status of
// enrollments whose 100% was computed against a denominator that just grew.
//
// Duration is always recomputed as the full sum over the course's current
// lessons. Applying deltas instead would let concurrent edits drift the cache
// away from the true sum; with a full recompute the last write is always a
// correct snapshot.
type ReconcilerService interface {
	// LessonCreated runs after a lesson row is inserted.
	LessonCreated(ctx context.Context, course *types.Course, lesson *types.Lesson)
	// LessonPublished runs after an existing lesson flips unpublished ->
	// published.
	LessonPublished(ctx context.Context, course *types.Course, lesson *types.Lesson)
	// LessonDurationChanged runs after video_duration changes.
	LessonDurationChanged(ctx context.Context, course *types.Course)
	// LessonDeleted runs after a lesson is removed. Completed enrollments
	// stay completed: a shrinking denominator cannot take 100% away.
	LessonDeleted(ctx context.Context, course *types.Course)
	RecalculateCourseDuration(ctx context.Context, courseID uuid.UUID) (int, error)
	RecalculateAllCourseDurations(ctx context.Context) (map[uuid.UUID]int, error)
}

type reconcilerService struct {
	db                  *gorm.DB
	log                 *logger.Logger
	catalog             CatalogService
	courseRepo          repos.CourseRepo
	moduleRepo          repos.CourseModuleRepo
	lessonRepo          repos.LessonRepo
	enrollmentRepo      repos.EnrollmentRepo
	completedLessonRepo repos.CompletedLessonRepo
	notifier            Notifier
}

func NewReconcilerService(
	db *gorm.DB,
	baseLog *logger.Logger,
	catalog CatalogService,
	courseRepo repos.CourseRepo,
	moduleRepo repos.CourseModuleRepo,
	lessonRepo repos.LessonRepo,
	enrollmentRepo repos.EnrollmentRepo,
	completedLessonRepo repos.CompletedLessonRepo,
	notifier Notifier,
) ReconcilerService {
	serviceLog := baseLog.With("service", "ReconcilerService")
	return &reconcilerService{
		db:                  db,
		log:                 serviceLog,
		catalog:             catalog,
		courseRepo:          courseRepo,
		moduleRepo:          moduleRepo,
		lessonRepo:          lessonRepo,
		enrollmentRepo:      enrollmentRepo,
		completedLessonRepo: completedLessonRepo,
		notifier:            notifier,
	}
}

func (rs *reconcilerService) LessonCreated(ctx context.Context, course *types.Course, lesson *types.Lesson) {
	if course == nil || lesson == nil {
		return
	}
	if _, err := rs.RecalculateCourseDuration(ctx, course.ID); err != nil {
		rs.log.Warn("duration recompute failed after lesson create", "course_id", course.ID, "error", err)
	}
	if lesson.IsPublished {
		rs.handleNewContent(ctx, course, lesson)
	}
}

func (rs *reconcilerService) LessonPublished(ctx context.Context, course *types.Course, lesson *types.Lesson) {
	if course == nil || lesson == nil {
		return
	}
	if _, err := rs.RecalculateCourseDuration(ctx, course.ID); err != nil {
		rs.log.Warn("duration recompute failed after lesson publish", "course_id", course.ID, "error", err)
	}
	rs.handleNewContent(ctx, course, lesson)
}

func (rs *reconcilerService) LessonDurationChanged(ctx context.Context, course *types.Course) {
	if course == nil {
		return
	}
	if _, err := rs.RecalculateCourseDuration(ctx, course.ID); err != nil {
		rs.log.Warn("duration recompute failed after duration edit", "course_id", course.ID, "error", err)
	}
}

func (rs *reconcilerService) LessonDeleted(ctx context.Context, course *types.Course) {
	if course == nil {
		return
	}
	if _, err := rs.RecalculateCourseDuration(ctx, course.ID); err != nil {
		rs.log.Warn("duration recompute failed after lesson delete", "course_id", course.ID, "error", err)
	}
}

// handleNewContent notifies every live enrollment of the course and reopens
// the completed ones: their 100% was computed against a denominator that no
// longer holds. Issued certificates are untouched; issuance is permanent.
func (rs *reconcilerService) handleNewContent(ctx context.Context, course *types.Course, lesson *types.Lesson) {
	enrollments, err := rs.enrollmentRepo.GetByCourseAndStatuses(ctx, nil, course.ID,
		[]string{types.EnrollmentStatusActive, types.EnrollmentStatusCompleted})
	if err != nil {
		rs.log.Warn("failed to load enrollments for new content", "course_id", course.ID, "error", err)
		return
	}
	if len(enrollments) == 0 {
		return
	}

	userIDs := make([]uuid.UUID, 0, len(enrollments))
	for _, enrollment := range enrollments {
		userIDs = append(userIDs, enrollment.UserID)
	}
	if rs.notifier != nil {
		rs.notifier.NotifyMany(ctx, userIDs,
			types.NotificationNewCourseContent,
			"New Lesson Available",
			fmt.Sprintf("A new lesson %q is now available in %q", lesson.Title, course.Title),
			fmt.Sprintf("/courses/%s/learn", course.Slug),
		)
	}

	// The stored 100% was computed against the old denominator; refresh it
	// against the grown lesson count so reads stay consistent with the
	// completed set.
	totalLessons, countErr := rs.catalog.CountLessons(ctx, nil, course.ID)
	if countErr != nil {
		rs.log.Warn("failed to count lessons for reopened enrollments", "course_id", course.ID, "error", countErr)
	}

	for _, enrollment := range enrollments {
		if enrollment.Status != types.EnrollmentStatusCompleted {
			continue
		}
		enrollment.Status = types.EnrollmentStatusActive
		enrollment.CompletedAt = nil
		if countErr == nil {
			done, err := rs.completedLessonRepo.CountByEnrollmentID(ctx, nil, enrollment.ID)
			if err != nil {
				rs.log.Warn("failed to count completed lessons for reopened enrollment", "enrollment_id", enrollment.ID, "error", err)
			} else {
				enrollment.Progress = ComputeProgress(int(done), totalLessons)
			}
		}
		if err := rs.enrollmentRepo.Update(ctx, nil, enrollment); err != nil {
			rs.log.Warn("failed to reopen completed enrollment", "enrollment_id", enrollment.ID, "error", err)
		}
	}
}

func (rs *reconcilerService) RecalculateCourseDuration(ctx context.Context, courseID uuid.UUID) (int, error) {
	modules, err := rs.moduleRepo.GetByCourseID(ctx, nil, courseID)
	if err != nil {
		return 0, fmt.Errorf("load modules: %w", err)
	}

	moduleIDs := make([]uuid.UUID, 0, len(modules))
	for _, m := range modules {
		moduleIDs = append(moduleIDs, m.ID)
	}

	lessons, err := rs.lessonRepo.GetByModuleIDs(ctx, nil, moduleIDs)
	if err != nil {
		return 0, fmt.Errorf("load lessons: %w", err)
	}

	total := 0
	for _, lesson := range lessons {
		total += lesson.VideoDuration
	}

	if err := rs.courseRepo.SetDuration(ctx, nil, courseID, total); err != nil {
		return 0, fmt.Errorf("store duration: %w", err)
	}
	return total, nil
}

func (rs *reconcilerService) RecalculateAllCourseDurations(ctx context.Context) (map[uuid.UUID]int, error) {
	courses, err := rs.courseRepo.GetAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}

	results := make(map[uuid.UUID]int, len(courses))
	for _, course := range courses {
		duration, err := rs.RecalculateCourseDuration(ctx, course.ID)
		if err != nil {
			rs.log.Warn("duration recompute failed", "course_id", course.ID, "error", err)
			continue
		}
		results[course.ID] = duration
	}
	return results, nil
}
