package services

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursehub/coursehub-backend/internal/pkg/apperr"
	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/repos"
	"github.com/coursehub/coursehub-backend/internal/types"
)

// ComputeProgress converts a completed count into an integer percent, rounded
// to nearest and clamped to 100. A course with no lessons is vacuously
// complete: total == 0 yields 100, which is what lets an empty course certify
// immediately.
func ComputeProgress(completed, total int) int {
	if total <= 0 {
		return 100
	}
	pct := int(math.Round(float64(completed) / float64(total) * 100))
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

// LessonProgress is one lesson's completion flag inside a module breakdown.
type LessonProgress struct {
	LessonID    uuid.UUID `json:"lesson_id"`
	Title       string    `json:"title"`
	IsCompleted bool      `json:"is_completed"`
}

type ModuleProgress struct {
	ModuleID         uuid.UUID        `json:"module_id"`
	Title            string           `json:"title"`
	TotalLessons     int              `json:"total_lessons"`
	CompletedLessons int              `json:"completed_lessons"`
	Percent          int              `json:"percent"`
	Lessons          []LessonProgress `json:"lessons"`
}

// ComputeModuleBreakdown reports per-module progress. It is independent from
// completion decisions: a module with no lessons reports 0, not 100.
func ComputeModuleBreakdown(modules []*types.CourseModule, lessonsByModule map[uuid.UUID][]*types.Lesson, completedLessonIDs map[uuid.UUID]bool) []ModuleProgress {
	breakdown := make([]ModuleProgress, 0, len(modules))
	for _, module := range modules {
		lessons := lessonsByModule[module.ID]
		mp := ModuleProgress{
			ModuleID:     module.ID,
			Title:        module.Title,
			TotalLessons: len(lessons),
			Lessons:      make([]LessonProgress, 0, len(lessons)),
		}
		for _, lesson := range lessons {
			done := completedLessonIDs[lesson.ID]
			if done {
				mp.CompletedLessons++
			}
			mp.Lessons = append(mp.Lessons, LessonProgress{
				LessonID:    lesson.ID,
				Title:       lesson.Title,
				IsCompleted: done,
			})
		}
		if mp.TotalLessons > 0 {
			mp.Percent = int(math.Round(float64(mp.CompletedLessons) / float64(mp.TotalLessons) * 100))
		}
		breakdown = append(breakdown, mp)
	}
	return breakdown
}

// CourseProgressReport is the learner-facing progress view for one course.
type CourseProgressReport struct {
	Enrollment       *types.Enrollment `json:"enrollment"`
	TotalLessons     int               `json:"total_lessons"`
	CompletedLessons int               `json:"completed_lessons"`
	ModuleProgress   []ModuleProgress  `json:"module_progress"`
}

type ProgressService interface {
	GetCourseProgress(ctx context.Context, userID uuid.UUID, courseIDOrSlug string) (*CourseProgressReport, error)
}

type progressService struct {
	db                  *gorm.DB
	log                 *logger.Logger
	catalog             CatalogService
	enrollmentRepo      repos.EnrollmentRepo
	completedLessonRepo repos.CompletedLessonRepo
}

func NewProgressService(
	db *gorm.DB,
	baseLog *logger.Logger,
	catalog CatalogService,
	enrollmentRepo repos.EnrollmentRepo,
	completedLessonRepo repos.CompletedLessonRepo,
) ProgressService {
	serviceLog := baseLog.With("service", "ProgressService")
	return &progressService{
		db:                  db,
		log:                 serviceLog,
		catalog:             catalog,
		enrollmentRepo:      enrollmentRepo,
		completedLessonRepo: completedLessonRepo,
	}
}

func (ps *progressService) GetCourseProgress(ctx context.Context, userID uuid.UUID, courseIDOrSlug string) (*CourseProgressReport, error) {
	course, err := ps.catalog.GetCourseByIDOrSlug(ctx, nil, courseIDOrSlug)
	if err != nil {
		return nil, err
	}

	enrollment, err := ps.enrollmentRepo.GetByUserAndCourse(ctx, nil, userID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment == nil {
		return nil, fmt.Errorf("not enrolled in course %s: %w", course.ID, apperr.ErrNotFound)
	}

	modules, err := ps.catalog.ListModules(ctx, nil, course.ID)
	if err != nil {
		return nil, err
	}
	// The report shows published lessons only; the stored progress percent
	// is computed against all lessons elsewhere.
	lessonsByModule, err := ps.catalog.ListLessons(ctx, nil, course.ID, false)
	if err != nil {
		return nil, err
	}

	completedRows, err := ps.completedLessonRepo.GetByEnrollmentID(ctx, nil, enrollment.ID)
	if err != nil {
		return nil, fmt.Errorf("load completed lessons: %w", err)
	}
	completedSet := make(map[uuid.UUID]bool, len(completedRows))
	for _, row := range completedRows {
		completedSet[row.LessonID] = true
	}

	totalPublished := 0
	for _, lessons := range lessonsByModule {
		totalPublished += len(lessons)
	}

	return &CourseProgressReport{
		Enrollment:       enrollment,
		TotalLessons:     totalPublished,
		CompletedLessons: len(completedRows),
		ModuleProgress:   ComputeModuleBreakdown(modules, lessonsByModule, completedSet),
	}, nil
}
