package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursehub/coursehub-backend/internal/pkg/apperr"
	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/repos"
	"github.com/coursehub/coursehub-backend/internal/types"
)

// CatalogService is the read-only view of a course's content tree.
type CatalogService interface {
	GetCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error)
	GetCourseByIDOrSlug(ctx context.Context, tx *gorm.DB, idOrSlug string) (*types.Course, error)
	ListModules(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.CourseModule, error)
	// ListLessons returns the course's lessons grouped under their module
	// ids. With includeUnpublished false only published lessons appear,
	// which is the learner-facing view.
	ListLessons(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, includeUnpublished bool) (map[uuid.UUID][]*types.Lesson, error)
	// CountLessons counts every lesson of the course regardless of publish
	// state. This is the completion denominator: privileged users can
	// complete unpublished lessons and the math must not depend on who asks.
	CountLessons(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int, error)
	// ResolveLessonChain walks lesson -> module -> course and fails with
	// ErrNotFound on any broken link.
	ResolveLessonChain(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (*types.Lesson, *types.CourseModule, *types.Course, error)
}

type catalogService struct {
	db         *gorm.DB
	log        *logger.Logger
	courseRepo repos.CourseRepo
	moduleRepo repos.CourseModuleRepo
	lessonRepo repos.LessonRepo
}

func NewCatalogService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	moduleRepo repos.CourseModuleRepo,
	lessonRepo repos.LessonRepo,
) CatalogService {
	serviceLog := baseLog.With("service", "CatalogService")
	return &catalogService{
		db:         db,
		log:        serviceLog,
		courseRepo: courseRepo,
		moduleRepo: moduleRepo,
		lessonRepo: lessonRepo,
	}
}

func (cs *catalogService) GetCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error) {
	courses, err := cs.courseRepo.GetByIDs(ctx, tx, []uuid.UUID{courseID})
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if len(courses) == 0 || courses[0] == nil {
		return nil, fmt.Errorf("course %s: %w", courseID, apperr.ErrNotFound)
	}
	return courses[0], nil
}

func (cs *catalogService) GetCourseByIDOrSlug(ctx context.Context, tx *gorm.DB, idOrSlug string) (*types.Course, error) {
	if id, err := uuid.Parse(idOrSlug); err == nil {
		return cs.GetCourse(ctx, tx, id)
	}
	courses, err := cs.courseRepo.GetBySlugs(ctx, tx, []string{idOrSlug})
	if err != nil {
		return nil, fmt.Errorf("load course by slug: %w", err)
	}
	if len(courses) == 0 || courses[0] == nil {
		return nil, fmt.Errorf("course %q: %w", idOrSlug, apperr.ErrNotFound)
	}
	return courses[0], nil
}

func (cs *catalogService) ListModules(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.CourseModule, error) {
	if _, err := cs.GetCourse(ctx, tx, courseID); err != nil {
		return nil, err
	}
	modules, err := cs.moduleRepo.GetByCourseID(ctx, tx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load modules: %w", err)
	}
	return modules, nil
}

func (cs *catalogService) ListLessons(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, includeUnpublished bool) (map[uuid.UUID][]*types.Lesson, error) {
	modules, err := cs.ListModules(ctx, tx, courseID)
	if err != nil {
		return nil, err
	}

	moduleIDs := make([]uuid.UUID, 0, len(modules))
	for _, m := range modules {
		moduleIDs = append(moduleIDs, m.ID)
	}

	var lessons []*types.Lesson
	if includeUnpublished {
		lessons, err = cs.lessonRepo.GetByModuleIDs(ctx, tx, moduleIDs)
	} else {
		lessons, err = cs.lessonRepo.GetPublishedByModuleIDs(ctx, tx, moduleIDs)
	}
	if err != nil {
		return nil, fmt.Errorf("load lessons: %w", err)
	}

	byModule := make(map[uuid.UUID][]*types.Lesson, len(moduleIDs))
	for _, l := range lessons {
		byModule[l.ModuleID] = append(byModule[l.ModuleID], l)
	}
	return byModule, nil
}

func (cs *catalogService) CountLessons(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int, error) {
	modules, err := cs.ListModules(ctx, tx, courseID)
	if err != nil {
		return 0, err
	}

	moduleIDs := make([]uuid.UUID, 0, len(modules))
	for _, m := range modules {
		moduleIDs = append(moduleIDs, m.ID)
	}

	count, err := cs.lessonRepo.CountByModuleIDs(ctx, tx, moduleIDs)
	if err != nil {
		return 0, fmt.Errorf("count lessons: %w", err)
	}
	return int(count), nil
}

func (cs *catalogService) ResolveLessonChain(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (*types.Lesson, *types.CourseModule, *types.Course, error) {
	lessons, err := cs.lessonRepo.GetByIDs(ctx, tx, []uuid.UUID{lessonID})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load lesson: %w", err)
	}
	if len(lessons) == 0 || lessons[0] == nil {
		return nil, nil, nil, fmt.Errorf("lesson %s: %w", lessonID, apperr.ErrNotFound)
	}
	lesson := lessons[0]

	modules, err := cs.moduleRepo.GetByIDs(ctx, tx, []uuid.UUID{lesson.ModuleID})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load module: %w", err)
	}
	if len(modules) == 0 || modules[0] == nil {
		return nil, nil, nil, fmt.Errorf("module %s: %w", lesson.ModuleID, apperr.ErrNotFound)
	}
	module := modules[0]

	course, err := cs.GetCourse(ctx, tx, module.CourseID)
	if err != nil {
		return nil, nil, nil, err
	}
	return lesson, module, course, nil
}
