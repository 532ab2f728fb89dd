package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursehub/coursehub-backend/internal/pkg/apperr"
	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/repos"
	"github.com/coursehub/coursehub-backend/internal/requestdata"
	"github.com/coursehub/coursehub-backend/internal/types"
)

type CreateLessonInput struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	IsPublished   bool   `json:"is_published"`
	IsFree        bool   `json:"is_free"`
	VideoDuration int    `json:"video_duration"`
	// Position is optional; zero means append after the current last lesson.
	Position int `json:"position"`
}

// UpdateLessonInput is a patch: nil fields are left untouched.
type UpdateLessonInput struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	IsPublished   *bool   `json:"is_published"`
	IsFree        *bool   `json:"is_free"`
	VideoDuration *int    `json:"video_duration"`
	Position      *int    `json:"position"`
}

type LessonService interface {
	CreateLesson(ctx context.Context, moduleID uuid.UUID, input *CreateLessonInput) (*types.Lesson, error)
	UpdateLesson(ctx context.Context, lessonID uuid.UUID, input *UpdateLessonInput) (*types.Lesson, error)
	DeleteLesson(ctx context.Context, lessonID uuid.UUID) error
	// ListLessonsForModule hides unpublished lessons from callers who are
	// neither the course instructor nor an admin.
	ListLessonsForModule(ctx context.Context, moduleID uuid.UUID) ([]*types.Lesson, error)
}

type lessonService struct {
	db            *gorm.DB
	log           *logger.Logger
	lessonRepo    repos.LessonRepo
	moduleRepo    repos.CourseModuleRepo
	courseService CourseService
	catalog       CatalogService
	reconciler    ReconcilerService
}

func NewLessonService(
	db *gorm.DB,
	baseLog *logger.Logger,
	lessonRepo repos.LessonRepo,
	moduleRepo repos.CourseModuleRepo,
	courseService CourseService,
	catalog CatalogService,
	reconciler ReconcilerService,
) LessonService {
	serviceLog := baseLog.With("service", "LessonService")
	return &lessonService{
		db:            db,
		log:           serviceLog,
		lessonRepo:    lessonRepo,
		moduleRepo:    moduleRepo,
		courseService: courseService,
		catalog:       catalog,
		reconciler:    reconciler,
	}
}

func (ls *lessonService) resolveModule(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) (*types.CourseModule, *types.Course, error) {
	modules, mErr := ls.moduleRepo.GetByIDs(ctx, tx, []uuid.UUID{moduleID})
	if mErr != nil {
		return nil, nil, fmt.Errorf("failed to load module %s: %w", moduleID, mErr)
	}
	if len(modules) == 0 {
		return nil, nil, fmt.Errorf("module %s not found: %w", moduleID, apperr.ErrNotFound)
	}
	module := modules[0]
	course, cErr := ls.courseService.AuthorizeCourseWrite(ctx, tx, module.CourseID)
	if cErr != nil {
		return nil, nil, cErr
	}
	return module, course, nil
}

func (ls *lessonService) CreateLesson(ctx context.Context, moduleID uuid.UUID, input *CreateLessonInput) (*types.Lesson, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", apperr.ErrInvalidArgument)
	}
	if input.VideoDuration < 0 {
		return nil, fmt.Errorf("video_duration cannot be negative: %w", apperr.ErrInvalidArgument)
	}

	var lesson *types.Lesson
	var course *types.Course
	err := ls.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		module, resolvedCourse, rErr := ls.resolveModule(ctx, tx, moduleID)
		if rErr != nil {
			return rErr
		}
		course = resolvedCourse

		position := input.Position
		if position <= 0 {
			maxPosition, mpErr := ls.lessonRepo.MaxPositionByModuleID(ctx, tx, module.ID)
			if mpErr != nil {
				return fmt.Errorf("failed to determine lesson position: %w", mpErr)
			}
			position = maxPosition + 1
		}
		lesson = &types.Lesson{
			ID:            uuid.New(),
			ModuleID:      module.ID,
			Position:      position,
			Title:         title,
			Description:   input.Description,
			IsPublished:   input.IsPublished,
			IsFree:        input.IsFree,
			VideoDuration: input.VideoDuration,
		}
		if _, cErr := ls.lessonRepo.Create(ctx, tx, []*types.Lesson{lesson}); cErr != nil {
			return fmt.Errorf("failed to create lesson: %w", cErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ls.reconciler.LessonCreated(ctx, course, lesson)
	return lesson, nil
}

func (ls *lessonService) UpdateLesson(ctx context.Context, lessonID uuid.UUID, input *UpdateLessonInput) (*types.Lesson, error) {
	lesson, _, course, err := ls.catalog.ResolveLessonChain(ctx, nil, lessonID)
	if err != nil {
		return nil, err
	}
	if _, authErr := ls.courseService.AuthorizeCourseWrite(ctx, nil, course.ID); authErr != nil {
		return nil, authErr
	}

	wasPublished := lesson.IsPublished
	oldDuration := lesson.VideoDuration

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, fmt.Errorf("title cannot be empty: %w", apperr.ErrInvalidArgument)
		}
		lesson.Title = title
	}
	if input.Description != nil {
		lesson.Description = *input.Description
	}
	if input.IsPublished != nil {
		lesson.IsPublished = *input.IsPublished
	}
	if input.IsFree != nil {
		lesson.IsFree = *input.IsFree
	}
	if input.VideoDuration != nil {
		if *input.VideoDuration < 0 {
			return nil, fmt.Errorf("video_duration cannot be negative: %w", apperr.ErrInvalidArgument)
		}
		lesson.VideoDuration = *input.VideoDuration
	}
	if input.Position != nil && *input.Position > 0 {
		lesson.Position = *input.Position
	}

	if uErr := ls.lessonRepo.Update(ctx, nil, lesson); uErr != nil {
		return nil, fmt.Errorf("failed to update lesson: %w", uErr)
	}

	if !wasPublished && lesson.IsPublished {
		ls.reconciler.LessonPublished(ctx, course, lesson)
	} else if lesson.VideoDuration != oldDuration {
		ls.reconciler.LessonDurationChanged(ctx, course)
	}
	return lesson, nil
}

func (ls *lessonService) DeleteLesson(ctx context.Context, lessonID uuid.UUID) error {
	_, _, course, err := ls.catalog.ResolveLessonChain(ctx, nil, lessonID)
	if err != nil {
		return err
	}
	if _, authErr := ls.courseService.AuthorizeCourseWrite(ctx, nil, course.ID); authErr != nil {
		return authErr
	}

	if dErr := ls.lessonRepo.DeleteByIDs(ctx, nil, []uuid.UUID{lessonID}); dErr != nil {
		return fmt.Errorf("failed to delete lesson: %w", dErr)
	}

	ls.reconciler.LessonDeleted(ctx, course)
	return nil
}

func (ls *lessonService) ListLessonsForModule(ctx context.Context, moduleID uuid.UUID) ([]*types.Lesson, error) {
	modules, mErr := ls.moduleRepo.GetByIDs(ctx, nil, []uuid.UUID{moduleID})
	if mErr != nil {
		return nil, fmt.Errorf("failed to load module %s: %w", moduleID, mErr)
	}
	if len(modules) == 0 {
		return nil, fmt.Errorf("module %s not found: %w", moduleID, apperr.ErrNotFound)
	}
	module := modules[0]

	course, cErr := ls.catalog.GetCourse(ctx, nil, module.CourseID)
	if cErr != nil {
		return nil, cErr
	}

	privileged := false
	if rd := requestdata.GetRequestData(ctx); rd != nil {
		privileged = rd.Role == types.RoleAdmin || course.InstructorID == rd.UserID
	}

	if privileged {
		return ls.lessonRepo.GetByModuleIDs(ctx, nil, []uuid.UUID{module.ID})
	}
	return ls.lessonRepo.GetPublishedByModuleIDs(ctx, nil, []uuid.UUID{module.ID})
}
