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
	"github.com/coursehub/coursehub-backend/internal/types"
)

type CreateModuleInput struct {
	Title string `json:"title" binding:"required"`
	// Position is optional; zero means append after the current last module.
	Position int `json:"position"`
}

type ModuleService interface {
	CreateModule(ctx context.Context, courseID uuid.UUID, input *CreateModuleInput) (*types.CourseModule, error)
	ListModules(ctx context.Context, courseID uuid.UUID) ([]*types.CourseModule, error)
}

type moduleService struct {
	db            *gorm.DB
	log           *logger.Logger
	moduleRepo    repos.CourseModuleRepo
	courseService CourseService
	catalog       CatalogService
}

func NewModuleService(
	db *gorm.DB,
	baseLog *logger.Logger,
	moduleRepo repos.CourseModuleRepo,
	courseService CourseService,
	catalog CatalogService,
) ModuleService {
	serviceLog := baseLog.With("service", "ModuleService")
	return &moduleService{
		db:            db,
		log:           serviceLog,
		moduleRepo:    moduleRepo,
		courseService: courseService,
		catalog:       catalog,
	}
}

func (ms *moduleService) CreateModule(ctx context.Context, courseID uuid.UUID, input *CreateModuleInput) (*types.CourseModule, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", apperr.ErrInvalidArgument)
	}

	var module *types.CourseModule
	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		course, authErr := ms.courseService.AuthorizeCourseWrite(ctx, tx, courseID)
		if authErr != nil {
			return authErr
		}
		position := input.Position
		if position <= 0 {
			maxPosition, mpErr := ms.moduleRepo.MaxPositionByCourseID(ctx, tx, course.ID)
			if mpErr != nil {
				return fmt.Errorf("failed to determine module position: %w", mpErr)
			}
			position = maxPosition + 1
		}
		module = &types.CourseModule{
			ID:       uuid.New(),
			CourseID: course.ID,
			Position: position,
			Title:    title,
		}
		if _, cErr := ms.moduleRepo.Create(ctx, tx, []*types.CourseModule{module}); cErr != nil {
			return fmt.Errorf("failed to create module: %w", cErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return module, nil
}

func (ms *moduleService) ListModules(ctx context.Context, courseID uuid.UUID) ([]*types.CourseModule, error) {
	return ms.catalog.ListModules(ctx, nil, courseID)
}
