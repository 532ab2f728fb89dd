package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursehub/coursehub-backend/internal/pkg/apperr"
	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/repos"
	"github.com/coursehub/coursehub-backend/internal/requestdata"
	"github.com/coursehub/coursehub-backend/internal/types"
)

var slugStripPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowers the title and collapses every non-alphanumeric run into a
// single hyphen.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugStripPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

type CreateCourseInput struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	IsPublished bool   `json:"is_published"`
	IsFree      bool   `json:"is_free"`
	PriceCents  int    `json:"price_cents"`
}

type CourseService interface {
	CreateCourse(ctx context.Context, input *CreateCourseInput) (*types.Course, error)
	ListCourses(ctx context.Context) ([]*types.Course, error)
	GetCourse(ctx context.Context, idOrSlug string) (*types.Course, error)
	// AuthorizeCourseWrite returns the course when the caller is its
	// instructor or an admin, ErrForbidden otherwise.
	AuthorizeCourseWrite(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error)
}

type courseService struct {
	db         *gorm.DB
	log        *logger.Logger
	courseRepo repos.CourseRepo
	catalog    CatalogService
}

func NewCourseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	catalog CatalogService,
) CourseService {
	serviceLog := baseLog.With("service", "CourseService")
	return &courseService{
		db:         db,
		log:        serviceLog,
		courseRepo: courseRepo,
		catalog:    catalog,
	}
}

func (cs *courseService) CreateCourse(ctx context.Context, input *CreateCourseInput) (*types.Course, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, fmt.Errorf("missing request identity: %w", apperr.ErrForbidden)
	}
	if rd.Role != types.RoleInstructor && rd.Role != types.RoleAdmin {
		return nil, fmt.Errorf("only instructors can create courses: %w", apperr.ErrForbidden)
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", apperr.ErrInvalidArgument)
	}
	slug := Slugify(title)
	if slug == "" {
		return nil, fmt.Errorf("title yields an empty slug: %w", apperr.ErrInvalidArgument)
	}

	course := &types.Course{
		ID:           uuid.New(),
		InstructorID: rd.UserID,
		Title:        title,
		Slug:         slug,
		Description:  input.Description,
		IsPublished:  input.IsPublished,
		IsFree:       input.IsFree,
		PriceCents:   input.PriceCents,
	}
	if _, cErr := cs.courseRepo.Create(ctx, nil, []*types.Course{course}); cErr != nil {
		if apperr.IsDuplicateKey(cErr) {
			return nil, fmt.Errorf("a course with slug %q already exists: %w", slug, apperr.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create course: %w", cErr)
	}
	return course, nil
}

func (cs *courseService) ListCourses(ctx context.Context) ([]*types.Course, error) {
	courses, err := cs.courseRepo.GetAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	rd := requestdata.GetRequestData(ctx)
	if rd != nil && rd.Role == types.RoleAdmin {
		return courses, nil
	}
	visible := make([]*types.Course, 0, len(courses))
	for _, course := range courses {
		if course.IsPublished || (rd != nil && course.InstructorID == rd.UserID) {
			visible = append(visible, course)
		}
	}
	return visible, nil
}

func (cs *courseService) GetCourse(ctx context.Context, idOrSlug string) (*types.Course, error) {
	course, err := cs.catalog.GetCourseByIDOrSlug(ctx, nil, idOrSlug)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished {
		rd := requestdata.GetRequestData(ctx)
		if rd == nil || (rd.Role != types.RoleAdmin && course.InstructorID != rd.UserID) {
			return nil, fmt.Errorf("course %s not found: %w", idOrSlug, apperr.ErrNotFound)
		}
	}
	return course, nil
}

func (cs *courseService) AuthorizeCourseWrite(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, fmt.Errorf("missing request identity: %w", apperr.ErrForbidden)
	}
	course, err := cs.catalog.GetCourse(ctx, tx, courseID)
	if err != nil {
		return nil, err
	}
	if rd.Role != types.RoleAdmin && course.InstructorID != rd.UserID {
		return nil, fmt.Errorf("caller does not own course %s: %w", courseID, apperr.ErrForbidden)
	}
	return course, nil
}
