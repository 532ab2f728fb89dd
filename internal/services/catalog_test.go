package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/coursehub-backend/internal/pkg/apperr"
	"github.com/coursehub/coursehub-backend/internal/types"
)

func TestGetCourseByIDOrSlug(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	course, _, _ := env.createCourse(t, instructor, 600)

	bySlug, err := env.catalog.GetCourseByIDOrSlug(ctx, nil, course.Slug)
	require.NoError(t, err)
	require.Equal(t, course.ID, bySlug.ID)

	byID, err := env.catalog.GetCourseByIDOrSlug(ctx, nil, course.ID.String())
	require.NoError(t, err)
	require.Equal(t, course.ID, byID.ID)

	_, err = env.catalog.GetCourseByIDOrSlug(ctx, nil, "no-such-course")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

// Unpublished lessons are hidden from listings but still count toward the
// completion denominator.
func TestCountLessonsIncludesDrafts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	course, module, _ := env.createCourse(t, instructor, 600, 600)

	draft := &types.Lesson{
		ID:          uuid.New(),
		ModuleID:    module.ID,
		Position:    3,
		Title:       "Draft",
		IsPublished: false,
	}
	_, err := env.lessonRepo.Create(ctx, nil, []*types.Lesson{draft})
	require.NoError(t, err)

	total, err := env.catalog.CountLessons(ctx, nil, course.ID)
	require.NoError(t, err)
	require.Equal(t, 3, total)

	visible, err := env.catalog.ListLessons(ctx, nil, course.ID, false)
	require.NoError(t, err)
	require.Len(t, visible[module.ID], 2)

	all, err := env.catalog.ListLessons(ctx, nil, course.ID, true)
	require.NoError(t, err)
	require.Len(t, all[module.ID], 3)
}

func TestResolveLessonChain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instructor := env.createUser(t, "Ada Instructor", types.RoleInstructor)
	course, module, lessons := env.createCourse(t, instructor, 600)

	lesson, gotModule, gotCourse, err := env.catalog.ResolveLessonChain(ctx, nil, lessons[0].ID)
	require.NoError(t, err)
	require.Equal(t, lessons[0].ID, lesson.ID)
	require.Equal(t, module.ID, gotModule.ID)
	require.Equal(t, course.ID, gotCourse.ID)

	_, _, _, err = env.catalog.ResolveLessonChain(ctx, nil, uuid.New())
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
