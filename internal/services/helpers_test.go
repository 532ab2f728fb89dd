package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/repos"
	"github.com/coursehub/coursehub-backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&types.User{},
		&types.Course{},
		&types.CourseModule{},
		&types.Lesson{},
		&types.Enrollment{},
		&types.CompletedLesson{},
		&types.Certificate{},
		&types.Notification{},
	))
	return db
}

// fakeRenderer stands in for the PNG renderer. Failing mode exercises the
// render-failure tolerance of certificate issuance.
type fakeRenderer struct {
	fail    bool
	renders int
}

func (fr *fakeRenderer) Render(ctx context.Context, req RenderRequest) (*RenderResult, error) {
	fr.renders++
	if fr.fail {
		return nil, fmt.Errorf("renderer unavailable")
	}
	return &RenderResult{
		FileURL:  "https://certs.test/" + req.CertificateNumber + ".png",
		FilePath: "/tmp/" + req.CertificateNumber + ".png",
	}, nil
}

// testEnv bundles the engine services over one database.
type testEnv struct {
	db           *gorm.DB
	userRepo     repos.UserRepo
	courseRepo   repos.CourseRepo
	moduleRepo   repos.CourseModuleRepo
	lessonRepo   repos.LessonRepo
	enrollRepo   repos.EnrollmentRepo
	doneRepo     repos.CompletedLessonRepo
	certRepo     repos.CertificateRepo
	notifRepo    repos.NotificationRepo
	renderer     *fakeRenderer
	catalog      CatalogService
	certificates CertificateService
	completion   CompletionService
	enrollments  EnrollmentService
	progress     ProgressService
	reconciler   ReconcilerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	log := logger.NewNop()

	env := &testEnv{
		db:         db,
		userRepo:   repos.NewUserRepo(db, log),
		courseRepo: repos.NewCourseRepo(db, log),
		moduleRepo: repos.NewCourseModuleRepo(db, log),
		lessonRepo: repos.NewLessonRepo(db, log),
		enrollRepo: repos.NewEnrollmentRepo(db, log),
		doneRepo:   repos.NewCompletedLessonRepo(db, log),
		certRepo:   repos.NewCertificateRepo(db, log),
		notifRepo:  repos.NewNotificationRepo(db, log),
		renderer:   &fakeRenderer{},
	}
	notify := NewNotifier(log, env.notifRepo, nil)
	env.catalog = NewCatalogService(db, log, env.courseRepo, env.moduleRepo, env.lessonRepo)
	env.certificates = NewCertificateService(db, log, env.certRepo, env.userRepo, env.courseRepo, env.renderer, notify, "CourseHub")
	env.completion = NewCompletionService(db, log, env.catalog, env.enrollRepo, env.doneRepo, env.certificates, notify)
	env.enrollments = NewEnrollmentService(db, log, env.catalog, env.enrollRepo, env.courseRepo, notify)
	env.progress = NewProgressService(db, log, env.catalog, env.enrollRepo, env.doneRepo)
	env.reconciler = NewReconcilerService(db, log, env.catalog, env.courseRepo, env.moduleRepo, env.lessonRepo, env.enrollRepo, env.doneRepo, notify)
	return env
}

func (env *testEnv) createUser(t *testing.T, name, role string) *types.User {
	t.Helper()
	user := &types.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        fmt.Sprintf("%s@example.test", uuid.NewString()),
		PasswordHash: "x",
		Role:         role,
	}
	_, err := env.userRepo.Create(context.Background(), nil, []*types.User{user})
	require.NoError(t, err)
	return user
}

// createCourse seeds a published free course with one module and the given
// lesson durations, all published.
func (env *testEnv) createCourse(t *testing.T, instructor *types.User, durations ...int) (*types.Course, *types.CourseModule, []*types.Lesson) {
	t.Helper()
	ctx := context.Background()

	course := &types.Course{
		ID:           uuid.New(),
		InstructorID: instructor.ID,
		Title:        "Test Course " + uuid.NewString()[:8],
		Slug:         "test-course-" + uuid.NewString()[:8],
		IsPublished:  true,
		IsFree:       true,
	}
	_, err := env.courseRepo.Create(ctx, nil, []*types.Course{course})
	require.NoError(t, err)

	module := &types.CourseModule{
		ID:       uuid.New(),
		CourseID: course.ID,
		Position: 1,
		Title:    "Module 1",
	}
	_, err = env.moduleRepo.Create(ctx, nil, []*types.CourseModule{module})
	require.NoError(t, err)

	lessons := make([]*types.Lesson, 0, len(durations))
	for i, duration := range durations {
		lesson := &types.Lesson{
			ID:            uuid.New(),
			ModuleID:      module.ID,
			Position:      i + 1,
			Title:         fmt.Sprintf("Lesson %d", i+1),
			IsPublished:   true,
			VideoDuration: duration,
		}
		_, err := env.lessonRepo.Create(ctx, nil, []*types.Lesson{lesson})
		require.NoError(t, err)
		lessons = append(lessons, lesson)
	}
	return course, module, lessons
}

func (env *testEnv) enroll(t *testing.T, user *types.User, course *types.Course) *types.Enrollment {
	t.Helper()
	now := time.Now()
	enrollment := &types.Enrollment{
		ID:        uuid.New(),
		UserID:    user.ID,
		CourseID:  course.ID,
		Status:    types.EnrollmentStatusActive,
		StartedAt: now,
	}
	_, err := env.enrollRepo.Create(context.Background(), nil, []*types.Enrollment{enrollment})
	require.NoError(t, err)
	return enrollment
}
