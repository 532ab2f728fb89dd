package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/types"
)

type CompletedLessonRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.CompletedLesson) error
	GetByEnrollmentID(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) ([]*types.CompletedLesson, error)
	Exists(ctx context.Context, tx *gorm.DB, enrollmentID, lessonID uuid.UUID) (bool, error)
	CountByEnrollmentID(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (int64, error)
}

type completedLessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCompletedLessonRepo(db *gorm.DB, baseLog *logger.Logger) CompletedLessonRepo {
	repoLog := baseLog.With("repo", "CompletedLessonRepo")
	return &completedLessonRepo{db: db, log: repoLog}
}

func (r *completedLessonRepo) Create(ctx context.Context, tx *gorm.DB, row *types.CompletedLesson) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	return transaction.WithContext(ctx).Create(row).Error
}

func (r *completedLessonRepo) GetByEnrollmentID(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) ([]*types.CompletedLesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CompletedLesson
	if enrollmentID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *completedLessonRepo) Exists(ctx context.Context, tx *gorm.DB, enrollmentID, lessonID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.CompletedLesson{}).
		Where("enrollment_id = ? AND lesson_id = ?", enrollmentID, lessonID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *completedLessonRepo) CountByEnrollmentID(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.CompletedLesson{}).
		Where("enrollment_id = ?", enrollmentID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
