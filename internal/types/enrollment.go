package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusCompleted = "completed"
	EnrollmentStatusExpired   = "expired"
)

type Enrollment struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index:idx_enrollment_user_course,unique" json:"user_id"`
	User     *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;index:idx_enrollment_user_course,unique" json:"course_id"`
	Course   *Course   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Status   string    `gorm:"column:status;not null;default:'active';index" json:"status"`
	// Progress is an integer percent, 0-100, recomputed from the completed
	// lesson set against the current total lesson count.
	Progress    int        `gorm:"column:progress;not null;default:0" json:"progress"`
	StartedAt   time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	// CompletedAt is set iff Status == completed.
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	ExpiresAt   *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (Enrollment) TableName() string { return "enrollment" }

// CompletedLesson is one element of an enrollment's completed-lesson set.
// The unique index makes "mark lesson complete" idempotent at the store.
type CompletedLesson struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	EnrollmentID uuid.UUID   `gorm:"type:uuid;not null;index:idx_completed_enrollment_lesson,unique" json:"enrollment_id"`
	Enrollment   *Enrollment `gorm:"constraint:OnDelete:CASCADE;foreignKey:EnrollmentID;references:ID" json:"enrollment,omitempty"`
	LessonID     uuid.UUID   `gorm:"type:uuid;not null;index:idx_completed_enrollment_lesson,unique" json:"lesson_id"`
	CompletedAt  time.Time   `gorm:"column:completed_at;not null" json:"completed_at"`
}

func (CompletedLesson) TableName() string { return "completed_lesson" }
