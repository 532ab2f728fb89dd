package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Course struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	InstructorID uuid.UUID      `gorm:"type:uuid;not null;index" json:"instructor_id"`
	Instructor   *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:InstructorID;references:ID" json:"instructor,omitempty"`
	Title        string         `gorm:"column:title;not null" json:"title"`
	Slug         string         `gorm:"column:slug;uniqueIndex;not null" json:"slug"`
	Description  string         `gorm:"column:description" json:"description"`
	IsPublished  bool           `gorm:"column:is_published;not null;default:false" json:"is_published"`
	IsFree       bool           `gorm:"column:is_free;not null;default:false" json:"is_free"`
	PriceCents   int            `gorm:"column:price_cents;not null;default:0" json:"price_cents"`
	// DurationSeconds is derived: always recomputed as the sum of the
	// course's lesson durations, never adjusted incrementally.
	DurationSeconds int            `gorm:"column:duration_seconds;not null;default:0" json:"duration_seconds"`
	EnrollmentCount int            `gorm:"column:enrollment_count;not null;default:0" json:"enrollment_count"`
	Metadata        datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }
