package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Lesson struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID    uuid.UUID     `gorm:"type:uuid;not null;index:idx_lesson_module" json:"module_id"`
	Module      *CourseModule `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"module,omitempty"`
	Position    int           `gorm:"column:position;not null" json:"position"`
	Title       string        `gorm:"column:title;not null" json:"title"`
	Description string        `gorm:"column:description" json:"description"`
	// Only published lessons count toward a learner's visible lesson list.
	// Completion math counts all lessons regardless of this flag.
	IsPublished bool `gorm:"column:is_published;not null;default:false" json:"is_published"`
	IsFree      bool `gorm:"column:is_free;not null;default:false" json:"is_free"`
	// VideoDuration is in seconds.
	VideoDuration int            `gorm:"column:video_duration;not null;default:0" json:"video_duration"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lesson) TableName() string { return "lesson" }
