package types

import (
	"time"

	"github.com/google/uuid"
)

// Certificate is immutable history once issued. The composite unique index on
// (user_id, course_id) is what guarantees at-most-one per pair under races;
// application-level existence checks are only an optimization. CertificateURL
// is the single field that may be backfilled after a failed render.
type Certificate struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;index:idx_certificate_user_course,unique" json:"user_id"`
	User              *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	CourseID          uuid.UUID `gorm:"type:uuid;not null;index:idx_certificate_user_course,unique" json:"course_id"`
	Course            *Course   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	CertificateNumber string    `gorm:"column:certificate_number;uniqueIndex;not null" json:"certificate_number"`
	CertificateURL    string    `gorm:"column:certificate_url" json:"certificate_url,omitempty"`
	IssuedAt          time.Time `gorm:"column:issued_at;not null" json:"issued_at"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null" json:"updated_at"`
}

func (Certificate) TableName() string { return "certificate" }
