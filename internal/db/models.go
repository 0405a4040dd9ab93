package db

import (
	"time"

	"gorm.io/datatypes"
)

// Permission is one stored permission request.
//
// Requests submitted through the service carry SubmittedAt. Rows imported
// from older systems may instead keep whatever they had in SubmittedAtRaw
// (usually a string in one of several formats); SubmittedAt wins when both
// are set.
type Permission struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time

	RollNumber string `gorm:"column:rollno;index;size:64"`
	Branch     string `gorm:"size:64"`
	Reason     string
	Email      string `gorm:"size:255"`

	SubmittedAt    *time.Time     `gorm:"index"`
	SubmittedAtRaw datatypes.JSON `gorm:"type:jsonb"`
}
