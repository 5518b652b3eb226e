// Package model defines database models
package model

import "time"

type File struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	UserID string `gorm:"not null;index" json:"-"`
	Name   string `gorm:"not null" json:"name"`
	// Declared total size in bytes, as reported by the client at initiation
	Size int64   `gorm:"not null" json:"size"`
	Mime *string `json:"mime,omitempty"`

	// Assigned once when the file is created and never reused, even after the
	// file is deleted
	StorageKey string     `gorm:"not null;uniqueIndex" json:"-"`
	Status     FileStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	FolderID   *string    `gorm:"size:36;index" json:"folder_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Upload *Upload `gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE" json:"-"`
}
