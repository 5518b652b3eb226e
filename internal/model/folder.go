package model

import "time"

// Folder rows are owned by the folder service. Uploads only read them to
// validate a destination and to namespace storage keys.
type Folder struct {
	ID             string  `gorm:"primaryKey;size:36"`
	UserID         string  `gorm:"not null;index"`
	Name           string  `gorm:"not null"`
	ParentFolderID *string `gorm:"size:36;index"`
	// Full path, e.g. "/documents/projects"
	Path      string `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
