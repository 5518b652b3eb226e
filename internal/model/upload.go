package model

import "time"

// Upload is one multipart transfer session for a File.
type Upload struct {
	ID     string `gorm:"primaryKey;size:36"`
	FileID string `gorm:"size:36;not null;uniqueIndex"`
	// Upload ID issued by the object storage when the session was opened
	SessionID string `gorm:"not null"`
	// At most one in-progress upload may exist per fingerprint. Enforced by a
	// partial unique index so a second session can't sneak in under a race
	Fingerprint string       `gorm:"not null;index:idx_uploads_inprogress_fingerprint,unique,where:status = 'inprogress'"`
	ChunkSize   int64        `gorm:"not null"`
	TotalParts  int32        `gorm:"not null"`
	Status      UploadStatus `gorm:"type:varchar(16);not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Parts []Part `gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE"`
}

// Part is an acknowledged chunk of an Upload. Rows are never updated.
type Part struct {
	UploadID   string    `gorm:"primaryKey;size:36" json:"-"`
	PartNumber int32     `gorm:"primaryKey;autoIncrement:false" json:"part_number"`
	ETag       string    `gorm:"column:etag;not null" json:"etag"`
	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

func (Part) TableName() string {
	return "upload_parts"
}

// CompletedPart is a part number and its storage issued tag as sent to the
// object storage when finalizing a session.
type CompletedPart struct {
	PartNumber int32  `json:"part_number"`
	ETag       string `json:"etag"`
}
