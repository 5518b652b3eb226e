package store

import (
	"bitwise74/drive-api/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UploadStore struct {
	db *gorm.DB
}

func NewUploadStore(db *gorm.DB) *UploadStore {
	return &UploadStore{db: db}
}

// Create inserts the upload row. A second in-progress upload for the same
// fingerprint fails with gorm.ErrDuplicatedKey.
func (s *UploadStore) Create(u *model.Upload) error {
	return s.db.Omit("Parts").Create(u).Error
}

// FindInProgressByFingerprint returns the active session for a fingerprint
// together with its acknowledged parts in ascending order.
func (s *UploadStore) FindInProgressByFingerprint(fingerprint string) (*model.Upload, error) {
	var u model.Upload

	err := s.db.
		Preload("Parts", func(db *gorm.DB) *gorm.DB {
			return db.Order("part_number ASC")
		}).
		Where("fingerprint = ? AND status = ?", fingerprint, model.UploadStatusInProgress).
		First(&u).
		Error
	if err != nil {
		return nil, err
	}

	return &u, nil
}

// AddPart records an acknowledged part. Acknowledging the same part number
// twice keeps the first row and isn't an error.
func (s *UploadStore) AddPart(uploadID string, partNumber int32, etag string) error {
	return s.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "upload_id"}, {Name: "part_number"}},
			DoNothing: true,
		}).
		Create(&model.Part{
			UploadID:   uploadID,
			PartNumber: partNumber,
			ETag:       etag,
		}).
		Error
}

func (s *UploadStore) CountParts(uploadID string) (int64, error) {
	var n int64

	err := s.db.
		Model(&model.Part{}).
		Where("upload_id = ?", uploadID).
		Count(&n).
		Error

	return n, err
}

// Transition works like FileStore.Transition
func (s *UploadStore) Transition(id string, from, to model.UploadStatus) (bool, error) {
	res := s.db.
		Model(&model.Upload{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected == 1, nil
}
