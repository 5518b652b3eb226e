// Package store persists File and Upload aggregates. Every store wraps a
// *gorm.DB which may be a transaction, so callers can compose several stores
// inside one db.Transaction call.
package store

import (
	"bitwise74/drive-api/internal/model"
	"time"

	"gorm.io/gorm"
)

type FileStore struct {
	db *gorm.DB
}

func NewFileStore(db *gorm.DB) *FileStore {
	return &FileStore{db: db}
}

func (s *FileStore) Create(f *model.File) error {
	return s.db.Omit("Upload").Create(f).Error
}

// FindOwned returns the file with its upload and acknowledged parts. Files
// owned by someone else are reported as gorm.ErrRecordNotFound.
func (s *FileStore) FindOwned(id, userID string) (*model.File, error) {
	var f model.File

	err := s.db.
		Preload("Upload").
		Preload("Upload.Parts", func(db *gorm.DB) *gorm.DB {
			return db.Order("part_number ASC")
		}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&f).
		Error
	if err != nil {
		return nil, err
	}

	return &f, nil
}

// FindByID loads a file without the owner check
func (s *FileStore) FindByID(id string) (*model.File, error) {
	var f model.File

	err := s.db.
		Where("id = ?", id).
		First(&f).
		Error
	if err != nil {
		return nil, err
	}

	return &f, nil
}

// visible scopes a query to a user's files that haven't been deleted or failed
func visible(db *gorm.DB, userID string, folderID *string) *gorm.DB {
	q := db.
		Where("user_id = ?", userID).
		Where("status NOT IN ?", []model.FileStatus{model.FileStatusDeleted, model.FileStatusFailed})

	if folderID != nil {
		return q.Where("folder_id = ?", *folderID)
	}

	return q.Where("folder_id IS NULL")
}

// List returns a page of a user's visible files in a folder, newest first. A
// nil folder means the user's root.
func (s *FileStore) List(userID string, folderID *string, offset, limit int) ([]model.File, error) {
	var files []model.File

	err := visible(s.db, userID, folderID).
		Order("created_at DESC").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&files).
		Error

	return files, err
}

// NameTaken reports whether another visible file in the folder already uses
// name
func (s *FileStore) NameTaken(userID, name string, folderID *string, exceptID string) (bool, error) {
	var n int64

	err := visible(s.db.Model(&model.File{}), userID, folderID).
		Where("name = ? AND id <> ?", name, exceptID).
		Count(&n).
		Error

	return n > 0, err
}

// Place sets the name and folder of a file. A nil folder moves it to the root.
func (s *FileStore) Place(id, name string, folderID *string) error {
	return s.db.
		Model(&model.File{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"name":      name,
			"folder_id": folderID,
		}).
		Error
}

// Transition moves a file from one status to another. It reports false when
// the file wasn't in the expected status, which means another request got to
// it first.
func (s *FileStore) Transition(id string, from, to model.FileStatus) (bool, error) {
	res := s.db.
		Model(&model.File{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected == 1, nil
}

// ListStale returns files still waiting for their upload that haven't been
// touched since before cutoff. Only the id and owner are loaded.
func (s *FileStore) ListStale(cutoff time.Time) ([]model.File, error) {
	var files []model.File

	err := s.db.
		Select("id", "user_id").
		Where("status = ? AND updated_at < ?", model.FileStatusInitiated, cutoff).
		Find(&files).
		Error

	return files, err
}
