package store

import (
	"bitwise74/drive-api/internal/model"
	"context"

	"gorm.io/gorm"
)

// FolderStore is a read-only view over the folders table. Folder trees are
// maintained elsewhere.
type FolderStore struct {
	db *gorm.DB
}

func NewFolderStore(db *gorm.DB) *FolderStore {
	return &FolderStore{db: db}
}

// Lookup returns the folder if it exists and belongs to userID
func (s *FolderStore) Lookup(ctx context.Context, id, userID string) (*model.Folder, error) {
	var f model.Folder

	err := s.db.
		WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&f).
		Error
	if err != nil {
		return nil, err
	}

	return &f, nil
}
