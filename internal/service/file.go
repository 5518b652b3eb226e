package service

import (
	"bitwise74/drive-api/internal/model"
	"bitwise74/drive-api/internal/store"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// FileService covers what happens to a file after its upload
type FileService struct {
	db      *gorm.DB
	storage Gateway
	folders FolderLookup
}

func NewFileService(db *gorm.DB, storage Gateway, folders FolderLookup) *FileService {
	return &FileService{db: db, storage: storage, folders: folders}
}

// FileChanges describes an update to a file. Fields left nil are kept. With
// Move set the file goes to FolderID, or to the root if FolderID is nil.
type FileChanges struct {
	Name     *string
	Move     bool
	FolderID *string
}

func (s *FileService) Fetch(ctx context.Context, fileID, ownerID string) (*model.File, error) {
	f, err := loadOwned(s.db.WithContext(ctx), fileID, ownerID)
	if err != nil {
		return nil, err
	}

	if f.Status == model.FileStatusDeleted {
		return nil, fmt.Errorf("%w: file not found or access denied", ErrNotFound)
	}

	return f, nil
}

// List returns up to limit files from a folder the owner can see, skipping
// the first skip. A zero limit means DefaultListLimit.
func (s *FileService) List(ctx context.Context, ownerID string, folderID *string, skip, limit int) ([]model.File, error) {
	if skip < 0 || limit < 0 || limit > MaxListLimit {
		return nil, fmt.Errorf("%w: skip must be at least 0 and limit between 0 and %d", ErrInvalidArgument, MaxListLimit)
	}

	if limit == 0 {
		limit = DefaultListLimit
	}

	if folderID != nil {
		if err := s.checkFolder(ctx, *folderID, ownerID); err != nil {
			return nil, err
		}
	}

	files, err := store.NewFileStore(s.db.WithContext(ctx)).List(ownerID, folderID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list files, %w", err)
	}

	return files, nil
}

// Rename gives a file a new name inside its current folder
func (s *FileService) Rename(ctx context.Context, fileID, ownerID, name string) (*model.File, error) {
	return s.Update(ctx, fileID, ownerID, FileChanges{Name: &name})
}

// Move puts a file in another folder, or the root when folderID is nil
func (s *FileService) Move(ctx context.Context, fileID, ownerID string, folderID *string) (*model.File, error) {
	return s.Update(ctx, fileID, ownerID, FileChanges{Move: true, FolderID: folderID})
}

// Update renames and/or moves a file. Two visible files in the same folder
// can't share a name.
func (s *FileService) Update(ctx context.Context, fileID, ownerID string, ch FileChanges) (*model.File, error) {
	f, err := s.Fetch(ctx, fileID, ownerID)
	if err != nil {
		return nil, err
	}

	if f.Status == model.FileStatusFailed {
		return nil, fmt.Errorf("%w: file is %s", ErrInvalidState, f.Status)
	}

	name := f.Name
	if ch.Name != nil {
		name = strings.TrimSpace(*ch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name can't be empty", ErrInvalidArgument)
		}
	}

	folderID := f.FolderID
	if ch.Move {
		folderID = ch.FolderID

		if folderID != nil {
			if err := s.checkFolder(ctx, *folderID, ownerID); err != nil {
				return nil, err
			}
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		files := store.NewFileStore(tx)

		taken, err := files.NameTaken(ownerID, name, folderID, f.ID)
		if err != nil {
			return fmt.Errorf("failed to check file name, %w", err)
		}
		if taken {
			return fmt.Errorf("%w: a file named %q already exists in this folder", ErrInvalidState, name)
		}

		if err := files.Place(f.ID, name, folderID); err != nil {
			return fmt.Errorf("failed to update file, %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Fetch(ctx, fileID, ownerID)
}

// Delete soft deletes a file. Files with an upload still running have to be
// aborted through the uploader first.
func (s *FileService) Delete(ctx context.Context, fileID, ownerID string) error {
	f, err := s.Fetch(ctx, fileID, ownerID)
	if err != nil {
		return err
	}

	switch f.Status {
	case model.FileStatusInitiated:
		return fmt.Errorf("%w: abort the upload before deleting the file", ErrInvalidState)
	case model.FileStatusCompleted:
		err := s.storage.DeleteObject(context.WithoutCancel(ctx), f.StorageKey)
		if err != nil {
			// The row still goes away; an orphaned object only costs storage
			zap.L().Warn("Failed to delete object", zap.String("key", f.StorageKey), zap.Error(err))
		}
	case model.FileStatusFailed:
	default:
		return fmt.Errorf("unknown file status %q", f.Status)
	}

	ok, err := store.NewFileStore(s.db.WithContext(context.WithoutCancel(ctx))).Transition(f.ID, f.Status, model.FileStatusDeleted)
	if err != nil {
		return fmt.Errorf("failed to delete file, %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: file changed while deleting it", ErrInvalidState)
	}

	return nil
}

// DownloadURL presigns a GET for a completed file
func (s *FileService) DownloadURL(ctx context.Context, fileID, ownerID string) (string, error) {
	f, err := s.Fetch(ctx, fileID, ownerID)
	if err != nil {
		return "", err
	}

	if f.Status != model.FileStatusCompleted {
		return "", fmt.Errorf("%w: file is %s", ErrInvalidState, f.Status)
	}

	url, err := s.storage.PresignDownload(ctx, f.StorageKey, PresignExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL, %w", err)
	}

	return url, nil
}

func (s *FileService) checkFolder(ctx context.Context, folderID, ownerID string) error {
	_, err := s.folders.Lookup(ctx, folderID, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: folder not found or access denied", ErrNotFound)
		}

		return fmt.Errorf("failed to look up folder, %w", err)
	}

	return nil
}
