package service

import (
	"bitwise74/drive-api/internal/model"
	"bitwise74/drive-api/internal/store"
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// Every part except the last one is exactly this big
	ChunkSize = 5 << 20
	// S3 refuses part numbers above this
	MaxParts = 10000

	PresignExpiry = time.Hour
)

// Uploader drives resumable multipart uploads. It keeps the File and Upload
// records in step with the multipart session held by the object storage.
// It holds no locks; concurrent requests are serialized by the database.
type Uploader struct {
	db            *gorm.DB
	storage       Gateway
	folders       FolderLookup
	presignExpiry time.Duration
}

func NewUploader(db *gorm.DB, storage Gateway, folders FolderLookup) *Uploader {
	expiry := viper.GetDuration("upload.presign_expiry")
	if expiry <= 0 {
		expiry = PresignExpiry
	}

	return &Uploader{
		db:            db,
		storage:       storage,
		folders:       folders,
		presignExpiry: expiry,
	}
}

type InitiateRequest struct {
	OwnerID     string
	Filename    string
	Size        int64
	Fingerprint string
	MimeType    *string
	FolderID    *string
}

type InitiateResult struct {
	FileID            string                `json:"file_id"`
	SessionID         string                `json:"session_id"`
	ChunkSize         int64                 `json:"chunk_size"`
	TotalParts        int32                 `json:"total_parts"`
	AcknowledgedParts []model.CompletedPart `json:"acknowledged_parts"`
	Resumed           bool                  `json:"resumed"`
}

type PresignResult struct {
	URL        string `json:"url"`
	PartNumber int32  `json:"part_number"`
	ExpiresIn  int64  `json:"expires_in"`
}

type AcknowledgeResult struct {
	AcknowledgedCount int64 `json:"acknowledged_count"`
	TotalParts        int32 `json:"total_parts"`
}

type StatusResult struct {
	SessionID               *string             `json:"session_id,omitempty"`
	Filename                string              `json:"filename"`
	TotalSize               int64               `json:"total_size"`
	TotalParts              int32               `json:"total_parts"`
	AcknowledgedPartNumbers []int32             `json:"acknowledged_part_numbers"`
	Status                  model.FileStatus    `json:"status"`
	UploadStatus            *model.UploadStatus `json:"upload_status,omitempty"`
}

// Initiate opens a new multipart upload or, if an upload with the same
// fingerprint is still in progress, returns that one so the client can resume
// it. Resuming writes nothing and doesn't touch the object storage.
func (u *Uploader) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if req.Filename == "" || req.Fingerprint == "" {
		return nil, fmt.Errorf("%w: filename and fingerprint are required", ErrInvalidArgument)
	}

	if req.Size <= 0 {
		return nil, fmt.Errorf("%w: size must be bigger than 0", ErrInvalidArgument)
	}

	if req.Size > MaxParts*ChunkSize {
		return nil, fmt.Errorf("%w: file is bigger than %d parts of %d bytes", ErrInvalidArgument, MaxParts, ChunkSize)
	}

	totalParts := req.Size / ChunkSize
	if req.Size%ChunkSize != 0 {
		totalParts++
	}

	db := u.db.WithContext(ctx)

	res, err := u.resume(db, req.OwnerID, req.Fingerprint)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var folderPath *string
	if req.FolderID != nil {
		folder, err := u.folders.Lookup(ctx, *req.FolderID, req.OwnerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: folder not found or access denied", ErrNotFound)
			}

			return nil, fmt.Errorf("failed to look up folder, %w", err)
		}

		folderPath = &folder.Path
	}

	key := GenerateStorageKey(req.OwnerID, req.Filename, folderPath)

	// The session is opened before anything is written so a storage failure
	// can't leave rows behind
	sessionID, err := u.storage.CreateMultipartSession(ctx, key, req.MimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate multipart upload, %w", err)
	}

	file := &model.File{
		ID:         uuid.NewString(),
		UserID:     req.OwnerID,
		Name:       req.Filename,
		Size:       req.Size,
		Mime:       req.MimeType,
		StorageKey: key,
		Status:     model.FileStatusInitiated,
		FolderID:   req.FolderID,
	}

	upload := &model.Upload{
		ID:          uuid.NewString(),
		FileID:      file.ID,
		SessionID:   sessionID,
		Fingerprint: req.Fingerprint,
		ChunkSize:   ChunkSize,
		TotalParts:  int32(totalParts),
		Status:      model.UploadStatusInProgress,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := store.NewFileStore(tx).Create(file); err != nil {
			return err
		}

		return store.NewUploadStore(tx).Create(upload)
	})
	if err != nil {
		// Nothing references the new session anymore
		u.abortSession(context.WithoutCancel(ctx), key, sessionID)

		// Someone initiated the same fingerprint between our lookup and
		// insert. Hand out their session instead
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			zap.L().Debug("Lost initiate race, resuming winner", zap.String("fingerprint", req.Fingerprint))

			if res, rerr := u.resume(db, req.OwnerID, req.Fingerprint); rerr == nil {
				return res, nil
			}
		}

		return nil, fmt.Errorf("failed to save upload records, %w", err)
	}

	zap.L().Debug("Multipart upload initiated",
		zap.String("file_id", file.ID),
		zap.String("key", key),
		zap.Int64("total_parts", totalParts))

	return &InitiateResult{
		FileID:            file.ID,
		SessionID:         sessionID,
		ChunkSize:         ChunkSize,
		TotalParts:        int32(totalParts),
		AcknowledgedParts: []model.CompletedPart{},
	}, nil
}

// resume returns gorm.ErrRecordNotFound when no upload can be resumed
func (u *Uploader) resume(db *gorm.DB, ownerID, fingerprint string) (*InitiateResult, error) {
	upload, err := store.NewUploadStore(db).FindInProgressByFingerprint(fingerprint)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to look up upload by fingerprint, %w", err)
	}

	file, err := store.NewFileStore(db).FindByID(upload.FileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load file for upload, %w", err)
	}

	if file.UserID != ownerID {
		return nil, fmt.Errorf("%w: fingerprint is in use by another upload", ErrInvalidState)
	}

	parts := make([]model.CompletedPart, len(upload.Parts))
	for i, p := range upload.Parts {
		parts[i] = model.CompletedPart{PartNumber: p.PartNumber, ETag: p.ETag}
	}

	return &InitiateResult{
		FileID:            file.ID,
		SessionID:         upload.SessionID,
		ChunkSize:         upload.ChunkSize,
		TotalParts:        upload.TotalParts,
		AcknowledgedParts: parts,
		Resumed:           true,
	}, nil
}

// PresignPart issues an upload URL for one part. Nothing is recorded, so it
// can be called as often as the client likes.
func (u *Uploader) PresignPart(ctx context.Context, fileID, ownerID string, partNumber int32) (*PresignResult, error) {
	f, err := loadActive(u.db.WithContext(ctx), fileID, ownerID)
	if err != nil {
		return nil, err
	}

	if err := checkPartNumber(partNumber, f.Upload.TotalParts); err != nil {
		return nil, err
	}

	url, err := u.storage.PresignPartUpload(ctx, f.StorageKey, f.Upload.SessionID, partNumber, u.presignExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL, %w", err)
	}

	return &PresignResult{
		URL:        url,
		PartNumber: partNumber,
		ExpiresIn:  int64(u.presignExpiry.Seconds()),
	}, nil
}

// AcknowledgePart records that a part reached the object storage. Reporting
// the same part again is a no-op, so clients can safely retry. The etag
// isn't checked here; the storage validates it when the upload completes.
func (u *Uploader) AcknowledgePart(ctx context.Context, fileID, ownerID string, partNumber int32, etag string) (*AcknowledgeResult, error) {
	if etag == "" {
		return nil, fmt.Errorf("%w: etag is required", ErrInvalidArgument)
	}

	var res AcknowledgeResult

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f, err := loadActive(tx, fileID, ownerID)
		if err != nil {
			return err
		}

		if err := checkPartNumber(partNumber, f.Upload.TotalParts); err != nil {
			return err
		}

		uploads := store.NewUploadStore(tx)

		if err := uploads.AddPart(f.Upload.ID, partNumber, etag); err != nil {
			return fmt.Errorf("failed to record part, %w", err)
		}

		n, err := uploads.CountParts(f.Upload.ID)
		if err != nil {
			return fmt.Errorf("failed to count parts, %w", err)
		}

		res = AcknowledgeResult{
			AcknowledgedCount: n,
			TotalParts:        f.Upload.TotalParts,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &res, nil
}

// Complete finalizes the multipart session with the parts the client sent,
// which don't have to match the acknowledged ones. If the storage refuses,
// the file is marked failed and the fingerprint is freed for a new attempt.
func (u *Uploader) Complete(ctx context.Context, fileID, ownerID string, parts []model.CompletedPart) (*model.File, error) {
	db := u.db.WithContext(ctx)

	f, err := loadActive(db, fileID, ownerID)
	if err != nil {
		return nil, err
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no parts provided", ErrInvalidArgument)
	}

	for _, p := range parts {
		if err := checkPartNumber(p.PartNumber, f.Upload.TotalParts); err != nil {
			return nil, err
		}
	}

	sorted := slices.Clone(parts)
	slices.SortFunc(sorted, func(a, b model.CompletedPart) int {
		return cmp.Compare(a.PartNumber, b.PartNumber)
	})

	// From here on the outcome has to be recorded even if the client goes away
	bg := context.WithoutCancel(ctx)

	gwErr := u.storage.CompleteMultipartSession(ctx, f.StorageKey, f.Upload.SessionID, sorted)
	if gwErr != nil {
		if err := u.finish(bg, f, model.FileStatusFailed, model.UploadStatusAborted); err != nil {
			zap.L().Error("Failed to mark upload as failed", zap.String("file_id", f.ID), zap.Error(err))
		}

		// The session will never be finalized, release the parts it holds
		u.abortSession(bg, f.StorageKey, f.Upload.SessionID)

		return nil, fmt.Errorf("%w: failed to complete multipart upload, %w", ErrStorageRejected, gwErr)
	}

	if err := u.finish(bg, f, model.FileStatusCompleted, model.UploadStatusCompleted); err != nil {
		// The object exists but nothing points at it anymore
		if derr := u.storage.DeleteObject(bg, f.StorageKey); derr != nil {
			zap.L().Warn("Failed to delete orphaned object", zap.String("key", f.StorageKey), zap.Error(derr))
		}

		return nil, err
	}

	zap.L().Debug("Multipart upload completed", zap.String("file_id", f.ID), zap.Int("parts", len(sorted)))

	return store.NewFileStore(u.db.WithContext(bg)).FindByID(f.ID)
}

// Abort cancels an in-progress upload. Failing to abort the remote session
// is only logged; locally the upload always ends up aborted.
func (u *Uploader) Abort(ctx context.Context, fileID, ownerID string) error {
	f, err := loadActive(u.db.WithContext(ctx), fileID, ownerID)
	if err != nil {
		return err
	}

	bg := context.WithoutCancel(ctx)
	u.abortSession(bg, f.StorageKey, f.Upload.SessionID)

	return u.finish(bg, f, model.FileStatusFailed, model.UploadStatusAborted)
}

// Status reports the progress of an upload without changing anything
func (u *Uploader) Status(ctx context.Context, fileID, ownerID string) (*StatusResult, error) {
	f, err := loadOwned(u.db.WithContext(ctx), fileID, ownerID)
	if err != nil {
		return nil, err
	}

	res := &StatusResult{
		Filename:                f.Name,
		TotalSize:               f.Size,
		Status:                  f.Status,
		AcknowledgedPartNumbers: []int32{},
	}

	if f.Upload != nil {
		res.SessionID = &f.Upload.SessionID
		res.TotalParts = f.Upload.TotalParts
		res.UploadStatus = &f.Upload.Status

		for _, p := range f.Upload.Parts {
			res.AcknowledgedPartNumbers = append(res.AcknowledgedPartNumbers, p.PartNumber)
		}
		slices.Sort(res.AcknowledgedPartNumbers)
	}

	return res, nil
}

// finish moves both records out of their in-progress states in one
// transaction. If either was already moved by a concurrent request nothing
// changes and ErrInvalidState is returned.
func (u *Uploader) finish(ctx context.Context, f *model.File, fileTo model.FileStatus, uploadTo model.UploadStatus) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := store.NewFileStore(tx).Transition(f.ID, model.FileStatusInitiated, fileTo)
		if err != nil {
			return fmt.Errorf("failed to update file status, %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: upload is not in progress", ErrInvalidState)
		}

		ok, err = store.NewUploadStore(tx).Transition(f.Upload.ID, model.UploadStatusInProgress, uploadTo)
		if err != nil {
			return fmt.Errorf("failed to update upload status, %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: upload is not in progress", ErrInvalidState)
		}

		return nil
	})
}

func (u *Uploader) abortSession(ctx context.Context, key, sessionID string) {
	err := u.storage.AbortMultipartSession(ctx, key, sessionID)
	if err != nil {
		zap.L().Warn("Failed to abort multipart upload",
			zap.String("key", key),
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}

func loadOwned(db *gorm.DB, fileID, ownerID string) (*model.File, error) {
	f, err := store.NewFileStore(db).FindOwned(fileID, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: file not found or access denied", ErrNotFound)
		}

		return nil, fmt.Errorf("failed to fetch file, %w", err)
	}

	return f, nil
}

// loadActive loads a file and makes sure it has an upload in progress
func loadActive(db *gorm.DB, fileID, ownerID string) (*model.File, error) {
	f, err := loadOwned(db, fileID, ownerID)
	if err != nil {
		return nil, err
	}

	switch f.Status {
	case model.FileStatusInitiated:
	case model.FileStatusCompleted, model.FileStatusFailed, model.FileStatusDeleted:
		return nil, fmt.Errorf("%w: upload is not in progress (file is %s)", ErrInvalidState, f.Status)
	default:
		return nil, fmt.Errorf("unknown file status %q", f.Status)
	}

	if f.Upload == nil {
		return nil, fmt.Errorf("%w: no active multipart upload for this file", ErrInvalidState)
	}

	if !f.Upload.Status.Valid() {
		return nil, fmt.Errorf("unknown upload status %q", f.Upload.Status)
	}
	if f.Upload.Status.Terminal() {
		return nil, fmt.Errorf("%w: upload is %s", ErrInvalidState, f.Upload.Status)
	}

	if f.Upload.SessionID == "" {
		return nil, fmt.Errorf("%w: no active multipart upload for this file", ErrInvalidState)
	}

	return f, nil
}

func checkPartNumber(n, total int32) error {
	if n < 1 || n > total {
		return fmt.Errorf("%w: part number must be between 1 and %d", ErrInvalidArgument, total)
	}

	return nil
}
