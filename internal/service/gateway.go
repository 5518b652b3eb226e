package service

import (
	"bitwise74/drive-api/internal/model"
	"context"
	"time"
)

// Gateway is the call boundary to the S3 compatible multipart API. Every
// method may fail with an error wrapping ErrStorageUnavailable or
// ErrStorageRejected.
type Gateway interface {
	CreateMultipartSession(ctx context.Context, key string, contentType *string) (string, error)
	// PresignPartUpload returns a URL the client can PUT a part's bytes to.
	// It stops working after ttl and mustn't be cached for longer than that
	PresignPartUpload(ctx context.Context, key, sessionID string, partNumber int32, ttl time.Duration) (string, error)
	// CompleteMultipartSession expects parts sorted by part number. It won't sort them
	CompleteMultipartSession(ctx context.Context, key, sessionID string, parts []model.CompletedPart) error
	// AbortMultipartSession treats an already finished session as aborted
	AbortMultipartSession(ctx context.Context, key, sessionID string) error
	DeleteObject(ctx context.Context, key string) error
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// FolderLookup is the boundary with the folder service
type FolderLookup interface {
	Lookup(ctx context.Context, folderID, userID string) (*model.Folder, error)
}
