package service

import (
	"bitwise74/drive-api/db"
	"bitwise74/drive-api/internal/model"
	"bitwise74/drive-api/internal/store"
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", uuid.NewString())

	gdb, err := db.Open("sqlite", dsn)
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)

	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return gdb
}

// fakeGateway records every call and hands out sequential session ids
type fakeGateway struct {
	mu sync.Mutex

	sessions  int
	created   []string
	completed map[string][]model.CompletedPart
	aborted   []string
	deleted   []string

	createErr   error
	completeErr error
	abortErr    error

	// onCreate runs after a session was handed out, before Initiate saves it
	onCreate func()
	// onComplete runs after a session was finalized, before Complete saves it
	onComplete func()
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{completed: make(map[string][]model.CompletedPart)}
}

func (g *fakeGateway) CreateMultipartSession(_ context.Context, key string, _ *string) (string, error) {
	g.mu.Lock()
	if g.createErr != nil {
		g.mu.Unlock()
		return "", g.createErr
	}

	g.sessions++
	id := fmt.Sprintf("session-%d", g.sessions)
	g.created = append(g.created, key)
	hook := g.onCreate
	g.mu.Unlock()

	if hook != nil {
		hook()
	}

	return id, nil
}

func (g *fakeGateway) PresignPartUpload(_ context.Context, key, sessionID string, partNumber int32, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://storage.test/%s?uploadId=%s&partNumber=%d&ttl=%d", key, sessionID, partNumber, int(ttl.Seconds())), nil
}

func (g *fakeGateway) CompleteMultipartSession(_ context.Context, _, sessionID string, parts []model.CompletedPart) error {
	g.mu.Lock()
	if g.completeErr != nil {
		g.mu.Unlock()
		return g.completeErr
	}

	g.completed[sessionID] = slices.Clone(parts)
	hook := g.onComplete
	g.mu.Unlock()

	if hook != nil {
		hook()
	}

	return nil
}

func (g *fakeGateway) AbortMultipartSession(_ context.Context, _, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.aborted = append(g.aborted, sessionID)
	return g.abortErr
}

func (g *fakeGateway) DeleteObject(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.deleted = append(g.deleted, key)
	return nil
}

func (g *fakeGateway) PresignDownload(_ context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://storage.test/%s?ttl=%d", key, int(ttl.Seconds())), nil
}

func newTestUploader(t *testing.T) (*Uploader, *fakeGateway, *gorm.DB) {
	t.Helper()

	gdb := newTestDB(t)
	g := newFakeGateway()

	return NewUploader(gdb, g, store.NewFolderStore(gdb)), g, gdb
}

func initiateReq(owner, fingerprint string, size int64) InitiateRequest {
	return InitiateRequest{
		OwnerID:     owner,
		Filename:    "video.mp4",
		Size:        size,
		Fingerprint: fingerprint,
		MimeType:    strPtr("video/mp4"),
	}
}

func loadFile(t *testing.T, gdb *gorm.DB, id string) *model.File {
	t.Helper()

	var f model.File
	require.NoError(t, gdb.Preload("Upload").First(&f, "id = ?", id).Error)

	return &f
}

// completedFile runs a full two part upload and returns the file id
func completedFile(t *testing.T, u *Uploader, owner, fingerprint string) string {
	t.Helper()

	ctx := context.Background()

	res, err := u.Initiate(ctx, initiateReq(owner, fingerprint, ChunkSize+1))
	require.NoError(t, err)

	parts := []model.CompletedPart{{PartNumber: 1, ETag: "e1"}, {PartNumber: 2, ETag: "e2"}}
	for _, p := range parts {
		_, err := u.AcknowledgePart(ctx, res.FileID, owner, p.PartNumber, p.ETag)
		require.NoError(t, err)
	}

	_, err = u.Complete(ctx, res.FileID, owner, parts)
	require.NoError(t, err)

	return res.FileID
}
