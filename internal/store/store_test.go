package store

import (
	"bitwise74/drive-api/db"
	"bitwise74/drive-api/internal/model"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := db.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", uuid.NewString()))
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)

	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return gdb
}

func seed(t *testing.T, gdb *gorm.DB, owner, fingerprint string) (*model.File, *model.Upload) {
	t.Helper()

	f := &model.File{
		ID:         uuid.NewString(),
		UserID:     owner,
		Name:       "a.bin",
		Size:       10,
		StorageKey: "users/" + owner + "/" + uuid.NewString(),
		Status:     model.FileStatusInitiated,
	}
	require.NoError(t, NewFileStore(gdb).Create(f))

	u := &model.Upload{
		ID:          uuid.NewString(),
		FileID:      f.ID,
		SessionID:   "s-" + f.ID,
		Fingerprint: fingerprint,
		ChunkSize:   5 << 20,
		TotalParts:  4,
		Status:      model.UploadStatusInProgress,
	}
	require.NoError(t, NewUploadStore(gdb).Create(u))

	return f, u
}

func TestUploadFingerprintUniqueWhileInProgress(t *testing.T) {
	gdb := newTestDB(t)
	_, first := seed(t, gdb, "u1", "fp")

	f := &model.File{ID: uuid.NewString(), UserID: "u1", Name: "b", Size: 1, StorageKey: "k2", Status: model.FileStatusInitiated}
	require.NoError(t, NewFileStore(gdb).Create(f))

	dup := &model.Upload{ID: uuid.NewString(), FileID: f.ID, SessionID: "s2", Fingerprint: "fp", ChunkSize: 1, TotalParts: 1, Status: model.UploadStatusInProgress}
	assert.ErrorIs(t, NewUploadStore(gdb).Create(dup), gorm.ErrDuplicatedKey)

	ok, err := NewUploadStore(gdb).Transition(first.ID, model.UploadStatusInProgress, model.UploadStatusAborted)
	require.NoError(t, err)
	require.True(t, ok)

	assert.NoError(t, NewUploadStore(gdb).Create(dup))
}

func TestFindInProgressByFingerprint(t *testing.T) {
	gdb := newTestDB(t)
	uploads := NewUploadStore(gdb)
	_, u := seed(t, gdb, "u1", "fp")

	require.NoError(t, uploads.AddPart(u.ID, 3, "e3"))
	require.NoError(t, uploads.AddPart(u.ID, 1, "e1"))

	found, err := uploads.FindInProgressByFingerprint("fp")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	require.Len(t, found.Parts, 2)
	assert.EqualValues(t, 1, found.Parts[0].PartNumber)
	assert.EqualValues(t, 3, found.Parts[1].PartNumber)

	_, err = uploads.FindInProgressByFingerprint("other")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAddPartKeepsFirstETag(t *testing.T) {
	gdb := newTestDB(t)
	uploads := NewUploadStore(gdb)
	_, u := seed(t, gdb, "u1", "fp")

	require.NoError(t, uploads.AddPart(u.ID, 2, "first"))
	require.NoError(t, uploads.AddPart(u.ID, 2, "second"))

	n, err := uploads.CountParts(u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var p model.Part
	require.NoError(t, gdb.First(&p, "upload_id = ? AND part_number = ?", u.ID, 2).Error)
	assert.Equal(t, "first", p.ETag)
}

func TestFileTransition(t *testing.T) {
	gdb := newTestDB(t)
	files := NewFileStore(gdb)
	f, _ := seed(t, gdb, "u1", "fp")

	ok, err := files.Transition(f.ID, model.FileStatusInitiated, model.FileStatusCompleted)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second writer loses
	ok, err = files.Transition(f.ID, model.FileStatusInitiated, model.FileStatusFailed)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := files.FindByID(f.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FileStatusCompleted, got.Status)
}

func TestFindOwned(t *testing.T) {
	gdb := newTestDB(t)
	files := NewFileStore(gdb)
	f, u := seed(t, gdb, "u1", "fp")

	require.NoError(t, NewUploadStore(gdb).AddPart(u.ID, 1, "e1"))

	got, err := files.FindOwned(f.ID, "u1")
	require.NoError(t, err)
	require.NotNil(t, got.Upload)
	assert.Equal(t, u.SessionID, got.Upload.SessionID)
	assert.Len(t, got.Upload.Parts, 1)

	_, err = files.FindOwned(f.ID, "u2")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListStale(t *testing.T) {
	gdb := newTestDB(t)
	files := NewFileStore(gdb)

	old, _ := seed(t, gdb, "u1", "fp-old")
	_, _ = seed(t, gdb, "u1", "fp-new")

	require.NoError(t, gdb.Model(&model.File{}).Where("id = ?", old.ID).UpdateColumn("updated_at", time.Now().Add(-13*time.Hour)).Error)

	stale, err := files.ListStale(time.Now().Add(-12 * time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
	assert.Equal(t, "u1", stale[0].UserID)
}

func TestFolderLookup(t *testing.T) {
	gdb := newTestDB(t)
	require.NoError(t, gdb.Create(&model.Folder{ID: "f1", UserID: "u1", Name: "x", Path: "/x"}).Error)

	folders := NewFolderStore(gdb)

	f, err := folders.Lookup(context.Background(), "f1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "/x", f.Path)

	_, err = folders.Lookup(context.Background(), "f1", "u2")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFileListPages(t *testing.T) {
	gdb := newTestDB(t)
	files := NewFileStore(gdb)

	var ids []string
	for i := range 3 {
		f, _ := seed(t, gdb, "u1", fmt.Sprintf("fp-%d", i))
		require.NoError(t, gdb.Model(f).UpdateColumn("created_at", time.Now().Add(time.Duration(i)*time.Minute)).Error)
		ids = append(ids, f.ID)
	}

	failed, _ := seed(t, gdb, "u1", "fp-failed")
	_, err := files.Transition(failed.ID, model.FileStatusInitiated, model.FileStatusFailed)
	require.NoError(t, err)

	page, err := files.List("u1", nil, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	page, err = files.List("u1", nil, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)
}

func TestFileNameTakenAndPlace(t *testing.T) {
	gdb := newTestDB(t)
	require.NoError(t, gdb.Create(&model.Folder{ID: "f1", UserID: "u1", Name: "x", Path: "/x"}).Error)

	files := NewFileStore(gdb)
	a, _ := seed(t, gdb, "u1", "fp-a")
	b, _ := seed(t, gdb, "u1", "fp-b")

	taken, err := files.NameTaken("u1", "a.bin", nil, a.ID)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = files.NameTaken("u2", "a.bin", nil, "")
	require.NoError(t, err)
	assert.False(t, taken)

	folder := "f1"
	require.NoError(t, files.Place(b.ID, "b.bin", &folder))

	got, err := files.FindByID(b.ID)
	require.NoError(t, err)
	assert.Equal(t, "b.bin", got.Name)
	require.NotNil(t, got.FolderID)
	assert.Equal(t, "f1", *got.FolderID)

	taken, err = files.NameTaken("u1", "b.bin", &folder, a.ID)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = files.NameTaken("u1", "b.bin", nil, a.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	require.NoError(t, files.Place(b.ID, "b.bin", nil))
	got, err = files.FindByID(b.ID)
	require.NoError(t, err)
	assert.Nil(t, got.FolderID)
}
