package service

import (
	"bitwise74/drive-api/internal/store"
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UploadCleanup schedules a periodic sweep of uploads that were started but
// never finished. The first sweep runs in the background right away. The
// returned scheduler is already running, call Stop on it during shutdown.
func UploadCleanup(every, staleAfter time.Duration, db *gorm.DB, u *Uploader) (*cron.Cron, error) {
	c := cron.New()

	sweep := func() {
		SweepStaleUploads(context.Background(), db, u, staleAfter)
	}

	_, err := c.AddFunc(fmt.Sprintf("@every %s", every), sweep)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule upload cleanup, %w", err)
	}

	go sweep()
	c.Start()

	zap.L().Debug("Upload cleanup attached",
		zap.Duration("tick_every", every),
		zap.Duration("stale_after", staleAfter))

	return c, nil
}

// SweepStaleUploads aborts every upload that has been sitting in the
// initiated state for longer than staleAfter. A failure on one file is logged
// and the sweep moves on. Returns how many uploads were aborted.
func SweepStaleUploads(ctx context.Context, db *gorm.DB, u *Uploader, staleAfter time.Duration) int {
	stale, err := store.NewFileStore(db.WithContext(ctx)).ListStale(time.Now().Add(-staleAfter))
	if err != nil {
		zap.L().Error("Failed to query db for stale uploads", zap.Error(err))
		return 0
	}

	if len(stale) == 0 {
		return 0
	}

	zap.L().Debug("Cleaning up stale uploads", zap.Int("count", len(stale)))

	var n int
	for _, f := range stale {
		if err := u.Abort(ctx, f.ID, f.UserID); err != nil {
			zap.L().Error("Failed to abort stale upload", zap.String("file_id", f.ID), zap.Error(err))
			continue
		}

		n++
	}

	return n
}
