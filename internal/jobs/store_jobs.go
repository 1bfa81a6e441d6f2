package jobs

import (
	"bytes"
	"context"
	"errors"
	"path"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/repository"
	"toolshare-backend/internal/repository/csvfile"
	"toolshare-backend/internal/repository/memory"
)

const exportTimestampLayout = "20060102T150405Z"

// ExportSnapshot writes every collection as CSV under exports/<timestamp>/.
// Password hashes are blanked.
func (jr *JobRunner) ExportSnapshot() error {
	return jr.runWithRecovery("ExportSnapshot", func(ctx context.Context) error {
		_, err := jr.exportSnapshot(ctx)
		return err
	})
}

func (jr *JobRunner) exportSnapshot(ctx context.Context) (string, error) {
	if jr.blobs == nil {
		return "", errors.New("no blob storage configured")
	}

	var snap memory.Snapshot
	err := jr.store.View(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		if snap.Users, err = repos.Users().FindWhere(ctx, domain.UserFilter{}); err != nil {
			return err
		}
		if snap.Tools, err = repos.Tools().FindWhere(ctx, domain.ToolFilter{}); err != nil {
			return err
		}
		if snap.Bookings, err = repos.Bookings().FindWhere(ctx, domain.BookingFilter{}); err != nil {
			return err
		}
		snap.Swaps, err = repos.Swaps().FindWhere(ctx, domain.SwapFilter{})
		return err
	})
	if err != nil {
		return "", err
	}

	// exports leave the credential store
	for i := range snap.Users {
		snap.Users[i].PasswordHash = ""
	}
	files, err := csvfile.EncodeSnapshot(snap)
	if err != nil {
		return "", err
	}
	prefix := path.Join("exports", jr.now().UTC().Format(exportTimestampLayout))
	for _, name := range csvfile.Files {
		key := path.Join(prefix, name)
		if err := jr.blobs.Put(ctx, key, bytes.NewReader(files[name]), "text/csv"); err != nil {
			return "", err
		}
	}
	logger.InfoContext(ctx, "Snapshot exported", "location", jr.blobs.Location(), "prefix", prefix,
		"users", len(snap.Users), "tools", len(snap.Tools), "bookings", len(snap.Bookings), "swaps", len(snap.Swaps))
	return prefix, nil
}

// CheckStoreHealth pings the store. Inside the server process the result
// also drives the gRPC health status.
func (jr *JobRunner) CheckStoreHealth() error {
	return jr.runWithRecovery("CheckStoreHealth", func(ctx context.Context) error {
		if jr.health != nil {
			return jr.health.CheckStore(ctx)
		}
		return jr.store.Ping(ctx)
	})
}
