package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/illarion/safe/internal/config"
	"github.com/illarion/safe/internal/core"
	"github.com/illarion/safe/internal/logger"
)

// Compact rewrites the record store to reclaim space left by removed records
func Compact(ctx context.Context, cfg *config.Config) {
	sizeBefore, err := storeSize(cfg.StorePath)
	if err != nil {
		HandleError(err)
	}

	safe, ctx := openSafe(ctx, cfg)
	defer safe.Close()

	if err := safe.Compact(ctx); err != nil {
		HandleError(err)
	}

	sizeAfter, err := storeSize(cfg.StorePath)
	if err != nil {
		HandleError(err)
	}

	logger.FromContext(ctx).Debug().
		Int64("before", sizeBefore).
		Int64("after", sizeAfter).
		Msg("store compacted")
	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(sizeAfter))
}

func storeSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, core.ErrNoStore
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
