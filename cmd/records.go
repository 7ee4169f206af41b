package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/illarion/safe/internal/config"
)

// Store saves an encrypted text envelope under name
func Store(ctx context.Context, cfg *config.Config, name string, args []string) {
	data, err := readArg(args, "encrypted text")
	if err != nil {
		HandleError(err)
	}

	safe, ctx := openSafe(ctx, cfg)
	defer safe.Close()

	record, err := safe.StoreRecord(ctx, name, data)
	if err != nil {
		HandleError(err)
	}
	fmt.Printf("stored: %s (%s)\n", record.Name, formatSize(record.Size()))
}

// Records lists stored record names
func Records(ctx context.Context, cfg *config.Config) {
	safe, ctx := openSafe(ctx, cfg)
	defer safe.Close()

	records, err := safe.ListRecords(ctx)
	if err != nil {
		HandleError(err)
	}

	if len(records) == 0 {
		fmt.Println("No records stored")
		return
	}

	modified, err := safe.StoreModified(ctx)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Records (store modified %s):\n", modified.Format(time.RFC3339))
	for _, record := range records {
		fmt.Printf("  %s (%s, modified %s)\n", record.Name, formatSize(record.Size()), record.Modified.Format(time.RFC3339))
	}
}

// Show decrypts and prints a record
func Show(ctx context.Context, cfg *config.Config, name string, clip bool) {
	safe, ctx := openSafe(ctx, cfg)
	defer safe.Close()

	plaintext, err := safe.ShowRecord(ctx, name)
	if err != nil {
		HandleError(err)
	}

	emit(plaintext, clip)
	safe.OfferToSaveKey()
}

// Remove deletes records from the store
func Remove(ctx context.Context, cfg *config.Config, names []string) {
	safe, ctx := openSafe(ctx, cfg)
	defer safe.Close()

	for _, name := range names {
		if err := safe.RemoveRecord(ctx, name); err != nil {
			HandleError(err)
		}
	}
}

// Diff compares a decrypted record with a local file
func Diff(ctx context.Context, cfg *config.Config, name, path string) {
	safe, ctx := openSafe(ctx, cfg)
	defer safe.Close()

	diff, err := safe.DiffRecord(ctx, name, path)
	if err != nil {
		HandleError(err)
	}

	if diff == "" {
		fmt.Printf("%s: unchanged\n", name)
		return
	}
	fmt.Print(diff)
}
