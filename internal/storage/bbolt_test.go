package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Storage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.safe")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}
	return db
}

func TestOpenAndInitialize(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.safe")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	initialized, err := db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if initialized {
		t.Error("Fresh database should not be initialized")
	}

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	initialized, err = db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if !initialized {
		t.Error("Database should be initialized")
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	db := openTestStore(t)

	if _, err := db.PutRecord("kept", "data"); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}

	if err := db.Initialize(); err != nil {
		t.Fatalf("Second initialize failed: %v", err)
	}

	if _, err := db.GetRecord("kept"); err != nil {
		t.Errorf("Record lost after re-initialize: %v", err)
	}
}

func TestStoreID(t *testing.T) {
	db := openTestStore(t)

	if _, err := db.GetStoreID(); err == nil {
		t.Fatal("Expected error before store ID is created")
	}

	id, err := db.GetOrCreateStoreID()
	if err != nil {
		t.Fatalf("Failed to create store ID: %v", err)
	}
	if len(id) != 36 {
		t.Errorf("Store ID should be a UUID, got %q", id)
	}

	again, err := db.GetOrCreateStoreID()
	if err != nil {
		t.Fatalf("Failed to get store ID: %v", err)
	}
	if again != id {
		t.Errorf("Store ID changed: %q -> %q", id, again)
	}
}

func TestRecordOperations(t *testing.T) {
	db := openTestStore(t)

	record, err := db.PutRecord("bank", "data:application/octet-binary;base64,AAAA")
	if err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}
	if record.Size() != 4 {
		t.Errorf("Size should count only the envelope, got %d", record.Size())
	}

	got, err := db.GetRecord("bank")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if got.Data != record.Data {
		t.Errorf("Data mismatch: got %q, want %q", got.Data, record.Data)
	}

	if err := db.DeleteRecord("bank"); err != nil {
		t.Fatalf("Failed to delete record: %v", err)
	}

	if _, err := db.GetRecord("bank"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}

	if err := db.DeleteRecord("bank"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound deleting twice, got %v", err)
	}
}

func TestPutRecordReplacesAndKeepsCreated(t *testing.T) {
	db := openTestStore(t)

	first, err := db.PutRecord("note", "old")
	if err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	second, err := db.PutRecord("note", "new")
	if err != nil {
		t.Fatalf("Failed to replace record: %v", err)
	}

	if !second.Created.Equal(first.Created) {
		t.Errorf("Created changed on replace: %v -> %v", first.Created, second.Created)
	}
	if !second.Modified.After(first.Modified) {
		t.Errorf("Modified should advance: %v -> %v", first.Modified, second.Modified)
	}

	records, err := db.ListRecords()
	if err != nil {
		t.Fatalf("Failed to list records: %v", err)
	}
	if len(records) != 1 || records[0].Data != "new" {
		t.Errorf("Expected single replaced record, got %+v", records)
	}
}

func TestListRecordsSorted(t *testing.T) {
	db := openTestStore(t)

	for _, name := range []string{"zeta", "alpha", "Mid", "beta"} {
		if _, err := db.PutRecord(name, "data-"+name); err != nil {
			t.Fatalf("Failed to put %s: %v", name, err)
		}
	}

	records, err := db.ListRecords()
	if err != nil {
		t.Fatalf("Failed to list records: %v", err)
	}

	var names []string
	for _, r := range records {
		names = append(names, r.Name)
	}
	if got := strings.Join(names, ","); got != "Mid,alpha,beta,zeta" {
		t.Errorf("Unexpected order: %s", got)
	}
}

func TestInvalidNames(t *testing.T) {
	db := openTestStore(t)

	for _, name := range []string{"", "   ", strings.Repeat("x", MaxNameLength+1)} {
		if _, err := db.PutRecord(name, "data"); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Expected ErrInvalidName for %q, got %v", name, err)
		}
	}
}

func TestModifiedAdvances(t *testing.T) {
	db := openTestStore(t)

	before, err := db.GetModified()
	if err != nil {
		t.Fatalf("Failed to get modified: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := db.PutRecord("x", "y"); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}

	after, err := db.GetModified()
	if err != nil {
		t.Fatalf("Failed to get modified: %v", err)
	}
	if !after.After(before) {
		t.Errorf("Modified should advance: %v -> %v", before, after)
	}
}

func TestCompact(t *testing.T) {
	db := openTestStore(t)

	big := strings.Repeat("A", 64*1024)
	for i := 0; i < 20; i++ {
		name := "bulk-" + string(rune('a'+i))
		if _, err := db.PutRecord(name, big); err != nil {
			t.Fatalf("Failed to put record: %v", err)
		}
	}
	if _, err := db.PutRecord("survivor", "kept"); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}
	for i := 0; i < 20; i++ {
		if err := db.DeleteRecord("bulk-" + string(rune('a'+i))); err != nil {
			t.Fatalf("Failed to delete record: %v", err)
		}
	}

	info, err := os.Stat(db.Path())
	if err != nil {
		t.Fatalf("Failed to stat database: %v", err)
	}
	sizeBefore := info.Size()

	if err := db.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}

	info, err = os.Stat(db.Path())
	if err != nil {
		t.Fatalf("Failed to stat database: %v", err)
	}
	if info.Size() > sizeBefore {
		t.Errorf("Compacted database grew: %d -> %d", sizeBefore, info.Size())
	}

	record, err := db.GetRecord("survivor")
	if err != nil {
		t.Fatalf("Record lost during compaction: %v", err)
	}
	if record.Data != "kept" {
		t.Errorf("Data mismatch after compaction: %q", record.Data)
	}
}

func TestCompactIgnoresStaleTempFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.safe")

	// Leftover of an interrupted compaction that still holds "gone".
	stale, err := Open(dbPath + ".compact")
	if err != nil {
		t.Fatalf("Failed to open stale database: %v", err)
	}
	if err := stale.Initialize(); err != nil {
		t.Fatalf("Failed to initialize stale database: %v", err)
	}
	if _, err := stale.PutRecord("gone", "old"); err != nil {
		t.Fatalf("Failed to put stale record: %v", err)
	}
	stale.Close()

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	if _, err := db.PutRecord("gone", "new"); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}
	if err := db.DeleteRecord("gone"); err != nil {
		t.Fatalf("Failed to delete record: %v", err)
	}
	if err := db.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}

	records, err := db.ListRecords()
	if err != nil {
		t.Fatalf("Failed to list records: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Deleted record came back after compaction: %+v", records)
	}
	if _, err := db.GetRecord("gone"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}

func TestCloseWithoutHandle(t *testing.T) {
	var db Storage
	if err := db.Close(); err != nil {
		t.Errorf("Close without an open handle should succeed, got %v", err)
	}
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.safe")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}
	id, err := db.GetOrCreateStoreID()
	if err != nil {
		t.Fatalf("Failed to create store ID: %v", err)
	}
	if _, err := db.PutRecord("test", "data"); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}
	db.Close()

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db2.Close()

	gotID, err := db2.GetStoreID()
	if err != nil {
		t.Fatalf("Failed to get store ID: %v", err)
	}
	if gotID != id {
		t.Errorf("Store ID not persisted: %q vs %q", gotID, id)
	}

	record, err := db2.GetRecord("test")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if record.Data != "data" {
		t.Error("Record data not persisted correctly")
	}
}
