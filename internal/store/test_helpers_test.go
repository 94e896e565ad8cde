// ABOUTME: Shared fixtures for store tests
// ABOUTME: Provides mapped dialers so md: DSNs resolve to throwaway local files

package store

import (
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testToken = "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJ0ZXN0In0.c2ln"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mappedDial routes every md: DSN to a file-backed database under dir, so
// sync tests exercise a real second database that survives connection
// close/reopen cycles without touching the network.
func mappedDial(dir string) dialFunc {
	cloudPath := filepath.Join(dir, "cloud.db")
	return func(dsn string) (*sql.DB, error) {
		if strings.HasPrefix(dsn, "md:") {
			return duckdbDial(cloudPath)
		}
		return duckdbDial(dsn)
	}
}

// refusingDial fails every md: DSN and serves local paths normally.
func refusingDial(err error) dialFunc {
	return func(dsn string) (*sql.DB, error) {
		if strings.HasPrefix(dsn, "md:") {
			return nil, err
		}
		return duckdbDial(dsn)
	}
}

func noopAttach(*sql.DB, string) error { return nil }

func newLocalDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{Path: MemoryPath, Mode: ModeLocal}, testLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// newHybridDB opens a hybrid-mode DB whose cloud side is a file in the same
// temp directory. The returned path is the fake cloud database file.
func newHybridDB(t *testing.T) (*DB, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		Path:  filepath.Join(dir, "local.db"),
		Mode:  ModeHybrid,
		Token: testToken,
	}
	db, err := open(cfg, mappedDial(dir), noopAttach, testLogger())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, filepath.Join(dir, "cloud.db")
}

func mustEnvelope(t *testing.T, db *DB, category string, budgeted, starting float64) Envelope {
	t.Helper()
	e, err := db.CreateEnvelope(category, budgeted, starting, "")
	if err != nil {
		t.Fatalf("CreateEnvelope(%q) failed: %v", category, err)
	}
	return e
}

func mustTransaction(t *testing.T, db *DB, envelopeID int64, amount float64, date string, txType string) Transaction {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		t.Fatalf("bad test date %q: %v", date, err)
	}
	txn, err := db.CreateTransaction(envelopeID, amount, "", d, txType)
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	return txn
}
