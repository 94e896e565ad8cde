// ABOUTME: Tests for connection establishment across the three modes
// ABOUTME: Covers fallback, double failure, and hybrid probe/attach independence

package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenLocal_EndToEnd(t *testing.T) {
	db := newLocalDB(t)

	state := db.State()
	if state.RequestedMode != ModeLocal || state.EffectiveMode != ModeLocal {
		t.Errorf("state modes = %q/%q, want local/local", state.RequestedMode, state.EffectiveMode)
	}
	if state.CloudConnected || state.Fallback {
		t.Errorf("local mode should have no cloud flags: %+v", state)
	}

	env := mustEnvelope(t, db, "Groceries", 500, 100)
	mustTransaction(t, db, env.ID, 40, "2026-01-15", TypeExpense)

	balance, err := db.CurrentBalance(env.ID)
	if err != nil {
		t.Fatalf("CurrentBalance failed: %v", err)
	}
	if balance != 60 {
		t.Errorf("balance = %v, want 60", balance)
	}
}

func TestOpenLocal_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "budget.db")

	db, err := Open(Config{Path: path, Mode: ModeLocal}, testLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestOpenCloud_FallsBackToLocal(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Path:  filepath.Join(dir, "local.db"),
		Mode:  ModeCloud,
		Token: testToken,
	}

	db, err := open(cfg, refusingDial(errors.New("connection refused")), noopAttach, testLogger())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer db.Close()

	state := db.State()
	if state.RequestedMode != ModeCloud {
		t.Errorf("RequestedMode = %q, want cloud", state.RequestedMode)
	}
	if state.EffectiveMode != ModeLocal {
		t.Errorf("EffectiveMode = %q, want local", state.EffectiveMode)
	}
	if !state.Fallback {
		t.Error("Fallback not set")
	}
	if state.CloudConnected {
		t.Error("CloudConnected should be false after fallback")
	}

	// The fallback connection is fully usable.
	if _, err := db.CreateEnvelope("Rent", 1200, 0, ""); err != nil {
		t.Errorf("CreateEnvelope on fallback connection failed: %v", err)
	}

	status := db.ConnectionStatus()
	if status.Warning == "" {
		t.Error("ConnectionStatus.Warning empty after fallback")
	}
	if !strings.Contains(status.Warning, "cloud") {
		t.Errorf("Warning %q does not mention the requested mode", status.Warning)
	}
}

func TestOpenCloud_DoubleFailurePropagatesLocalError(t *testing.T) {
	localErr := errors.New("disk full")
	dial := func(dsn string) (*sql.DB, error) {
		if strings.HasPrefix(dsn, "md:") {
			return nil, errors.New("connection refused")
		}
		return nil, localErr
	}

	cfg := Config{Path: MemoryPath, Mode: ModeCloud, Token: testToken}
	_, err := open(cfg, dial, noopAttach, testLogger())
	if err == nil {
		t.Fatal("open succeeded with both backends failing")
	}
	if !errors.Is(err, localErr) {
		t.Errorf("error = %v, want the local error to propagate", err)
	}
}

func TestOpenCloud_Success(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Path:  filepath.Join(dir, "local.db"),
		Mode:  ModeCloud,
		Token: testToken,
	}

	db, err := open(cfg, mappedDial(dir), noopAttach, testLogger())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer db.Close()

	state := db.State()
	if state.EffectiveMode != ModeCloud || !state.CloudConnected {
		t.Errorf("state = %+v, want cloud mode with CloudConnected", state)
	}
	if state.Fallback {
		t.Error("Fallback set on a successful cloud connection")
	}

	// The local file must never have been created: cloud mode writes only
	// to the cloud database.
	if _, err := os.Stat(cfg.Path); !os.IsNotExist(err) {
		t.Error("local database file created in cloud mode")
	}
}

func TestOpenHybrid_CloudReachable(t *testing.T) {
	db, _ := newHybridDB(t)

	state := db.State()
	if state.EffectiveMode != ModeHybrid {
		t.Errorf("EffectiveMode = %q, want hybrid", state.EffectiveMode)
	}
	if !state.CloudConnected {
		t.Error("CloudConnected false with a reachable cloud")
	}
	if !state.CatalogAttached {
		t.Error("CatalogAttached false with a successful attach")
	}
}

func TestOpenHybrid_CloudUnreachable(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Path:  filepath.Join(dir, "local.db"),
		Mode:  ModeHybrid,
		Token: testToken,
	}

	db, err := open(cfg, refusingDial(errors.New("no route to host")), noopAttach, testLogger())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer db.Close()

	state := db.State()
	if state.EffectiveMode != ModeHybrid {
		t.Errorf("EffectiveMode = %q, want hybrid (local primary still works)", state.EffectiveMode)
	}
	if state.CloudConnected || state.CatalogAttached {
		t.Errorf("cloud flags set with unreachable cloud: %+v", state)
	}
	if state.Fallback {
		t.Error("hybrid mode with working local primary is not a fallback")
	}
}

func TestOpenHybrid_AttachFailureKeepsCloudConnected(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Path:  filepath.Join(dir, "local.db"),
		Mode:  ModeHybrid,
		Token: testToken,
	}
	failAttach := func(*sql.DB, string) error { return errors.New("extension install failed") }

	db, err := open(cfg, mappedDial(dir), failAttach, testLogger())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer db.Close()

	state := db.State()
	if !state.CloudConnected {
		t.Error("CloudConnected false; probe succeeded so it must be true")
	}
	if state.CatalogAttached {
		t.Error("CatalogAttached true despite attach failure")
	}
}

func TestOpenHybrid_LocalFailureIsFatal(t *testing.T) {
	dial := func(dsn string) (*sql.DB, error) {
		if strings.HasPrefix(dsn, "md:") {
			return duckdbDial("")
		}
		return nil, errors.New("permission denied")
	}
	cfg := Config{Path: filepath.Join(t.TempDir(), "budget.db"), Mode: ModeHybrid, Token: testToken}
	if _, err := open(cfg, dial, noopAttach, testLogger()); err == nil {
		t.Fatal("open succeeded without a local primary")
	}
}

func TestState_ReturnsCopy(t *testing.T) {
	db := newLocalDB(t)

	first := db.State()
	first.Info["primary"] = "tampered"

	if db.State().Info["primary"] != "local" {
		t.Error("mutating a returned state leaked into the DB")
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want error
	}{
		{"bad mode", Config{Path: MemoryPath, Mode: "remote"}, ErrInvalidMode},
		{"missing token", Config{Path: MemoryPath, Mode: ModeHybrid}, ErrMissingToken},
		{"bad token", Config{Path: MemoryPath, Mode: ModeCloud, Token: "short"}, ErrInvalidToken},
		{"bad database", Config{Path: MemoryPath, Mode: ModeCloud, Token: testToken, Database: "1bad"}, ErrInvalidDatabaseName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Open(tc.cfg, testLogger()); !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}
}
