// ABOUTME: Connection mode parsing and configuration validation for the store
// ABOUTME: Pure checks that run to completion before any file or network I/O

package store

import (
	"fmt"
	"regexp"
	"strings"
)

// Mode selects which backend(s) a DB connects to.
type Mode string

const (
	// ModeLocal stores data only in a DuckDB file on this machine.
	ModeLocal Mode = "local"

	// ModeCloud stores data only in a MotherDuck-hosted database.
	ModeCloud Mode = "cloud"

	// ModeHybrid uses a local file as primary with an on-demand cloud mirror.
	ModeHybrid Mode = "hybrid"
)

// MemoryPath is the path marker for an in-memory database.
const MemoryPath = ":memory:"

// DefaultDatabase is the MotherDuck database name used when none is configured.
const DefaultDatabase = "budget_app"

// MaxDatabaseNameLen is MotherDuck's database name length limit.
const MaxDatabaseNameLen = 63

var databaseNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ParseMode normalizes a mode string. Input is case-insensitive; the
// canonical form is lowercase.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLocal:
		return ModeLocal, nil
	case ModeCloud:
		return ModeCloud, nil
	case ModeHybrid:
		return ModeHybrid, nil
	}
	return "", fmt.Errorf("%w: %q (must be local, cloud, or hybrid)", ErrInvalidMode, s)
}

// RequiresToken reports whether the mode needs a MotherDuck token.
func (m Mode) RequiresToken() bool {
	return m == ModeCloud || m == ModeHybrid
}

// Config is the immutable input to Open.
type Config struct {
	// Path is the local DuckDB file, or MemoryPath for an in-memory database.
	Path string

	// Mode selects the backend(s). Must already be canonical; use ParseMode
	// on untrusted input.
	Mode Mode

	// Token authenticates against MotherDuck. Required for cloud and hybrid.
	Token string

	// Database is the MotherDuck database name. Empty means DefaultDatabase.
	Database string
}

// Validate checks the configuration without performing any I/O. It must pass
// before a connection is attempted.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeLocal, ModeCloud, ModeHybrid:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, string(c.Mode))
	}

	if c.Mode.RequiresToken() {
		if c.Token == "" {
			return fmt.Errorf("%w for %s mode", ErrMissingToken, c.Mode)
		}
		if err := validateToken(c.Token); err != nil {
			return err
		}
	}

	if _, err := c.databaseName(); err != nil {
		return err
	}
	return nil
}

// validateToken accepts two token shapes: a JWT-like token (three
// dot-separated non-empty segments, the first carrying the standard base64
// header prefix) taken on faith without signature verification, and the
// legacy service-token form (at least 32 characters drawn from hex digits
// plus '.', '_', '-').
func validateToken(token string) error {
	parts := strings.Split(token, ".")
	if len(parts) == 3 {
		jwtLike := strings.HasPrefix(parts[0], "eyJ")
		for _, p := range parts {
			if p == "" {
				jwtLike = false
				break
			}
		}
		if jwtLike {
			return nil
		}
	}

	if len(token) >= 32 && isLegacyToken(token) {
		return nil
	}
	return ErrInvalidToken
}

func isLegacyToken(token string) bool {
	for _, r := range token {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		case r == '.' || r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

// databaseName returns the validated MotherDuck database name.
func (c Config) databaseName() (string, error) {
	name := strings.TrimSpace(c.Database)
	if name == "" {
		name = DefaultDatabase
	}
	if len(name) > MaxDatabaseNameLen {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidDatabaseName, MaxDatabaseNameLen)
	}
	if !databaseNameRe.MatchString(name) {
		return "", fmt.Errorf("%w: %q must start with a letter and contain only letters, digits, and underscores", ErrInvalidDatabaseName, name)
	}
	return name, nil
}

// localDSN is the DSN for the local backend. DuckDB treats an empty DSN as an
// in-memory database.
func (c Config) localDSN() string {
	if c.Path == MemoryPath {
		return ""
	}
	return c.Path
}

// cloudDSN is the DSN for a direct connection to the configured MotherDuck
// database. The caller must have validated the config.
func (c Config) cloudDSN() string {
	name, _ := c.databaseName()
	return fmt.Sprintf("md:%s?motherduck_token=%s", name, c.Token)
}

// bootstrapDSN connects to the MotherDuck endpoint without naming a database,
// which is the only way to create one that does not exist yet.
func (c Config) bootstrapDSN() string {
	return fmt.Sprintf("md:?motherduck_token=%s", c.Token)
}
