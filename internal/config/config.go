package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/erazemk/lostfound/internal/auth"
	"github.com/erazemk/lostfound/internal/db"
)

// DefaultMaxUpload caps multipart uploads at 5 MiB.
const DefaultMaxUpload = 5 << 20

// Config holds the server settings.
type Config struct {
	Addr            string
	Driver          string
	DSN             string
	LogPath         string
	AdminUser       string
	AdminEmail      string
	PasswordMode    string
	NormalizeImages bool
	MaxUploadBytes  int64
	CORSOrigins     []string
}

const usage = `Usage: lostfound [flags]

Flags:
  -a, -addr <host:port>     listen address (default: :8081)
  -driver <name>            database driver: sqlite or postgres (default: sqlite)
  -d, -db <path|url>        SQLite path or PostgreSQL URL (default: lostfound.sqlite3)
  -l, -log <path>           log file path (default: no file, stdout/stderr only)
  -u, -admin <name>         seed an admin account with this username if missing
  -admin-email <email>      email of the seeded admin (default: <admin>@localhost)
  -passwords <mode>         password storage: plain or bcrypt (default: plain)
  -normalize-images         re-encode and downscale uploaded images
  -max-upload <bytes>       maximum upload size (default: 5242880)
  -cors <origins>           comma-separated allowed origins (default: http://localhost:5173)
  -h, -help                 show this help and exit

Every flag can also be set with a LOSTFOUND_* environment variable or a .env file.
`

// Load reads .env (if present), then parses args on top of environment
// defaults. It returns flag.ErrHelp when help was requested.
func Load(args []string, out io.Writer) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	maxUpload, err := envInt("LOSTFOUND_MAX_UPLOAD", DefaultMaxUpload)
	if err != nil {
		return nil, err
	}
	normalize, err := envBool("LOSTFOUND_NORMALIZE_IMAGES", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	var cors string

	f := flag.NewFlagSet("lostfound", flag.ContinueOnError)
	f.SetOutput(out)
	f.Usage = func() { fmt.Fprint(out, usage) }

	addr := env("LOSTFOUND_ADDR", ":8081")
	f.StringVar(&cfg.Addr, "addr", addr, "")
	f.StringVar(&cfg.Addr, "a", addr, "")

	f.StringVar(&cfg.Driver, "driver", env("LOSTFOUND_DB_DRIVER", db.DriverSQLite), "")

	dsn := env("LOSTFOUND_DB", env("DATABASE_URL", "lostfound.sqlite3"))
	f.StringVar(&cfg.DSN, "db", dsn, "")
	f.StringVar(&cfg.DSN, "d", dsn, "")

	logPath := env("LOSTFOUND_LOG", "")
	f.StringVar(&cfg.LogPath, "log", logPath, "")
	f.StringVar(&cfg.LogPath, "l", logPath, "")

	admin := env("LOSTFOUND_ADMIN", "")
	f.StringVar(&cfg.AdminUser, "admin", admin, "")
	f.StringVar(&cfg.AdminUser, "u", admin, "")
	f.StringVar(&cfg.AdminEmail, "admin-email", env("LOSTFOUND_ADMIN_EMAIL", ""), "")

	f.StringVar(&cfg.PasswordMode, "passwords", env("LOSTFOUND_PASSWORDS", auth.ModePlain), "")
	f.BoolVar(&cfg.NormalizeImages, "normalize-images", normalize, "")
	f.Int64Var(&cfg.MaxUploadBytes, "max-upload", maxUpload, "")
	f.StringVar(&cors, "cors", env("LOSTFOUND_CORS_ORIGINS", "http://localhost:5173"), "")

	if err := f.Parse(args); err != nil {
		return nil, err
	}
	if f.NArg() > 0 {
		f.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", f.Arg(0))
	}

	// A PostgreSQL URL picks the postgres driver unless one was chosen.
	driverSet := env("LOSTFOUND_DB_DRIVER", "") != ""
	f.Visit(func(fl *flag.Flag) {
		if fl.Name == "driver" {
			driverSet = true
		}
	})
	if !driverSet && isPostgresURL(cfg.DSN) {
		cfg.Driver = db.DriverPostgres
	}

	cfg.CORSOrigins = splitList(cors)
	if cfg.AdminUser != "" && cfg.AdminEmail == "" {
		cfg.AdminEmail = cfg.AdminUser + "@localhost"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Driver {
	case db.DriverSQLite, db.DriverPostgres:
	default:
		return fmt.Errorf("unknown database driver %q", c.Driver)
	}
	switch c.PasswordMode {
	case auth.ModePlain, auth.ModeBcrypt:
	default:
		return fmt.Errorf("unknown password mode %q", c.PasswordMode)
	}
	if c.Driver == db.DriverSQLite && isPostgresURL(c.DSN) {
		return fmt.Errorf("driver sqlite cannot open PostgreSQL URL %q", c.DSN)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

func env(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int64) (int64, error) {
	v := env(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := env(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return b, nil
}

func isPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
