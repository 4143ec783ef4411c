// Package database provides sqlite connection and session management using GORM.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DriverName is the registered name of the sqlite driver carrying the
// scalar UDF and the optional vector extension.
const DriverName = "wisp_sqlite3"

// ErrUnsupportedDriver indicates the database URL uses an unsupported driver.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

var (
	registerOnce sync.Once
	vecExtPath   string
	vecExtMu     sync.Mutex
)

// registerDriver installs the custom sqlite driver once per process. The
// connect hook registers log1p(x) = ln(1+max(0,x)) and, when a vector
// extension path is configured, loads it. Extension failures are swallowed:
// the store works without vector search.
func registerDriver() {
	registerOnce.Do(func() {
		sql.Register(DriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				err := conn.RegisterFunc("log1p", func(x float64) float64 {
					return math.Log1p(math.Max(0, x))
				}, true)
				if err != nil {
					return fmt.Errorf("register log1p: %w", err)
				}

				vecExtMu.Lock()
				path := vecExtPath
				vecExtMu.Unlock()
				if path != "" {
					// Best effort: vector-dependent tables are skipped
					// during schema init when the probe fails later.
					_ = conn.LoadExtension(path, "")
				}
				return nil
			},
		})
	})
}

// SetVectorExtension configures the path of the sqlite vector extension
// loaded on every new connection. Must be called before NewDatabase.
func SetVectorExtension(path string) {
	vecExtMu.Lock()
	vecExtPath = path
	vecExtMu.Unlock()
}

// Database wraps a GORM sqlite connection with lifecycle management.
type Database struct {
	db        *gorm.DB
	hasVector bool
}

// NewDatabase creates a new Database from a connection URL of the form
// sqlite:///path/to/file.db. The connection runs in WAL mode with a 30 s
// busy timeout and foreign keys enforced.
func NewDatabase(ctx context.Context, url string) (Database, error) {
	registerDriver()

	dsn, err := parseDSN(url)
	if err != nil {
		return Database{}, fmt.Errorf("parse database url: %w", err)
	}

	dialector := &sqlite.Dialector{
		DriverName: DriverName,
		DSN:        dsn,
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return Database{}, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return Database{}, fmt.Errorf("get underlying db: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return Database{}, fmt.Errorf("ping database: %w", err)
	}

	d := Database{db: db}
	d.hasVector = d.probeVector(ctx)
	return d, nil
}

// parseDSN converts a sqlite:/// URL into a go-sqlite3 DSN carrying the
// journaling and locking pragmas.
func parseDSN(url string) (string, error) {
	if !strings.HasPrefix(url, "sqlite:///") {
		return "", ErrUnsupportedDriver
	}
	path := strings.TrimPrefix(url, "sqlite:///")
	if path == "" {
		return "", ErrUnsupportedDriver
	}
	return "file:" + path +
		"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=30000&_foreign_keys=on", nil
}

// probeVector reports whether the vector extension is available on this
// connection.
func (d Database) probeVector(ctx context.Context) bool {
	var version string
	err := d.db.WithContext(ctx).Raw("SELECT vec_version()").Scan(&version).Error
	return err == nil && version != ""
}

// Session returns a GORM session with the given context.
func (d Database) Session(ctx context.Context) *gorm.DB {
	return d.db.WithContext(ctx)
}

// HasVector reports whether the vector extension loaded successfully.
func (d Database) HasVector() bool {
	return d.hasVector
}

// Close closes the database connection.
func (d Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("get underlying db: %w", err)
	}
	return sqlDB.Close()
}

// ConfigurePool sets connection pool parameters.
func (d Database) ConfigurePool(maxOpen, maxIdle int, maxLifetime time.Duration) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("get underlying db: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(maxLifetime)
	return nil
}
