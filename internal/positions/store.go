// Package positions stores the prioritized track in SQLite and resolves
// datetimes to positions.
package positions

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"cruisetrack/internal/logging"
	"cruisetrack/internal/track"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned when no row matches a datetime.
var ErrNotFound = eris.New("positions: not found")

// KeyLayout is the second-resolution key rows are stored under.
const KeyLayout = "2006-01-02T15:04:05"

// Position is the answer to a lookup.
type Position struct {
	DateTime  string     `json:"datetime"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	DeviceID  string     `json:"device_id"`
	Overall   track.Flag `json:"overall"`
}

// Store is a SQLite-backed position table.
type Store struct {
	db *sql.DB
}

// Open opens the database at dsn. Use ":memory:" in tests.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "positions: open")
	}
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA case_sensitive_like=1",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "positions: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return eris.Wrap(err, "positions: migration source")
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return eris.Wrap(err, "positions: migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return eris.Wrap(err, "positions: migrate")
	}
	// m is not closed: closing it closes s.db.
	m.Log = &migrateLogger{ctx: ctx}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return eris.Wrap(err, "positions: migrate up")
	}
	return nil
}

type migrateLogger struct {
	ctx context.Context
}

func (l *migrateLogger) Printf(format string, v ...any) {
	logging.FromContext(l.ctx).Debug("migrate", "msg", strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *migrateLogger) Verbose() bool { return false }

// Source yields prioritized rows and io.EOF at the end.
type Source interface {
	Next() (track.Combined, error)
}

// Load inserts every row of src, replacing rows for the same second. It
// returns the number of rows stored.
func (s *Store) Load(ctx context.Context, src Source) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "positions: begin")
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO gps
		(date_time, latitude, longitude, device_id, speed, overall) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "positions: prepare insert")
	}
	defer stmt.Close()

	n := 0
	for {
		c, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, err
		}
		if _, err := stmt.ExecContext(ctx, Key(c.Time), nullable(c.Latitude), nullable(c.Longitude),
			c.DeviceID, nullable(c.Speed), int(c.Overall)); err != nil {
			return n, eris.Wrapf(err, "positions: insert %s", Key(c.Time))
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return n, eris.Wrap(err, "positions: commit")
	}
	logging.FromContext(ctx).Info("loaded positions", "rows", n)
	return n, nil
}

// Count returns the number of stored rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gps`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "positions: count")
	}
	return n, nil
}

// Lookup returns the first stored row whose key starts with datetime.
// A space separating date and time is accepted in place of 'T', so both
// "2023-03-17 12:00:01" and "2023-03-17T12:00" resolve.
func (s *Store) Lookup(ctx context.Context, datetime string) (Position, error) {
	prefix := strings.Replace(strings.TrimSpace(datetime), " ", "T", 1)
	if prefix == "" {
		return Position{}, eris.Wrap(ErrNotFound, "positions: empty datetime")
	}
	var (
		p        Position
		lat, lon sql.NullFloat64
		overall  int
	)
	err := s.db.QueryRowContext(ctx, `SELECT date_time, latitude, longitude, device_id, overall
		FROM gps WHERE date_time LIKE ? ORDER BY date_time LIMIT 1`, escapeLike(prefix)+"%").
		Scan(&p.DateTime, &lat, &lon, &p.DeviceID, &overall)
	if errors.Is(err, sql.ErrNoRows) {
		return Position{}, eris.Wrapf(ErrNotFound, "positions: %s", datetime)
	}
	if err != nil {
		return Position{}, eris.Wrapf(err, "positions: lookup %s", datetime)
	}
	p.Latitude, p.Longitude = orNaN(lat), orNaN(lon)
	p.Overall = track.Flag(overall)
	return p, nil
}

// Key formats t as a stored row key.
func Key(t time.Time) string { return t.UTC().Format(KeyLayout) }

func escapeLike(s string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}

func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
