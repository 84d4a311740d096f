package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"finmatch/internal/config"
	"finmatch/internal/contour"
)

// ErrNotFound reports a lookup for an individual that is not cataloged.
var ErrNotFound = errors.New("individual not found")

// ErrLocked reports that another process holds the catalog write lock.
var ErrLocked = errors.New("catalog is locked by another process")

const lockRetryDelay = 50 * time.Millisecond

// Store persists cataloged outlines in SQLite.
type Store struct {
	db   *sqlx.DB
	path string
	lock *flock.Flock
}

// Summary describes a cataloged individual without its outline.
type Summary struct {
	IndividualID   string    `json:"individual_id"`
	Name           string    `json:"name,omitempty"`
	DamageCategory string    `json:"damage_category,omitempty"`
	ImageFilename  string    `json:"image_filename,omitempty"`
	Points         int       `json:"points"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	// Problem explains why the stored outline cannot be matched.
	Problem string `json:"problem,omitempty"`
	Err     error  `json:"-"`
}

type row struct {
	ID             int64  `db:"id"`
	IndividualID   string `db:"individual_id"`
	Name           string `db:"name"`
	DamageCategory string `db:"damage_category"`
	ImageFilename  string `db:"image_filename"`
	PointsJSON     string `db:"points_json"`
	BeginLE        int    `db:"begin_le"`
	Tip            int    `db:"tip"`
	EndLE          int    `db:"end_le"`
	Notch          int    `db:"notch"`
	EndTE          int    `db:"end_te"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
}

// Open opens the catalog database named by the configuration.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("open catalog: nil config")
	}
	return OpenPath(cfg.Paths.CatalogPath)
}

// OpenPath initializes or connects to the catalog database at path.
func OpenPath(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("open catalog: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, lock: flock.New(path + ".lock")}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Put inserts or replaces one individual.
func (s *Store) Put(ctx context.Context, entry Entry) error {
	_, err := s.Import(ctx, []Entry{entry})
	return err
}

// Import inserts or replaces entries in one transaction while holding the
// catalog write lock. It returns the number of entries written.
func (s *Store) Import(ctx context.Context, entries []Entry) (int, error) {
	rows := make([]row, 0, len(entries))
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, entry := range entries {
		r, err := toRow(entry, now)
		if err != nil {
			return 0, err
		}
		rows = append(rows, r)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return 0, fmt.Errorf("acquire catalog lock: %w", err)
	}
	if !locked {
		return 0, ErrLocked
	}
	defer func() { _ = s.lock.Unlock() }()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range rows {
		if _, err := tx.NamedExecContext(ctx, upsertSQL, r); err != nil {
			return 0, fmt.Errorf("store %s: %w", r.IndividualID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(rows), nil
}

const upsertSQL = `INSERT INTO individuals (
    individual_id, name, damage_category, image_filename, points_json,
    begin_le, tip, end_le, notch, end_te, created_at, updated_at
) VALUES (
    :individual_id, :name, :damage_category, :image_filename, :points_json,
    :begin_le, :tip, :end_le, :notch, :end_te, :created_at, :updated_at
)
ON CONFLICT(individual_id) DO UPDATE SET
    name = excluded.name,
    damage_category = excluded.damage_category,
    image_filename = excluded.image_filename,
    points_json = excluded.points_json,
    begin_le = excluded.begin_le,
    tip = excluded.tip,
    end_le = excluded.end_le,
    notch = excluded.notch,
    end_te = excluded.end_te,
    updated_at = excluded.updated_at`

const selectColumns = `id, individual_id, name, damage_category, image_filename, points_json,
    begin_le, tip, end_le, notch, end_te, created_at, updated_at`

// Get returns one individual by identifier (case-insensitive).
func (s *Store) Get(ctx context.Context, individualID string) (Entry, error) {
	var r row
	err := s.db.GetContext(ctx, &r,
		"SELECT "+selectColumns+" FROM individuals WHERE individual_id = ?", strings.TrimSpace(individualID))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, individualID)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get %s: %w", individualID, err)
	}
	entry := r.entry()
	if entry.Err != nil {
		return entry, entry.Err
	}
	return entry, nil
}

// All loads every individual in catalog order. Rows whose outline cannot be
// rebuilt are returned with Err set so the matcher can report them.
func (s *Store) All(ctx context.Context) ([]Entry, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, "SELECT "+selectColumns+" FROM individuals ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.entry())
	}
	return entries, nil
}

// List summarizes every individual in catalog order. Rows whose outline
// cannot be rebuilt are listed with Err and Problem set.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, "SELECT "+selectColumns+" FROM individuals ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	out := make([]Summary, 0, len(rows))
	for _, r := range rows {
		var points [][2]float64
		if err := json.Unmarshal([]byte(r.PointsJSON), &points); err != nil {
			points = nil
		}
		summary := Summary{
			IndividualID:   r.IndividualID,
			Name:           r.Name,
			DamageCategory: r.DamageCategory,
			ImageFilename:  r.ImageFilename,
			Points:         len(points),
			CreatedAt:      parseTime(r.CreatedAt),
			UpdatedAt:      parseTime(r.UpdatedAt),
		}
		if entry := r.entry(); entry.Err != nil {
			summary.Err = entry.Err
			summary.Problem = entry.Err.Error()
		}
		out = append(out, summary)
	}
	return out, nil
}

// Count returns the number of cataloged individuals.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(1) FROM individuals"); err != nil {
		return 0, fmt.Errorf("count catalog: %w", err)
	}
	return n, nil
}

// Categories returns the distinct damage categories in use.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.SelectContext(ctx, &out,
		"SELECT DISTINCT damage_category FROM individuals WHERE damage_category <> '' ORDER BY damage_category COLLATE NOCASE")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// Remove deletes one individual.
func (s *Store) Remove(ctx context.Context, individualID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM individuals WHERE individual_id = ?", strings.TrimSpace(individualID))
	if err != nil {
		return fmt.Errorf("remove %s: %w", individualID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove %s: %w", individualID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, individualID)
	}
	return nil
}

func toRow(entry Entry, now string) (row, error) {
	id := strings.TrimSpace(entry.IndividualID)
	if id == "" {
		return row{}, errors.New("catalog entry has no individual id")
	}
	f, err := entry.Contour.Features()
	if err != nil {
		return row{}, fmt.Errorf("catalog entry %s: %w", id, err)
	}
	points := entry.Contour.Points()
	pairs := make([][2]float64, len(points))
	for i, p := range points {
		pairs[i] = [2]float64{p.X, p.Y}
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return row{}, fmt.Errorf("encode points for %s: %w", id, err)
	}
	return row{
		IndividualID:   id,
		Name:           strings.TrimSpace(entry.Name),
		DamageCategory: strings.TrimSpace(entry.DamageCategory),
		ImageFilename:  strings.TrimSpace(entry.ImageFilename),
		PointsJSON:     string(data),
		BeginLE:        f.BeginLE,
		Tip:            f.Tip,
		EndLE:          f.EndLE,
		Notch:          f.Notch,
		EndTE:          f.EndTE,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (r row) entry() Entry {
	entry := Entry{
		IndividualID:   r.IndividualID,
		Name:           r.Name,
		DamageCategory: r.DamageCategory,
		ImageFilename:  r.ImageFilename,
	}
	var pairs [][2]float64
	if err := json.Unmarshal([]byte(r.PointsJSON), &pairs); err != nil {
		entry.Err = fmt.Errorf("%w: decode points for %s: %w", contour.ErrInvalidContour, r.IndividualID, err)
		return entry
	}
	points := make([]contour.Point, len(pairs))
	for i, p := range pairs {
		points[i] = contour.Point{X: p[0], Y: p[1]}
	}
	c, err := contour.New(points, contour.Features{
		BeginLE: r.BeginLE,
		Tip:     r.Tip,
		EndLE:   r.EndLE,
		Notch:   r.Notch,
		EndTE:   r.EndTE,
	})
	if err != nil {
		entry.Err = fmt.Errorf("catalog entry %s: %w", r.IndividualID, err)
		return entry
	}
	entry.Contour = c
	return entry
}

func parseTime(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
