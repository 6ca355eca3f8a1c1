package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pfrederiksen/sportshub/internal/event"
	"github.com/pfrederiksen/sportshub/internal/logger"
)

// DefaultRetention is how long past fixtures are kept before Purge removes them.
const DefaultRetention = 3 * time.Hour

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// ErrNotFound is returned when a lookup by id matches nothing.
var ErrNotFound = errors.New("event not found")

// Config selects the database backend.
type Config struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// DefaultSQLitePath is the database file used when no DSN is configured.
func DefaultSQLitePath() string {
	return filepath.Join(os.TempDir(), "sports.db")
}

// Store is a storage gateway for events. A Store owns one connection and
// must not be shared between enrichment workers; open one per worker.
type Store struct {
	db     *gorm.DB
	driver string
}

// LeagueCountry is a distinct league and the country it is played in.
type LeagueCountry struct {
	League  string `json:"league"`
	Country string `json:"country"`
}

// Stats summarizes the stored events.
type Stats struct {
	Total   int64 `json:"total"`
	Active  int64 `json:"active"`
	Pending int64 `json:"pending"`
	Leagues int   `json:"leagues"`
	Sports  int   `json:"sports"`
}

// Open connects to the configured database and migrates the events table.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite", "sqlite3":
		driver = "sqlite"
		dsn, err := sqliteDSN(cfg.DSN)
		if err != nil {
			return nil, err
		}
		dialector = gormsqlite.Open(dsn)
	case "postgres", "postgresql":
		driver = "postgres"
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres driver requires a dsn")
		}
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("getting sql db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	s := &Store{db: db, driver: driver}
	if err := s.AutoMigrate(ctx); err != nil {
		s.Close()
		return nil, err
	}

	logger.Debug("Storage opened", logger.Fields{"driver": driver})
	return s, nil
}

// sqliteDSN fills in the default path, expands ~ and makes sure the directory exists.
func sqliteDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = DefaultSQLitePath()
	}

	if strings.HasPrefix(dsn, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dsn = filepath.Join(home, dsn[2:])
	}

	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	if path != "" && path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return "", fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	if !strings.Contains(dsn, "_pragma=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + sqlitePragmas
	}
	return dsn, nil
}

// Driver returns the normalized driver name.
func (s *Store) Driver() string {
	return s.driver
}

// AutoMigrate creates or updates the events table.
func (s *Store) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&event.Event{}); err != nil {
		return fmt.Errorf("migrating events table: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InsertOrIgnore stores evt unless an event with the same URL exists.
// It returns the number of rows inserted (0 or 1).
func (s *Store) InsertOrIgnore(ctx context.Context, evt *event.Event) (int64, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "url"}}, DoNothing: true}).
		Create(evt)
	if res.Error != nil {
		return 0, fmt.Errorf("inserting event: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) find(ctx context.Context, query interface{}, args ...interface{}) ([]event.Event, error) {
	var out []event.Event
	q := s.db.WithContext(ctx).Order("start_time, id")
	if query != nil {
		q = q.Where(query, args...)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	return out, nil
}

// All returns every stored event.
func (s *Store) All(ctx context.Context) ([]event.Event, error) {
	return s.find(ctx, nil)
}

// Active returns events that have stream links.
func (s *Store) Active(ctx context.Context) ([]event.Event, error) {
	return s.find(ctx, "stream_link <> ?", "")
}

// Pending returns events still waiting for stream links.
func (s *Store) Pending(ctx context.Context) ([]event.Event, error) {
	return s.find(ctx, "stream_link = ?", "")
}

// ByID returns a single event or ErrNotFound.
func (s *Store) ByID(ctx context.Context, id uint) (*event.Event, error) {
	var evt event.Event
	err := s.db.WithContext(ctx).First(&evt, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying event %d: %w", id, err)
	}
	return &evt, nil
}

// BySport returns events for one sport.
func (s *Store) BySport(ctx context.Context, sport string) ([]event.Event, error) {
	return s.find(ctx, "sport = ?", sport)
}

// ByHome returns events where team plays at home.
func (s *Store) ByHome(ctx context.Context, team string) ([]event.Event, error) {
	return s.find(ctx, "home = ?", team)
}

// ByAway returns events where team plays away.
func (s *Store) ByAway(ctx context.Context, team string) ([]event.Event, error) {
	return s.find(ctx, "away = ?", team)
}

// ByTeam returns events where team plays on either side.
func (s *Store) ByTeam(ctx context.Context, team string) ([]event.Event, error) {
	return s.find(ctx, "home = ? OR away = ?", team, team)
}

// ByLeague returns events for one league.
func (s *Store) ByLeague(ctx context.Context, league string) ([]event.Event, error) {
	return s.find(ctx, "league = ?", league)
}

// Leagues returns the distinct league and country pairs, sorted by league.
func (s *Store) Leagues(ctx context.Context) ([]LeagueCountry, error) {
	var out []LeagueCountry
	err := s.db.WithContext(ctx).Model(&event.Event{}).
		Distinct("league", "country").
		Order("league, country").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("querying leagues: %w", err)
	}
	return out, nil
}

// Sports returns the distinct sports with at least one stored event.
func (s *Store) Sports(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.WithContext(ctx).Model(&event.Event{}).
		Distinct().
		Pluck("sport", &out).Error
	if err != nil {
		return nil, fmt.Errorf("querying sports: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

// UpdateLinks sets the stream links for the event registered under url and
// returns the number of rows matched.
func (s *Store) UpdateLinks(ctx context.Context, url, links string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&event.Event{}).
		Where("url = ?", url).
		Update("stream_link", links)
	if res.Error != nil {
		return 0, fmt.Errorf("updating links for %s: %w", url, res.Error)
	}
	return res.RowsAffected, nil
}

// DeletePast removes events starting at or before cutoff.
func (s *Store) DeletePast(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("start_time <= ?", cutoff.UTC()).Delete(&event.Event{})
	if res.Error != nil {
		return 0, fmt.Errorf("deleting past events: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Purge removes events that started more than retention before now.
func (s *Store) Purge(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	n, err := s.DeletePast(ctx, now.Add(-retention))
	if err != nil {
		return 0, err
	}
	logger.Info("Purged past events", logger.Fields{"deleted": n, "retention": retention.String()})
	return n, nil
}

// DeleteAll removes every event.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&event.Event{})
	if res.Error != nil {
		return 0, fmt.Errorf("deleting events: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Stats counts stored events by enrichment state.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	db := s.db.WithContext(ctx).Model(&event.Event{})

	if err := db.Count(&st.Total).Error; err != nil {
		return st, fmt.Errorf("counting events: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&event.Event{}).Where("stream_link <> ?", "").Count(&st.Active).Error; err != nil {
		return st, fmt.Errorf("counting active events: %w", err)
	}
	st.Pending = st.Total - st.Active

	leagues, err := s.Leagues(ctx)
	if err != nil {
		return st, err
	}
	st.Leagues = len(leagues)

	sports, err := s.Sports(ctx)
	if err != nil {
		return st, err
	}
	st.Sports = len(sports)
	return st, nil
}
