package cities

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/cityweather-go/apperror"
)

// Store is the persistence interface required by the city registry.
type Store interface {
	// ListVisible returns the cities a viewer may see: shared cities only
	// when userID is nil, otherwise the union of shared cities and the
	// user's own.
	ListVisible(ctx context.Context, userID *int) ([]City, error)
	// ListOwned returns every city owned by the user.
	ListOwned(ctx context.Context, userID int) ([]City, error)
	// GetByID returns a city or an apperror not-found.
	GetByID(ctx context.Context, cityID int) (*City, error)
	// OwnedNameExists reports whether the user already owns a city with
	// this name.
	OwnedNameExists(ctx context.Context, userID int, name string) (bool, error)
	// Insert stores a new city and fills in its generated ID.
	Insert(ctx context.Context, city *City) (*City, error)
	// DeleteOwned removes the city only if it is owned by the user, and
	// reports whether a row was deleted.
	DeleteOwned(ctx context.Context, userID, cityID int) (bool, error)
	// ReplaceOwned atomically deletes every city owned by the user and
	// creates one owned city per default. No concurrent reader may observe
	// the intermediate empty state.
	ReplaceOwned(ctx context.Context, userID int, defaults []DefaultCity) ([]City, error)
	// SetWeather records a fetched temperature and its timestamp.
	SetWeather(ctx context.Context, cityID int, temperature float64, updatedAt time.Time) error
	// ListDefaults returns the seed templates.
	ListDefaults(ctx context.Context) ([]DefaultCity, error)
	// UpsertDefaults writes the seed templates, updating coordinates of
	// existing names.
	UpsertDefaults(ctx context.Context, defaults []DefaultCity) error
	// CountCities returns the total number of city rows.
	CountCities(ctx context.Context) (int, error)
}

// PgStore is the pgx-backed Store implementation.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a PgStore on top of the given pool.
func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

// cityColumns is the scan order shared by every city query.
const cityColumns = `id, name, latitude, longitude, temperature, updated_at, user_id`

func scanCities(rows pgx.Rows) ([]City, error) {
	defer rows.Close()

	var cities []City
	for rows.Next() {
		var c City
		if err := rows.Scan(&c.ID, &c.Name, &c.Latitude, &c.Longitude,
			&c.Temperature, &c.UpdatedAt, &c.UserID); err != nil {
			return nil, err
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

// ListVisible orders warm cities first; rows without a temperature sort
// last. Callers must not rely on the order beyond presentation.
func (s *PgStore) ListVisible(ctx context.Context, userID *int) ([]City, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if userID == nil {
		rows, err = s.db.Query(ctx,
			`SELECT `+cityColumns+` FROM cities
			 WHERE user_id IS NULL
			 ORDER BY temperature DESC NULLS LAST, name`)
	} else {
		rows, err = s.db.Query(ctx,
			`SELECT `+cityColumns+` FROM cities
			 WHERE user_id = $1 OR user_id IS NULL
			 ORDER BY temperature DESC NULLS LAST, name`, *userID)
	}
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list cities", err)
	}

	cities, err := scanCities(rows)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to scan cities", err)
	}
	return cities, nil
}

func (s *PgStore) ListOwned(ctx context.Context, userID int) ([]City, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+cityColumns+` FROM cities WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list owned cities", err)
	}

	cities, err := scanCities(rows)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to scan owned cities", err)
	}
	return cities, nil
}

func (s *PgStore) GetByID(ctx context.Context, cityID int) (*City, error) {
	var c City
	err := s.db.QueryRow(ctx,
		`SELECT `+cityColumns+` FROM cities WHERE id = $1`, cityID,
	).Scan(&c.ID, &c.Name, &c.Latitude, &c.Longitude, &c.Temperature, &c.UpdatedAt, &c.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("city not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get city", err)
	}
	return &c, nil
}

func (s *PgStore) OwnedNameExists(ctx context.Context, userID int, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM cities WHERE user_id = $1 AND name = $2)`,
		userID, name,
	).Scan(&exists)
	if err != nil {
		return false, apperror.NewDatabaseError("failed to check city name", err)
	}
	return exists, nil
}

func (s *PgStore) Insert(ctx context.Context, city *City) (*City, error) {
	err := s.db.QueryRow(ctx,
		`INSERT INTO cities (name, latitude, longitude, temperature, updated_at, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		city.Name, city.Latitude, city.Longitude, city.Temperature, city.UpdatedAt, city.UserID,
	).Scan(&city.ID)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to insert city", err)
	}
	return city, nil
}

func (s *PgStore) DeleteOwned(ctx context.Context, userID, cityID int) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM cities WHERE id = $1 AND user_id = $2`, cityID, userID)
	if err != nil {
		return false, apperror.NewDatabaseError("failed to delete city", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ReplaceOwned runs inside a single transaction so the caller's view moves
// directly from the old list to the new one.
func (s *PgStore) ReplaceOwned(ctx context.Context, userID int, defaults []DefaultCity) ([]City, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM cities WHERE user_id = $1`, userID); err != nil {
		return nil, apperror.NewDatabaseError("failed to clear owned cities", err)
	}

	created := make([]City, 0, len(defaults))
	for _, d := range defaults {
		c := City{Name: d.Name, Latitude: d.Latitude, Longitude: d.Longitude, UserID: &userID}
		err := tx.QueryRow(ctx,
			`INSERT INTO cities (name, latitude, longitude, user_id)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			c.Name, c.Latitude, c.Longitude, userID,
		).Scan(&c.ID)
		if err != nil {
			return nil, apperror.NewDatabaseError("failed to recreate city from defaults", err)
		}
		created = append(created, c)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.NewDatabaseError("failed to commit reset", err)
	}
	return created, nil
}

func (s *PgStore) SetWeather(ctx context.Context, cityID int, temperature float64, updatedAt time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE cities SET temperature = $2, updated_at = $3 WHERE id = $1`,
		cityID, temperature, updatedAt)
	if err != nil {
		return apperror.NewDatabaseError("failed to update city weather", err)
	}
	return nil
}

func (s *PgStore) ListDefaults(ctx context.Context) ([]DefaultCity, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, latitude, longitude FROM default_cities ORDER BY name`)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list default cities", err)
	}
	defer rows.Close()

	var defaults []DefaultCity
	for rows.Next() {
		var d DefaultCity
		if err := rows.Scan(&d.ID, &d.Name, &d.Latitude, &d.Longitude); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan default city", err)
		}
		defaults = append(defaults, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read default cities", err)
	}
	return defaults, nil
}

func (s *PgStore) UpsertDefaults(ctx context.Context, defaults []DefaultCity) error {
	for _, d := range defaults {
		_, err := s.db.Exec(ctx,
			`INSERT INTO default_cities (name, latitude, longitude)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (name) DO UPDATE
			 SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude`,
			d.Name, d.Latitude, d.Longitude)
		if err != nil {
			return apperror.NewDatabaseError("failed to upsert default city", err)
		}
	}
	return nil
}

func (s *PgStore) CountCities(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM cities`).Scan(&count); err != nil {
		return 0, apperror.NewDatabaseError("failed to count cities", err)
	}
	return count, nil
}
