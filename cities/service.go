package cities

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/cityweather-go/apperror"
	"github.com/user/cityweather-go/auth"
	"github.com/user/cityweather-go/config"
	"github.com/user/cityweather-go/weather"
)

// Service implements the city registry operations over a Store and a
// weather Fetcher.
type Service struct {
	store          Store
	weather        weather.Fetcher
	updateInterval time.Duration
	maxConcurrent  int
	log            *zap.Logger
	// now is replaceable in tests to pin the clock.
	now func() time.Time
}

// NewService constructs the city registry service.
func NewService(store Store, fetcher weather.Fetcher, cfg *config.WeatherConfig, log *zap.Logger) *Service {
	return &Service{
		store:          store,
		weather:        fetcher,
		updateInterval: cfg.UpdateInterval,
		maxConcurrent:  cfg.MaxConcurrent,
		log:            log,
		now:            time.Now,
	}
}

// ListVisible returns the cities the viewer may see: shared cities for an
// anonymous viewer, the union of shared and owned cities otherwise.
func (s *Service) ListVisible(ctx context.Context, user *auth.User) ([]City, error) {
	var userID *int
	if user != nil {
		userID = &user.ID
	}
	return s.store.ListVisible(ctx, userID)
}

// Get returns a single city by ID.
func (s *Service) Get(ctx context.Context, cityID int) (*City, error) {
	return s.store.GetByID(ctx, cityID)
}

// Add creates a city owned by the user. A user cannot own two cities with
// the same name, but the same name may appear in any number of other users'
// lists.
func (s *Service) Add(ctx context.Context, user *auth.User, name string, latitude, longitude float64) (*City, error) {
	exists, err := s.store.OwnedNameExists(ctx, user.ID, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.NewConflictError("city already exists", nil)
	}

	city := &City{
		Name:      name,
		Latitude:  latitude,
		Longitude: longitude,
		UserID:    &user.ID,
	}
	created, err := s.store.Insert(ctx, city)
	if err != nil {
		return nil, err
	}

	s.log.Info("city added",
		zap.Int("user_id", user.ID),
		zap.String("city", name),
	)
	return created, nil
}

// Remove deletes the city only if the user owns it. A missing city or an
// ownership mismatch is a silent no-op; the returned bool reports whether a
// deletion actually happened.
func (s *Service) Remove(ctx context.Context, user *auth.User, cityID int) (bool, error) {
	removed, err := s.store.DeleteOwned(ctx, user.ID, cityID)
	if err != nil {
		return false, err
	}
	if removed {
		s.log.Info("city removed", zap.Int("user_id", user.ID), zap.Int("city_id", cityID))
	}
	return removed, nil
}

// Reset replaces the user's city list with a fresh copy of the defaults.
// The replacement is atomic: no caller ever observes the list empty after a
// successful reset.
func (s *Service) Reset(ctx context.Context, user *auth.User) ([]City, error) {
	defaults, err := s.store.ListDefaults(ctx)
	if err != nil {
		return nil, err
	}

	created, err := s.store.ReplaceOwned(ctx, user.ID, defaults)
	if err != nil {
		return nil, err
	}

	s.log.Info("cities reset to defaults",
		zap.Int("user_id", user.ID),
		zap.Int("count", len(created)),
	)
	return created, nil
}

// dueForUpdate applies the refresh throttle: a city with no recorded
// weather is always due, otherwise its last update must be at least the
// configured interval ago.
func (s *Service) dueForUpdate(city *City) bool {
	if city.UpdatedAt == nil {
		return true
	}
	return s.now().Sub(*city.UpdatedAt) >= s.updateInterval
}

// RefreshWeather fetches current weather for every owned city that is due
// for an update. Fetches run concurrently, bounded by the configured limit,
// and each successful fetch commits its own row update: a city whose fetch
// fails is skipped and logged without aborting the batch, and updates
// already committed stay committed. Returns the number of cities updated.
func (s *Service) RefreshWeather(ctx context.Context, user *auth.User) (int, error) {
	owned, err := s.store.ListOwned(ctx, user.ID)
	if err != nil {
		return 0, err
	}

	var due []City
	for _, city := range owned {
		city := city
		if s.dueForUpdate(&city) {
			due = append(due, city)
		}
	}
	if len(due) == 0 {
		return 0, nil
	}

	var (
		mu      sync.Mutex
		updated int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for _, city := range due {
		city := city
		g.Go(func() error {
			temperature, err := s.weather.Fetch(gctx, city.Latitude, city.Longitude)
			if err != nil {
				s.log.Warn("weather fetch failed",
					zap.String("city", city.Name),
					zap.Error(err),
				)
				return nil
			}
			if err := s.store.SetWeather(gctx, city.ID, temperature, s.now().UTC()); err != nil {
				s.log.Error("failed to store fetched weather",
					zap.String("city", city.Name),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			updated++
			mu.Unlock()
			return nil
		})
	}
	// Workers report per-city failures via logging only, so Wait cannot
	// return an error here; it just joins the batch.
	_ = g.Wait()

	s.log.Info("weather refresh finished",
		zap.Int("user_id", user.ID),
		zap.Int("due", len(due)),
		zap.Int("updated", updated),
	)
	return updated, nil
}

// RefreshOne fetches and stores current weather for a single city,
// bypassing the update-interval throttle. Used by the per-city API.
func (s *Service) RefreshOne(ctx context.Context, cityID int) (*City, error) {
	city, err := s.store.GetByID(ctx, cityID)
	if err != nil {
		return nil, err
	}

	temperature, err := s.weather.Fetch(ctx, city.Latitude, city.Longitude)
	if err != nil {
		return nil, err
	}

	updatedAt := s.now().UTC()
	if err := s.store.SetWeather(ctx, city.ID, temperature, updatedAt); err != nil {
		return nil, err
	}

	city.Temperature = &temperature
	city.UpdatedAt = &updatedAt
	return city, nil
}

// Bootstrap seeds the default-city templates and, when the registry is
// completely empty, creates the initial shared cities from the same list.
// Called once at startup.
func (s *Service) Bootstrap(ctx context.Context, defaults []DefaultCity) error {
	if err := s.store.UpsertDefaults(ctx, defaults); err != nil {
		return err
	}

	count, err := s.store.CountCities(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, d := range defaults {
		city := &City{Name: d.Name, Latitude: d.Latitude, Longitude: d.Longitude}
		if _, err := s.store.Insert(ctx, city); err != nil {
			return err
		}
	}
	s.log.Info("seeded shared cities", zap.Int("count", len(defaults)))
	return nil
}

// UpdateIntervalMinutes exposes the throttle for page rendering.
func (s *Service) UpdateIntervalMinutes() int {
	return int(s.updateInterval.Minutes())
}
