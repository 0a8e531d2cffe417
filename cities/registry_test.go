package cities

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cityweather-go/apperror"
	"github.com/user/cityweather-go/auth"
)

// memStore is a reference Store with the same ownership semantics the SQL
// queries implement, used to exercise the registry invariants end to end
// without a database.
type memStore struct {
	mu       sync.Mutex
	nextID   int
	cities   map[int]City
	defaults []DefaultCity
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, cities: map[int]City{}}
}

// seed inserts a city directly, bypassing the service.
func (m *memStore) seed(name string, latitude, longitude float64, userID *int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.cities[id] = City{ID: id, Name: name, Latitude: latitude, Longitude: longitude, UserID: userID}
	return id
}

func (m *memStore) ListVisible(ctx context.Context, userID *int) ([]City, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []City
	for _, c := range m.cities {
		if c.UserID == nil || (userID != nil && *c.UserID == *userID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) ListOwned(ctx context.Context, userID int) ([]City, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []City
	for _, c := range m.cities {
		if c.UserID != nil && *c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) GetByID(ctx context.Context, cityID int) (*City, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cities[cityID]
	if !ok {
		return nil, apperror.NewNotFoundError("city not found", nil)
	}
	return &c, nil
}

func (m *memStore) OwnedNameExists(ctx context.Context, userID int, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cities {
		if c.UserID != nil && *c.UserID == userID && c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Insert(ctx context.Context, city *City) (*City, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	city.ID = m.nextID
	m.nextID++
	m.cities[city.ID] = *city
	return city, nil
}

func (m *memStore) DeleteOwned(ctx context.Context, userID, cityID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cities[cityID]
	if !ok || c.UserID == nil || *c.UserID != userID {
		return false, nil
	}
	delete(m.cities, cityID)
	return true, nil
}

func (m *memStore) ReplaceOwned(ctx context.Context, userID int, defaults []DefaultCity) ([]City, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.cities {
		if c.UserID != nil && *c.UserID == userID {
			delete(m.cities, id)
		}
	}
	created := make([]City, 0, len(defaults))
	for _, d := range defaults {
		owner := userID
		c := City{ID: m.nextID, Name: d.Name, Latitude: d.Latitude, Longitude: d.Longitude, UserID: &owner}
		m.nextID++
		m.cities[c.ID] = c
		created = append(created, c)
	}
	return created, nil
}

func (m *memStore) SetWeather(ctx context.Context, cityID int, temperature float64, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cities[cityID]
	if !ok {
		return nil
	}
	c.Temperature = &temperature
	c.UpdatedAt = &updatedAt
	m.cities[cityID] = c
	return nil
}

func (m *memStore) ListDefaults(ctx context.Context) ([]DefaultCity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DefaultCity(nil), m.defaults...), nil
}

func (m *memStore) UpsertDefaults(ctx context.Context, defaults []DefaultCity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaults = append([]DefaultCity(nil), defaults...)
	return nil
}

func (m *memStore) CountCities(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cities), nil
}

// sharedAndOwnedStore holds one shared city plus one city owned by each of
// two users.
func sharedAndOwnedStore() (*memStore, int, int) {
	store := newMemStore()
	userA, userB := 42, 7
	store.seed("London", 51.5074, -0.1278, nil)
	store.seed("Oslo", 59.9139, 10.7522, &userA)
	kyivID := store.seed("Kyiv", 50.4501, 30.5234, &userB)
	return store, userA, kyivID
}

func cityNames(list []City) []string {
	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.Name
	}
	return names
}

func TestListVisible_AnonymousExcludesOwnedCities(t *testing.T) {
	store, _, _ := sharedAndOwnedStore()
	svc := newTestService(store, nil)

	got, err := svc.ListVisible(context.Background(), nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"London"}, cityNames(got))
}

func TestListVisible_UserSeesSharedAndOwnOnly(t *testing.T) {
	store, userA, _ := sharedAndOwnedStore()
	svc := newTestService(store, nil)

	got, err := svc.ListVisible(context.Background(), &auth.User{ID: userA})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"London", "Oslo"}, cityNames(got))
}

func TestRemove_OtherUsersCityLeftIntact(t *testing.T) {
	store, userA, kyivID := sharedAndOwnedStore()
	svc := newTestService(store, nil)

	before, err := store.CountCities(context.Background())
	require.NoError(t, err)

	removed, err := svc.Remove(context.Background(), &auth.User{ID: userA}, kyivID)
	require.NoError(t, err)
	assert.False(t, removed)

	after, err := store.CountCities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)

	kyiv, err := store.GetByID(context.Background(), kyivID)
	require.NoError(t, err)
	assert.Equal(t, "Kyiv", kyiv.Name)
}

func TestReset_RunTwiceYieldsSameList(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.UpsertDefaults(context.Background(), []DefaultCity{
		{Name: "London", Latitude: 51.5074, Longitude: -0.1278},
		{Name: "Paris", Latitude: 48.8566, Longitude: 2.3522},
	}))
	userA := 42
	store.seed("Oslo", 59.9139, 10.7522, &userA)
	svc := newTestService(store, nil)
	user := &auth.User{ID: userA}

	first, err := svc.Reset(context.Background(), user)
	require.NoError(t, err)
	second, err := svc.Reset(context.Background(), user)
	require.NoError(t, err)

	type place struct {
		name     string
		lat, lon float64
	}
	places := func(list []City) []place {
		out := make([]place, len(list))
		for i, c := range list {
			out[i] = place{c.Name, c.Latitude, c.Longitude}
		}
		return out
	}
	assert.ElementsMatch(t, places(first), places(second))
	assert.ElementsMatch(t, []string{"London", "Paris"}, cityNames(second))

	// The store ends up with exactly one owned copy per default.
	owned, err := store.ListOwned(context.Background(), userA)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"London", "Paris"}, cityNames(owned))
}
