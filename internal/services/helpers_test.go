package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/spothole/spothole-api/internal/dto"
	"github.com/spothole/spothole-api/internal/models"
	"github.com/spothole/spothole-api/internal/session"
	"github.com/spothole/spothole-api/internal/store"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	alice = models.User{ID: primitive.NewObjectID(), Name: "Alice", Email: "alice@example.com", Image: "https://img.example/alice.png"}
	bob   = models.User{ID: primitive.NewObjectID(), Name: "Bob", Email: "bob@example.com"}
)

func identityOf(u models.User) *session.Identity {
	return &session.Identity{UserID: u.ID.Hex(), Email: u.Email, Name: u.Name, Image: u.Image}
}

func floatPtr(f float64) *float64 { return &f }

func seedPothole(t *testing.T, s store.PotholeStore) *models.Pothole {
	t.Helper()
	p := &models.Pothole{
		Location: models.NewGeoPoint(72.8777, 19.0760),
		ImageURL: "https://x/1.jpg",
	}
	require.NoError(t, s.Create(context.Background(), p))
	return p
}

func validCreateRequest() *dto.CreatePotholeRequest {
	return &dto.CreatePotholeRequest{
		Longitude: floatPtr(72.8777),
		Latitude:  floatPtr(19.0760),
		ImageURL:  "https://x/1.jpg",
	}
}

// memoryCache is a versioned in-process ListCache.
type memoryCache struct {
	mu          sync.Mutex
	version     int64
	entries     map[string][]byte
	invalidated int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[c.entryKey(c.version, key)]
	return v, c.version, ok
}

func (c *memoryCache) Set(_ context.Context, key string, version int64, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.entryKey(version, key)] = value
}

func (c *memoryCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	c.invalidated++
}

func (c *memoryCache) entryKey(version int64, key string) string {
	return fmt.Sprintf("v%d:%s", version, key)
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) { c.calls++ }
