package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spothole/spothole-api/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps reports in process memory. Every method copies on the
// way in and out so callers never share slices with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	potholes map[primitive.ObjectID]*models.Pothole
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{potholes: make(map[primitive.ObjectID]*models.Pothole)}
}

func (s *MemoryStore) Create(_ context.Context, p *models.Pothole) error {
	if err := validateNew(p); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := now()
	// Keep creation order strict for reports inserted within the same millisecond.
	for _, existing := range s.potholes {
		if !existing.CreatedAt.Before(t) {
			t = existing.CreatedAt.Add(time.Millisecond)
		}
	}
	prepareNew(p, t)
	s.potholes[p.ID] = clonePothole(p)
	return nil
}

func (s *MemoryStore) FindAll(_ context.Context) ([]models.Pothole, error) {
	return s.filter(func(*models.Pothole) bool { return true }), nil
}

func (s *MemoryStore) FindWithin(_ context.Context, box models.BoundingBox) ([]models.Pothole, error) {
	return s.filter(func(p *models.Pothole) bool {
		return box.Contains(p.Location.Longitude(), p.Location.Latitude())
	}), nil
}

func (s *MemoryStore) filter(keep func(*models.Pothole) bool) []models.Pothole {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Pothole, 0, len(s.potholes))
	for _, p := range s.potholes {
		if keep(p) {
			c := clonePothole(p)
			c.Normalize()
			result = append(result, *c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *MemoryStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Pothole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.potholes[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := clonePothole(p)
	c.Normalize()
	return c, nil
}

func (s *MemoryStore) Comments(_ context.Context, id primitive.ObjectID) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.potholes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]models.Comment{}, p.Comments...), nil
}

func (s *MemoryStore) AppendComment(_ context.Context, id primitive.ObjectID, c models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.potholes[id]
	if !ok {
		return ErrNotFound
	}
	p.Comments = append(p.Comments, c)
	p.UpdatedAt = now()
	return nil
}

func (s *MemoryStore) ToggleUpvote(_ context.Context, id, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.potholes[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.HasUpvote(userID) {
		kept := make([]primitive.ObjectID, 0, len(p.Upvotes))
		for _, u := range p.Upvotes {
			if u != userID {
				kept = append(kept, u)
			}
		}
		p.Upvotes = kept
	} else {
		p.Upvotes = append(p.Upvotes, userID)
	}
	p.UpdatedAt = now()
	return append([]primitive.ObjectID{}, p.Upvotes...), nil
}

func (s *MemoryStore) Save(_ context.Context, p *models.Pothole) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.potholes[p.ID]; !ok {
		return ErrNotFound
	}
	p.Normalize()
	p.UpdatedAt = now()
	s.potholes[p.ID] = clonePothole(p)
	return nil
}

// Insert stores p verbatim, bypassing validation and normalization. It is
// used to seed legacy documents.
func (s *MemoryStore) Insert(p models.Pothole) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	s.potholes[p.ID] = clonePothole(&p)
}

func (s *MemoryStore) NormalizeLegacy(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for _, p := range s.potholes {
		if p.Normalize() {
			changed++
		}
	}
	return changed, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func clonePothole(p *models.Pothole) *models.Pothole {
	c := *p
	c.Location.Coordinates = append([]float64(nil), p.Location.Coordinates...)
	if p.Upvotes != nil {
		c.Upvotes = append([]primitive.ObjectID{}, p.Upvotes...)
	}
	if p.Comments != nil {
		c.Comments = append([]models.Comment{}, p.Comments...)
	}
	if p.ReportedBy != nil {
		id := *p.ReportedBy
		c.ReportedBy = &id
	}
	return &c
}

// MemoryUserDirectory is a fixed set of users.
type MemoryUserDirectory struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

func NewMemoryUserDirectory(users ...models.User) *MemoryUserDirectory {
	d := &MemoryUserDirectory{users: make(map[primitive.ObjectID]models.User)}
	for _, u := range users {
		d.Add(u)
	}
	return d
}

func (d *MemoryUserDirectory) Add(u models.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *MemoryUserDirectory) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (d *MemoryUserDirectory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (d *MemoryUserDirectory) FindByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	result := make(map[primitive.ObjectID]models.User, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			result[id] = u
		}
	}
	return result, nil
}
