package catalog

import (
	"context"
	"hash/fnv"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

const keyLockStripes = 64

var _ Store = (*MemoryStore)(nil)

type record struct {
	course atomic.Pointer[Course]
}

// MemoryStore keeps the catalog in process memory.
//
// Each record holds an immutable snapshot swapped atomically, so readers observe
// either the pre- or post-upsert state of a course. Upserts on the same natural
// key are serialized by a striped mutex; upserts on different keys only share
// the index lock while a brand new record is appended.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*record
	byID    map[int64]*record
	byKey   map[Key]*record

	keyLocks [keyLockStripes]sync.Mutex
	nextID   atomic.Int64
	now      func() time.Time
}

type MemoryStoreOption func(*MemoryStore)

// WithClock overrides the time source used for CreatedAt and LastUpdated.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		byID:  make(map[int64]*record),
		byKey: make(map[Key]*record),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Upsert(ctx context.Context, course Course) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	Normalize(&course)
	if err := Validate(course); err != nil {
		return 0, false, err
	}
	course.Tags = slices.Clone(course.Tags)

	key := course.Key()
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()

	s.mu.RLock()
	rec := s.byKey[key]
	s.mu.RUnlock()

	if rec != nil {
		prev := rec.course.Load()
		course.ID = prev.ID
		course.CreatedAt = prev.CreatedAt
		course.IsActive = prev.IsActive
		course.LastUpdated = now
		rec.course.Store(&course)
		return course.ID, false, nil
	}

	course.CreatedAt = now
	course.LastUpdated = now
	course.IsActive = true

	rec = &record{}

	// Ids are taken under mu so records stay in id order.
	s.mu.Lock()
	course.ID = s.nextID.Add(1)
	rec.course.Store(&course)
	s.records = append(s.records, rec)
	s.byID[course.ID] = rec
	s.byKey[key] = rec
	s.mu.Unlock()

	return course.ID, true, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id int64) (Course, error) {
	if err := ctx.Err(); err != nil {
		return Course{}, err
	}

	s.mu.RLock()
	rec, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return Course{}, ErrNotFound
	}
	return snapshot(rec), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	records := slices.Clone(s.records)
	s.mu.RUnlock()

	courses := make([]Course, 0, len(records))
	for _, rec := range records {
		courses = append(courses, snapshot(rec))
	}
	return courses, nil
}

func (s *MemoryStore) Filter(ctx context.Context, filter Filter) ([]Course, error) {
	courses, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return ApplyFilter(courses, filter), nil
}

func (s *MemoryStore) Search(ctx context.Context, criteria SearchCriteria) ([]Course, error) {
	courses, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return ApplySearch(courses, criteria), nil
}

func (s *MemoryStore) SetActive(ctx context.Context, id int64, active bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	rec, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	lock := s.lockFor(rec.course.Load().Key())
	lock.Lock()
	defer lock.Unlock()

	updated := *rec.course.Load()
	updated.IsActive = active
	updated.LastUpdated = s.now()
	rec.course.Store(&updated)
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) lockFor(key Key) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key.String()))
	return &s.keyLocks[h.Sum32()%keyLockStripes]
}

func snapshot(rec *record) Course {
	c := *rec.course.Load()
	c.Tags = slices.Clone(c.Tags)
	return c
}
