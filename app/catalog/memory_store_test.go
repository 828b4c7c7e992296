package catalog

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestCourse(source, url, category string) Course {
	return Course{
		Title:       "Course " + url,
		Description: "Description for " + url,
		Category:    category,
		Level:       LevelBeginner,
		Source:      source,
		URL:         url,
		Rating:      4.0,
		Tags:        []string{"go"},
	}
}

func TestUpsertSameKeyPreservesIdentity(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()

	first := newTestCourse("youtube", "https://youtube.com/watch?v=1", "Programming")
	first.Rating = 3.5

	id, created, err := store.Upsert(ctx, first)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !created {
		t.Error("Expected first upsert to create a course")
	}

	original, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}

	second := first
	second.Rating = 4.7
	id2, created, err := store.Upsert(ctx, second)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if created {
		t.Error("Expected second upsert to update, not create")
	}
	if id2 != id {
		t.Errorf("Expected id %d to be preserved, got %d", id, id2)
	}

	updated, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Rating != 4.7 {
		t.Errorf("Expected rating 4.7, got %v", updated.Rating)
	}
	if !updated.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("Expected created_at %v to be preserved, got %v", original.CreatedAt, updated.CreatedAt)
	}
	if !updated.LastUpdated.After(original.LastUpdated) {
		t.Errorf("Expected last_updated to advance past %v, got %v", original.LastUpdated, updated.LastUpdated)
	}

	count, _ := store.Count(ctx)
	if count != 1 {
		t.Errorf("Expected 1 course, got %d", count)
	}
}

func TestUpsertKeepsDeactivation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	course := newTestCourse("saylor", "https://saylor.org/courses/cs101", "Programming")
	id, _, err := store.Upsert(ctx, course)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.SetActive(ctx, id, false); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.Upsert(ctx, course); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetByID(ctx, id)
	if got.IsActive {
		t.Error("Expected course to stay inactive after a refresh upsert")
	}

	listed, _ := store.Filter(ctx, Filter{})
	if len(listed) != 0 {
		t.Errorf("Expected inactive course to be excluded from listings, got %d", len(listed))
	}
}

func TestUpsertRejectsInvalidRating(t *testing.T) {
	store := NewMemoryStore()
	course := newTestCourse("swayam", "https://swayam.gov.in/nd1_noc19_cs01", "Science")
	for _, rating := range []float64{6.0, math.NaN()} {
		course.Rating = rating

		_, _, err := store.Upsert(context.Background(), course)
		if !IsValidationError(err) {
			t.Fatalf("Expected validation error for rating %v, got: %v", rating, err)
		}
	}

	count, _ := store.Count(context.Background())
	if count != 0 {
		t.Errorf("Expected empty catalog, got %d courses", count)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.GetByID(context.Background(), 42)
	if err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
}

func TestIDsAreNeverReused(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seen := make(map[int64]bool)
	for i := 0; i < 5; i++ {
		id, _, err := store.Upsert(ctx, newTestCourse("ocw", fmt.Sprintf("https://ocw.mit.edu/c/%d", i), "Science"))
		if err != nil {
			t.Fatal(err)
		}
		if seen[id] {
			t.Fatalf("Expected unique id, %d was reused", id)
		}
		seen[id] = true
	}
}

func TestConcurrentUpsertsSameKey(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]int64, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			course := newTestCourse("telegram", "https://t.me/freecourses/1", "Marketing")
			course.Students = i
			id, _, err := store.Upsert(ctx, course)
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	count, _ := store.Count(ctx)
	if count != 1 {
		t.Fatalf("Expected a single course for one natural key, got %d", count)
	}
	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("Expected every upsert to return id %d, got %d", ids[0], id)
		}
	}
}

func TestConcurrentUpsertsDifferentKeys(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			course := newTestCourse("youtube", fmt.Sprintf("https://youtube.com/watch?v=%d", i), "Programming")
			if _, _, err := store.Upsert(ctx, course); err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		}(i)
	}

	// Readers run alongside writers.
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.List(ctx); err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	count, _ := store.Count(ctx)
	if count != 100 {
		t.Errorf("Expected 100 courses, got %d", count)
	}

	courses, _ := store.List(ctx)
	for i := 1; i < len(courses); i++ {
		if courses[i].ID <= courses[i-1].ID {
			t.Fatalf("Expected ascending ids, got %d after %d", courses[i].ID, courses[i-1].ID)
		}
	}
}

func TestListReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, _, err := store.Upsert(ctx, newTestCourse("youtube", "https://youtube.com/watch?v=x", "Design")); err != nil {
		t.Fatal(err)
	}

	courses, _ := store.List(ctx)
	courses[0].Tags[0] = "mutated"

	again, _ := store.List(ctx)
	if again[0].Tags[0] != "go" {
		t.Errorf("Expected stored tags to be unaffected, got %v", again[0].Tags)
	}
}
