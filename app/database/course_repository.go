package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lysyi3m/course-comb/app/catalog"
)

var _ catalog.Store = (*CourseRepository)(nil)

const courseColumns = `id, title, description, instructor, duration, level, category, source, url,
	thumbnail, rating, students, tags, lessons, last_updated, created_at, is_active`

// CourseRepository is the SQLite-backed catalog store.
type CourseRepository struct {
	db  *DB
	now func() time.Time
}

func NewCourseRepository(db *DB) *CourseRepository {
	return &CourseRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Upsert inserts or updates a course by its (source, url) key. The existence
// check and the write share one transaction, so created reflects whether this
// call inserted the row.
func (r *CourseRepository) Upsert(ctx context.Context, course catalog.Course) (int64, bool, error) {
	catalog.Normalize(&course)
	if err := catalog.Validate(course); err != nil {
		return 0, false, err
	}

	tags, err := json.Marshal(course.Tags)
	if err != nil {
		return 0, false, fmt.Errorf("failed to encode tags: %w", err)
	}

	var duration sql.NullInt64
	if course.Duration != nil {
		duration = sql.NullInt64{Int64: int64(*course.Duration), Valid: true}
	}

	now := formatTime(r.now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	var existed bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM courses WHERE source = ? AND url = ?)`,
		course.Source, course.URL).Scan(&existed)
	if err != nil {
		return 0, false, fmt.Errorf("failed to check course: %w", err)
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO courses (
			title, description, instructor, duration, level, category, source, url,
			thumbnail, rating, students, tags, lessons, last_updated, created_at, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT (source, url) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			instructor = excluded.instructor,
			duration = excluded.duration,
			level = excluded.level,
			category = excluded.category,
			thumbnail = excluded.thumbnail,
			rating = excluded.rating,
			students = excluded.students,
			tags = excluded.tags,
			lessons = excluded.lessons,
			last_updated = excluded.last_updated
		RETURNING id
	`, course.Title, course.Description, course.Instructor, duration, string(course.Level),
		course.Category, course.Source, course.URL, course.Thumbnail, course.Rating,
		course.Students, string(tags), course.Lessons, now, now).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("failed to upsert course: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit upsert: %w", err)
	}

	return id, !existed, nil
}

func (r *CourseRepository) GetByID(ctx context.Context, id int64) (catalog.Course, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = ?`, id)

	course, err := scanCourse(row)
	if err == sql.ErrNoRows {
		return catalog.Course{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Course{}, fmt.Errorf("failed to get course by ID: %w", err)
	}

	return course, nil
}

func (r *CourseRepository) List(ctx context.Context) ([]catalog.Course, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+courseColumns+` FROM courses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var courses []catalog.Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course row: %w", err)
		}
		courses = append(courses, course)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating course rows: %w", err)
	}

	return courses, nil
}

// Filter and Search evaluate predicates in Go so that matching uses the same
// Unicode case folding as the in-memory store.
func (r *CourseRepository) Filter(ctx context.Context, filter catalog.Filter) ([]catalog.Course, error) {
	courses, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.ApplyFilter(courses, filter), nil
}

func (r *CourseRepository) Search(ctx context.Context, criteria catalog.SearchCriteria) ([]catalog.Course, error) {
	courses, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.ApplySearch(courses, criteria), nil
}

func (r *CourseRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE courses
		SET is_active = ?, last_updated = ?
		WHERE id = ?
	`, active, formatTime(r.now()), id)
	if err != nil {
		return fmt.Errorf("failed to set course active status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return catalog.ErrNotFound
	}

	return nil
}

func (r *CourseRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM courses").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get course count: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(row rowScanner) (catalog.Course, error) {
	var (
		course      catalog.Course
		duration    sql.NullInt64
		level       string
		tags        string
		lastUpdated string
		createdAt   string
	)

	err := row.Scan(
		&course.ID, &course.Title, &course.Description, &course.Instructor, &duration,
		&level, &course.Category, &course.Source, &course.URL, &course.Thumbnail,
		&course.Rating, &course.Students, &tags, &course.Lessons,
		&lastUpdated, &createdAt, &course.IsActive,
	)
	if err != nil {
		return catalog.Course{}, err
	}

	course.Level = catalog.Level(level)
	if duration.Valid {
		course.Duration = catalog.IntPtr(int(duration.Int64))
	}

	if err := json.Unmarshal([]byte(tags), &course.Tags); err != nil {
		return catalog.Course{}, fmt.Errorf("failed to decode tags: %w", err)
	}

	if course.LastUpdated, err = parseTime(lastUpdated); err != nil {
		return catalog.Course{}, err
	}
	if course.CreatedAt, err = parseTime(createdAt); err != nil {
		return catalog.Course{}, err
	}

	return course, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}
