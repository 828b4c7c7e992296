package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lysyi3m/course-comb/app/catalog"
)

const (
	KindVideo     = "video"
	KindAcademic  = "academic"
	KindCommunity = "community"
)

var (
	ErrTimeout         = errors.New("timeout")
	ErrDuplicateSource = errors.New("source already registered")
	ErrUnknownSource   = errors.New("unknown source")
)

// Adapter fetches course listings from one external provider and normalizes
// them to catalog courses. FetchCourses returns a *FetchError on failure and
// never lets raw transport errors escape.
type Adapter interface {
	Name() string
	Kind() string
	FetchCourses(ctx context.Context) ([]catalog.Course, error)
}

// TimeoutProvider is implemented by adapters that carry their own fetch budget.
type TimeoutProvider interface {
	Timeout() time.Duration
}

// FetchError is a transport or parse failure inside one adapter.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from %s failed: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err for source, mapping context deadlines to ErrTimeout.
// An error that already is a *FetchError is returned unchanged.
func NewFetchError(source string, err error) error {
	if err == nil {
		return nil
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return &FetchError{Source: source, Err: err}
}
