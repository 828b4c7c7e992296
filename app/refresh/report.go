package refresh

import (
	"encoding/json"
	"time"
)

// SourceResult is the outcome of one adapter within a refresh run. Exactly
// one of Count (accepted courses) or Error is meaningful.
type SourceResult struct {
	Count      int    `json:"count"`
	New        int    `json:"new"`
	Updated    int    `json:"updated"`
	Rejected   int    `json:"rejected"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

func (r SourceResult) Failed() bool {
	return r.Error != ""
}

// MarshalJSON writes counters for a successful source and only the error for
// a failed one.
func (r SourceResult) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(struct {
			Error      string `json:"error"`
			DurationMS int64  `json:"duration_ms"`
		}{r.Error, r.DurationMS})
	}

	type plain SourceResult
	return json.Marshal(plain(r))
}

// Report summarizes one refresh run. Reports are shared between concurrent
// callers and must be treated as read-only.
type Report struct {
	RunID           string                  `json:"run_id"`
	StartedAt       time.Time               `json:"started_at"`
	FinishedAt      time.Time               `json:"finished_at"`
	TotalNew        int                     `json:"total_new"`
	TotalUpdated    int                     `json:"total_updated"`
	TotalNewCourses int                     `json:"total_new_courses"`
	Sources         map[string]SourceResult `json:"sources"`
}

func (r *Report) add(name string, result SourceResult) {
	r.Sources[name] = result
	r.TotalNew += result.New
	r.TotalUpdated += result.Updated
	r.TotalNewCourses = r.TotalNew + r.TotalUpdated
}

// FailedSources returns the names of sources that reported an error.
func (r *Report) FailedSources() []string {
	var failed []string
	for name, result := range r.Sources {
		if result.Failed() {
			failed = append(failed, name)
		}
	}
	return failed
}
