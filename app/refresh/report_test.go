package refresh

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceResultJSON(t *testing.T) {
	tests := []struct {
		name   string
		result SourceResult
		want   string
	}{
		{
			name:   "succeeded",
			result: SourceResult{Count: 3, New: 2, Updated: 1, DurationMS: 40},
			want:   `{"count":3,"new":2,"updated":1,"rejected":0,"duration_ms":40}`,
		},
		{
			name:   "succeeded with nothing",
			result: SourceResult{},
			want:   `{"count":0,"new":0,"updated":0,"rejected":0,"duration_ms":0}`,
		},
		{
			name:   "failed",
			result: SourceResult{Count: 1, Error: "timeout", DurationMS: 60000},
			want:   `{"error":"timeout","duration_ms":60000}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.result)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestReportJSONOmitsCountForFailedSources(t *testing.T) {
	report := &Report{Sources: map[string]SourceResult{}}
	report.add("x", SourceResult{Count: 2, New: 2})
	report.add("y", SourceResult{Error: "connection refused"})

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded struct {
		Sources map[string]map[string]any `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Contains(t, decoded.Sources["x"], "count")
	assert.NotContains(t, decoded.Sources["x"], "error")
	assert.NotContains(t, decoded.Sources["y"], "count")
	assert.Equal(t, "connection refused", decoded.Sources["y"]["error"])
}
