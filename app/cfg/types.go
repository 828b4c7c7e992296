package cfg

import "time"

type Cfg struct {
	// Storage configuration
	DBPath     string
	SourcesDir string
	SeedFile   string

	// Application configuration
	Port            string
	WorkerCount     int
	RefreshInterval time.Duration
	AdapterTimeout  time.Duration
	RefreshOnStart  bool
	APIAccessKey    string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
