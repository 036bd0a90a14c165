package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Catalog configuration
	DirectoryURL string
	StatusFile   string

	// Enrichment configuration
	YouTubeAPIKey    string
	YouTubeAPIURL    string
	PodcastSearchURL string

	// Application configuration
	Port            string
	WorkerCount     int
	RefreshInterval int
	FetchTimeout    int
	ExtractContent  bool
	APIAccessKey    string
	Refresh         bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
