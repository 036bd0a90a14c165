package catalog

// LanguageContent mirrors one element of the directory JSON document.
type LanguageContent struct {
	Language   string         `json:"language"`
	Title      string         `json:"title"`
	Categories []SiteCategory `json:"categories"`
}

type SiteCategory struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Sites []Site `json:"sites"`
}

type Site struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	SiteURL    string `json:"site_url"`
	FeedURL    string `json:"feed_url"`
	TwitterURL string `json:"twitter_url"`
}

// OrganizedSite is one site tagged with its resolved language and
// category keys.
type OrganizedSite struct {
	LanguageCode string
	CategorySlug string
	Site         Site
}

// Directory is the flattened catalog: keyed maps plus the organized
// site list. Maps carry no ordering; the site list preserves document
// order.
type Directory struct {
	Languages  map[string]string            // code -> title
	Categories map[string]map[string]string // slug -> code -> title
	Sites      []OrganizedSite
}
