package models

// EventStatus classifies a broadcast-bound product relative to now.
type EventStatus string

const (
	StatusLive        EventStatus = "live"
	StatusUpcoming    EventStatus = "upcoming"
	StatusArchive     EventStatus = "archive"
	StatusNoBroadcast EventStatus = "noBroadcast"
)

// MenuItem is one navigable entry handed to the host. Folder entries
// carry a catalog Target URL; playable entries carry the product GUID
// or self URL for the play route.
type MenuItem struct {
	Title       string      `json:"title"`
	Target      string      `json:"target,omitempty"`
	Ident       string      `json:"ident,omitempty"`
	ContentType string      `json:"contentType,omitempty"`
	Folder      bool        `json:"folder"`
	Playable    bool        `json:"playable"`
	Info        *ItemInfo   `json:"info,omitempty"`
	Art         *Artwork    `json:"art,omitempty"`
	Status      EventStatus `json:"status,omitempty"`
	StartTime   string      `json:"startTime,omitempty"`
	Dialog      *Dialog     `json:"dialog,omitempty"`
	TVE         bool        `json:"tve,omitempty"`
}

// ItemInfo is descriptive metadata for a menu entry. Cast is always a
// list (possibly empty); Director is nil when uncredited, as the two
// absences render differently on the host.
type ItemInfo struct {
	MediaType  string   `json:"mediaType"`
	Plot       string   `json:"plot,omitempty"`
	Genre      string   `json:"genre,omitempty"`
	Duration   int64    `json:"duration,omitempty"`
	Year       int      `json:"year,omitempty"`
	MPAA       string   `json:"mpaa,omitempty"`
	Cast       []string `json:"cast"`
	Director   *string  `json:"director,omitempty"`
	IMDBNumber string   `json:"imdbnumber,omitempty"`
	Rating     float64  `json:"rating,omitempty"`
	Votes      int      `json:"votes,omitempty"`
	TVShow     string   `json:"tvshowtitle,omitempty"`
	Season     int      `json:"season,omitempty"`
	Episode    int      `json:"episode,omitempty"`
	PlayCount  int      `json:"playcount,omitempty"`
	LastPlayed string   `json:"lastplayed,omitempty"`
	Resume     float64  `json:"resume,omitempty"`
	Total      float64  `json:"total,omitempty"`
}

// Artwork maps resolved image URLs to host art slots.
type Artwork struct {
	Thumb  string `json:"thumb,omitempty"`
	Fanart string `json:"fanart,omitempty"`
	Banner string `json:"banner,omitempty"`
	Cover  string `json:"cover,omitempty"`
	Poster string `json:"poster,omitempty"`
}

// Dialog describes a blocking notice the host should show instead of
// navigating, used for upcoming events.
type Dialog struct {
	Heading string `json:"heading"`
	Message string `json:"message"`
}

// Listing is a page of menu items plus the next-page link when the
// document advertises one.
type Listing struct {
	Items    []MenuItem `json:"items"`
	NextPage string     `json:"nextPage,omitempty"`
}

// StreamDescriptor is everything the host needs to start playback.
type StreamDescriptor struct {
	ManifestURL string   `json:"manifestUrl"`
	MimeType    string   `json:"mimeType"`
	DRMSystem   string   `json:"drmSystem,omitempty"`
	LicenseURL  string   `json:"licenseUrl,omitempty"`
	LicenseKey  string   `json:"licenseKey,omitempty"`
	ReleasePid  string   `json:"releasePid,omitempty"`
	UserAgent   string   `json:"userAgent"`
	Subtitles   []string `json:"subtitles,omitempty"`
}

// ActivationData is the device-pairing challenge shown to the user.
type ActivationData struct {
	VerificationURL string `json:"verificationUrl"`
	UserCode        string `json:"userCode"`
	DeviceToken     string `json:"deviceToken"`
	ExpiresSeconds  int    `json:"expires"`
	IntervalSeconds int    `json:"interval"`
}
