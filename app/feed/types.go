package feed

import (
	"time"
)

// Normalized output types

type ParsedEntry struct {
	GUID    string     `json:"guid,omitempty" yaml:"guid,omitempty"`
	Link    string     `json:"link,omitempty" yaml:"link,omitempty"`
	Title   string     `json:"title,omitempty" yaml:"title,omitempty"`
	Author  string     `json:"author,omitempty" yaml:"author,omitempty"`
	Content string     `json:"content,omitempty" yaml:"content,omitempty"`
	Summary string     `json:"summary,omitempty" yaml:"summary,omitempty"`
	PubDate *time.Time `json:"pubDate,omitempty" yaml:"pubDate,omitempty"`
}

// ParsedFeed holds channel level metadata. Title may be empty; deriving a
// fallback (e.g. from the source URL) is up to the caller.
type ParsedFeed struct {
	Title       string            `json:"title,omitempty" yaml:"title,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	SiteURL     string            `json:"siteUrl,omitempty" yaml:"siteUrl,omitempty"`
	IconURL     string            `json:"iconUrl,omitempty" yaml:"iconUrl,omitempty"`
	HubURL      string            `json:"hubUrl,omitempty" yaml:"hubUrl,omitempty"`
	SelfURL     string            `json:"selfUrl,omitempty" yaml:"selfUrl,omitempty"`
	TTLMinutes  *int              `json:"ttlMinutes,omitempty" yaml:"ttlMinutes,omitempty"`
	Syndication *SyndicationHints `json:"syndication,omitempty" yaml:"syndication,omitempty"`

	// Entries is only populated by the collect-all calls; the metadata of a
	// stream leaves it nil.
	Entries []ParsedEntry `json:"entries" yaml:"entries"`
}

type UpdatePeriod string

const (
	UpdateHourly  UpdatePeriod = "hourly"
	UpdateDaily   UpdatePeriod = "daily"
	UpdateWeekly  UpdatePeriod = "weekly"
	UpdateMonthly UpdatePeriod = "monthly"
	UpdateYearly  UpdatePeriod = "yearly"
)

type SyndicationHints struct {
	UpdatePeriod    UpdatePeriod `json:"updatePeriod,omitempty" yaml:"updatePeriod,omitempty"`
	UpdateFrequency *int         `json:"updateFrequency,omitempty" yaml:"updateFrequency,omitempty"`
}

// OPML types

type OpmlFeed struct {
	XMLURL  string `json:"xmlUrl" yaml:"xmlUrl"`
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
	HTMLURL string `json:"htmlUrl,omitempty" yaml:"htmlUrl,omitempty"`

	// Category is the folder path from outermost to innermost, nil when the
	// feed is neither nested nor carries a category attribute.
	Category []string `json:"category,omitempty" yaml:"category,omitempty"`
}

type OpmlSubscription struct {
	Title   string   `json:"title" yaml:"title"`
	XMLURL  string   `json:"xmlUrl" yaml:"xmlUrl"`
	HTMLURL string   `json:"htmlUrl,omitempty" yaml:"htmlUrl,omitempty"`
	Folder  string   `json:"folder,omitempty" yaml:"folder,omitempty"` // legacy single folder
	Tags    []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

type OpmlMetadata struct {
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	OwnerName  string `json:"ownerName,omitempty" yaml:"ownerName,omitempty"`
	OwnerEmail string `json:"ownerEmail,omitempty" yaml:"ownerEmail,omitempty"`
}
