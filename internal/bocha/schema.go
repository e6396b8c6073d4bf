package bocha

// Wire keys of the Bing compatible search response document. This table is
// the single source of truth for the accessor name to wire name mapping;
// ParseSearchResponse and Serialize both consult it, nothing else does
// field-name translation.
const (
	wireType                  = "_type"
	wireQueryContext          = "queryContext"
	wireWebPages              = "webPages"
	wireImages                = "images"
	wireVideos                = "videos"
	wireOriginalQuery         = "originalQuery"
	wireWebSearchURL          = "webSearchUrl"
	wireTotalEstimatedMatches = "totalEstimatedMatches"
	wireValue                 = "value"
	wireSomeResultsRemoved    = "someResultsRemoved"
	wireName                  = "name"
	wireURL                   = "url"
	wireSnippet               = "snippet"
	wireID                    = "id"
	wireDisplayURL            = "displayUrl"
	wireSummary               = "summary"
	wireSiteName              = "siteName"
	wireSiteIcon              = "siteIcon"
	wireDatePublished         = "datePublished"
	wireDateLastCrawled       = "dateLastCrawled"
	wireCachedPageURL         = "cachedPageUrl"
	wireLanguage              = "language"
	wireIsFamilyFriendly      = "isFamilyFriendly"
	wireIsNavigational        = "isNavigational"
	wireContentURL            = "contentUrl"
	wireThumbnailURL          = "thumbnailUrl"
	wireWidth                 = "width"
	wireHeight                = "height"
	wireHostPageURL           = "hostPageUrl"
	wireDescription           = "description"
	wireDuration              = "duration"
)

// Optional fields throughout the tree are pointers: nil means the key was
// absent from the source payload and Serialize leaves it out again. A
// pointer to a zero value ("" / 0 / false) is a present field and round
// trips as such. Entities are value objects; nothing mutates them after
// construction.

// WebPageValue is a single ranked web page result. Name, URL and Snippet
// are always present; the date fields are the provider's ISO 8601 style
// strings passed through untouched.
type WebPageValue struct {
	Name    string
	URL     string
	Snippet string

	ID               *string
	DisplayURL       *string
	Summary          *string
	SiteName         *string
	SiteIcon         *string
	DatePublished    *string
	DateLastCrawled  *string
	CachedPageURL    *string
	Language         *string
	IsFamilyFriendly *bool
	IsNavigational   *bool
}

// ImageValue is a single image result. Every field is optional.
type ImageValue struct {
	ContentURL   *string
	ThumbnailURL *string
	Name         *string
	Width        *int
	Height       *int
	HostPageURL  *string
}

// VideoValue is a single video result. Every field is optional; Duration is
// the provider's duration string, not parsed.
type VideoValue struct {
	ContentURL   *string
	Name         *string
	Description  *string
	ThumbnailURL *string
	Duration     *string
	HostPageURL  *string
}

// WebPageCollection holds the web page results plus result set metadata.
// Value keeps the provider's ranking order and may be empty.
type WebPageCollection struct {
	WebSearchURL          *string
	TotalEstimatedMatches *int64
	Value                 []WebPageValue
	SomeResultsRemoved    *bool
}

// ImageCollection holds the image results in provider order.
type ImageCollection struct {
	Value []ImageValue
}

// VideoCollection holds the video results in provider order.
type VideoCollection struct {
	Value []VideoValue
}

// QueryContext echoes the query the provider actually ran.
type QueryContext struct {
	OriginalQuery string
}

// SearchResponse is the top level document returned by the web search
// endpoint. Type carries the wire key "_type". WebPages, Images and Videos
// are nil when the provider omitted the section; an omitted section is not
// the same thing as a present but empty one and the difference survives a
// parse and serialize round trip.
type SearchResponse struct {
	Type         string
	QueryContext QueryContext
	WebPages     *WebPageCollection
	Images       *ImageCollection
	Videos       *VideoCollection
}
