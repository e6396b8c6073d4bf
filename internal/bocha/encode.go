package bocha

import "encoding/json"

// Serialize rebuilds the wire document for the tree. Required fields are
// always emitted. Optional fields that are nil are left out entirely, never
// emitted as null, so parsing a payload and serializing the result gives
// back the original document key for key. Serialize cannot fail and does
// not mutate the receiver.
func (r SearchResponse) Serialize() map[string]any {
	out := map[string]any{
		wireType:         r.Type,
		wireQueryContext: r.QueryContext.serialize(),
	}
	if r.WebPages != nil {
		out[wireWebPages] = r.WebPages.serialize()
	}
	if r.Images != nil {
		out[wireImages] = r.Images.serialize()
	}
	if r.Videos != nil {
		out[wireVideos] = r.Videos.serialize()
	}
	return out
}

// MarshalJSON emits the same wire shape Serialize produces.
func (r SearchResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Serialize())
}

func (q QueryContext) serialize() map[string]any {
	return map[string]any{wireOriginalQuery: q.OriginalQuery}
}

func (c *WebPageCollection) serialize() map[string]any {
	out := make(map[string]any, 4)
	putString(out, wireWebSearchURL, c.WebSearchURL)
	putInt64(out, wireTotalEstimatedMatches, c.TotalEstimatedMatches)
	values := make([]any, 0, len(c.Value))
	for _, v := range c.Value {
		values = append(values, v.serialize())
	}
	out[wireValue] = values
	putBool(out, wireSomeResultsRemoved, c.SomeResultsRemoved)
	return out
}

func (p WebPageValue) serialize() map[string]any {
	out := map[string]any{
		wireName:    p.Name,
		wireURL:     p.URL,
		wireSnippet: p.Snippet,
	}
	putString(out, wireID, p.ID)
	putString(out, wireDisplayURL, p.DisplayURL)
	putString(out, wireSummary, p.Summary)
	putString(out, wireSiteName, p.SiteName)
	putString(out, wireSiteIcon, p.SiteIcon)
	putString(out, wireDatePublished, p.DatePublished)
	putString(out, wireDateLastCrawled, p.DateLastCrawled)
	putString(out, wireCachedPageURL, p.CachedPageURL)
	putString(out, wireLanguage, p.Language)
	putBool(out, wireIsFamilyFriendly, p.IsFamilyFriendly)
	putBool(out, wireIsNavigational, p.IsNavigational)
	return out
}

func (c *ImageCollection) serialize() map[string]any {
	values := make([]any, 0, len(c.Value))
	for _, v := range c.Value {
		values = append(values, v.serialize())
	}
	return map[string]any{wireValue: values}
}

func (img ImageValue) serialize() map[string]any {
	out := make(map[string]any, 6)
	putString(out, wireContentURL, img.ContentURL)
	putString(out, wireThumbnailURL, img.ThumbnailURL)
	putString(out, wireName, img.Name)
	putInt(out, wireWidth, img.Width)
	putInt(out, wireHeight, img.Height)
	putString(out, wireHostPageURL, img.HostPageURL)
	return out
}

func (c *VideoCollection) serialize() map[string]any {
	values := make([]any, 0, len(c.Value))
	for _, v := range c.Value {
		values = append(values, v.serialize())
	}
	return map[string]any{wireValue: values}
}

func (v VideoValue) serialize() map[string]any {
	out := make(map[string]any, 6)
	putString(out, wireContentURL, v.ContentURL)
	putString(out, wireName, v.Name)
	putString(out, wireDescription, v.Description)
	putString(out, wireThumbnailURL, v.ThumbnailURL)
	putString(out, wireDuration, v.Duration)
	putString(out, wireHostPageURL, v.HostPageURL)
	return out
}

func putString(m map[string]any, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}

func putBool(m map[string]any, key string, v *bool) {
	if v != nil {
		m[key] = *v
	}
}

func putInt(m map[string]any, key string, v *int) {
	if v != nil {
		m[key] = *v
	}
}

func putInt64(m map[string]any, key string, v *int64) {
	if v != nil {
		m[key] = *v
	}
}
