package bocha

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// ParseSearchResponse validates a decoded JSON payload and builds the typed
// response tree. Parsing is all or nothing: the first missing required field
// or mistyped value aborts with a *ValidationError naming the field by its
// wire path. Keys outside the declared schema are ignored, so new provider
// fields never break older clients. The input is only read, never modified.
func ParseSearchResponse(raw map[string]any) (*SearchResponse, error) {
	typ, err := requireString(raw, wireType, "")
	if err != nil {
		return nil, err
	}
	qcObj, err := requireObject(raw, wireQueryContext, "")
	if err != nil {
		return nil, err
	}
	qc, err := parseQueryContext(qcObj, wireQueryContext)
	if err != nil {
		return nil, err
	}

	resp := &SearchResponse{Type: typ, QueryContext: qc}

	if obj, err := optObject(raw, wireWebPages, ""); err != nil {
		return nil, err
	} else if obj != nil {
		if resp.WebPages, err = parseWebPageCollection(obj, wireWebPages); err != nil {
			return nil, err
		}
	}
	if obj, err := optObject(raw, wireImages, ""); err != nil {
		return nil, err
	} else if obj != nil {
		if resp.Images, err = parseImageCollection(obj, wireImages); err != nil {
			return nil, err
		}
	}
	if obj, err := optObject(raw, wireVideos, ""); err != nil {
		return nil, err
	} else if obj != nil {
		if resp.Videos, err = parseVideoCollection(obj, wireVideos); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// UnmarshalJSON decodes and validates a wire document in one step. Numbers
// are decoded as json.Number so large match counts survive intact.
func (r *SearchResponse) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseSearchResponse(raw)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

func parseQueryContext(obj map[string]any, path string) (QueryContext, error) {
	q, err := requireString(obj, wireOriginalQuery, path)
	if err != nil {
		return QueryContext{}, err
	}
	return QueryContext{OriginalQuery: q}, nil
}

func parseWebPageCollection(obj map[string]any, path string) (*WebPageCollection, error) {
	c := &WebPageCollection{}
	var err error
	if c.WebSearchURL, err = optString(obj, wireWebSearchURL, path); err != nil {
		return nil, err
	}
	if c.TotalEstimatedMatches, err = optInt64(obj, wireTotalEstimatedMatches, path); err != nil {
		return nil, err
	}
	if c.TotalEstimatedMatches != nil && *c.TotalEstimatedMatches < 0 {
		return nil, newTypeMismatchError(joinPath(path, wireTotalEstimatedMatches), "non-negative integer", *c.TotalEstimatedMatches)
	}
	if c.SomeResultsRemoved, err = optBool(obj, wireSomeResultsRemoved, path); err != nil {
		return nil, err
	}

	items, err := requireArray(obj, wireValue, path)
	if err != nil {
		return nil, err
	}
	valuePath := joinPath(path, wireValue)
	c.Value = make([]WebPageValue, 0, len(items))
	for i, item := range items {
		elemPath := fmt.Sprintf("%s[%d]", valuePath, i)
		elemObj, ok := item.(map[string]any)
		if !ok {
			return nil, newTypeMismatchError(elemPath, "object", item)
		}
		page, err := parseWebPageValue(elemObj, elemPath)
		if err != nil {
			return nil, err
		}
		c.Value = append(c.Value, page)
	}
	return c, nil
}

func parseWebPageValue(obj map[string]any, path string) (WebPageValue, error) {
	var p WebPageValue
	var err error
	if p.Name, err = requireString(obj, wireName, path); err != nil {
		return WebPageValue{}, err
	}
	if p.URL, err = requireString(obj, wireURL, path); err != nil {
		return WebPageValue{}, err
	}
	if p.Snippet, err = requireString(obj, wireSnippet, path); err != nil {
		return WebPageValue{}, err
	}

	optional := []struct {
		key string
		dst **string
	}{
		{wireID, &p.ID},
		{wireDisplayURL, &p.DisplayURL},
		{wireSummary, &p.Summary},
		{wireSiteName, &p.SiteName},
		{wireSiteIcon, &p.SiteIcon},
		{wireDatePublished, &p.DatePublished},
		{wireDateLastCrawled, &p.DateLastCrawled},
		{wireCachedPageURL, &p.CachedPageURL},
		{wireLanguage, &p.Language},
	}
	for _, f := range optional {
		if *f.dst, err = optString(obj, f.key, path); err != nil {
			return WebPageValue{}, err
		}
	}
	if p.IsFamilyFriendly, err = optBool(obj, wireIsFamilyFriendly, path); err != nil {
		return WebPageValue{}, err
	}
	if p.IsNavigational, err = optBool(obj, wireIsNavigational, path); err != nil {
		return WebPageValue{}, err
	}
	return p, nil
}

func parseImageCollection(obj map[string]any, path string) (*ImageCollection, error) {
	items, err := requireArray(obj, wireValue, path)
	if err != nil {
		return nil, err
	}
	valuePath := joinPath(path, wireValue)
	c := &ImageCollection{Value: make([]ImageValue, 0, len(items))}
	for i, item := range items {
		elemPath := fmt.Sprintf("%s[%d]", valuePath, i)
		elemObj, ok := item.(map[string]any)
		if !ok {
			return nil, newTypeMismatchError(elemPath, "object", item)
		}
		img, err := parseImageValue(elemObj, elemPath)
		if err != nil {
			return nil, err
		}
		c.Value = append(c.Value, img)
	}
	return c, nil
}

func parseImageValue(obj map[string]any, path string) (ImageValue, error) {
	var img ImageValue
	var err error
	if img.ContentURL, err = optString(obj, wireContentURL, path); err != nil {
		return ImageValue{}, err
	}
	if img.ThumbnailURL, err = optString(obj, wireThumbnailURL, path); err != nil {
		return ImageValue{}, err
	}
	if img.Name, err = optString(obj, wireName, path); err != nil {
		return ImageValue{}, err
	}
	if img.Width, err = optInt(obj, wireWidth, path); err != nil {
		return ImageValue{}, err
	}
	if img.Height, err = optInt(obj, wireHeight, path); err != nil {
		return ImageValue{}, err
	}
	if img.HostPageURL, err = optString(obj, wireHostPageURL, path); err != nil {
		return ImageValue{}, err
	}
	return img, nil
}

func parseVideoCollection(obj map[string]any, path string) (*VideoCollection, error) {
	items, err := requireArray(obj, wireValue, path)
	if err != nil {
		return nil, err
	}
	valuePath := joinPath(path, wireValue)
	c := &VideoCollection{Value: make([]VideoValue, 0, len(items))}
	for i, item := range items {
		elemPath := fmt.Sprintf("%s[%d]", valuePath, i)
		elemObj, ok := item.(map[string]any)
		if !ok {
			return nil, newTypeMismatchError(elemPath, "object", item)
		}
		vid, err := parseVideoValue(elemObj, elemPath)
		if err != nil {
			return nil, err
		}
		c.Value = append(c.Value, vid)
	}
	return c, nil
}

func parseVideoValue(obj map[string]any, path string) (VideoValue, error) {
	var vid VideoValue
	var err error
	if vid.ContentURL, err = optString(obj, wireContentURL, path); err != nil {
		return VideoValue{}, err
	}
	if vid.Name, err = optString(obj, wireName, path); err != nil {
		return VideoValue{}, err
	}
	if vid.Description, err = optString(obj, wireDescription, path); err != nil {
		return VideoValue{}, err
	}
	if vid.ThumbnailURL, err = optString(obj, wireThumbnailURL, path); err != nil {
		return VideoValue{}, err
	}
	if vid.Duration, err = optString(obj, wireDuration, path); err != nil {
		return VideoValue{}, err
	}
	if vid.HostPageURL, err = optString(obj, wireHostPageURL, path); err != nil {
		return VideoValue{}, err
	}
	return vid, nil
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func requireString(obj map[string]any, key, prefix string) (string, error) {
	v, ok := obj[key]
	if !ok {
		return "", newMissingFieldError(joinPath(prefix, key))
	}
	s, ok := v.(string)
	if !ok {
		return "", newTypeMismatchError(joinPath(prefix, key), "string", v)
	}
	return s, nil
}

func requireObject(obj map[string]any, key, prefix string) (map[string]any, error) {
	v, ok := obj[key]
	if !ok {
		return nil, newMissingFieldError(joinPath(prefix, key))
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, newTypeMismatchError(joinPath(prefix, key), "object", v)
	}
	return m, nil
}

func requireArray(obj map[string]any, key, prefix string) ([]any, error) {
	v, ok := obj[key]
	if !ok {
		return nil, newMissingFieldError(joinPath(prefix, key))
	}
	a, ok := v.([]any)
	if !ok {
		return nil, newTypeMismatchError(joinPath(prefix, key), "array", v)
	}
	return a, nil
}

// optObject returns (nil, nil) when the key is absent or null.
func optObject(obj map[string]any, key, prefix string) (map[string]any, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, newTypeMismatchError(joinPath(prefix, key), "object", v)
	}
	return m, nil
}

func optString(obj map[string]any, key, prefix string) (*string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, newTypeMismatchError(joinPath(prefix, key), "string", v)
	}
	return &s, nil
}

func optBool(obj map[string]any, key, prefix string) (*bool, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil, newTypeMismatchError(joinPath(prefix, key), "boolean", v)
	}
	return &b, nil
}

func optInt64(obj map[string]any, key, prefix string) (*int64, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, nil
	}
	i, ok := asInt64(v)
	if !ok {
		return nil, newTypeMismatchError(joinPath(prefix, key), "integer", v)
	}
	return &i, nil
}

func optInt(obj map[string]any, key, prefix string) (*int, error) {
	i64, err := optInt64(obj, key, prefix)
	if err != nil || i64 == nil {
		return nil, err
	}
	i := int(*i64)
	return &i, nil
}

// asInt64 narrows the numeric shapes a JSON decode can hand us. Fractional
// values do not narrow.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
