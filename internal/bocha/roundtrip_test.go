package bocha

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip parses a wire document and serializes the result again.
func roundTrip(t *testing.T, doc string) string {
	t.Helper()
	resp := parseDoc(t, doc)
	out, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(out)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "minimal",
			doc:  `{"_type":"SearchResponse","queryContext":{"originalQuery":"golang"}}`,
		},
		{
			name: "empty results",
			doc:  `{"_type":"SearchResponse","queryContext":{"originalQuery":"q"},"webPages":{"value":[]}}`,
		},
		{
			name: "falsy optionals present",
			doc: `{"_type":"SearchResponse","queryContext":{"originalQuery":""},
				"webPages":{"totalEstimatedMatches":0,"someResultsRemoved":false,
				"value":[{"name":"","url":"u","snippet":"","summary":"","isNavigational":false}]}}`,
		},
		{
			name: "every collection populated",
			doc: `{"_type":"SearchResponse","queryContext":{"originalQuery":"mountains"},
				"webPages":{"webSearchUrl":"https://bochaai.com/search?q=mountains","totalEstimatedMatches":52300,
					"value":[{"id":"1","name":"Alps","url":"https://example.com/alps","displayUrl":"example.com/alps",
						"snippet":"The Alps.","summary":"The Alps in detail.","siteName":"Example",
						"siteIcon":"https://example.com/icon.png","datePublished":"2024-01-01T00:00:00Z",
						"dateLastCrawled":"2024-01-02T00:00:00Z","cachedPageUrl":"https://cache.example.com/alps",
						"language":"en","isFamilyFriendly":true,"isNavigational":false}],
					"someResultsRemoved":true},
				"images":{"value":[{"contentUrl":"https://example.com/alps.jpg","thumbnailUrl":"https://example.com/alps_t.jpg",
					"name":"Alps","width":800,"height":600,"hostPageUrl":"https://example.com/alps"}]},
				"videos":{"value":[{"contentUrl":"https://example.com/alps.mp4","name":"Flying over the Alps",
					"description":"Drone footage.","thumbnailUrl":"https://example.com/alps_v.jpg",
					"duration":"PT3M4S","hostPageUrl":"https://example.com/videos/alps"}]}}`,
		},
		{
			name: "sparse image and video entries",
			doc: `{"_type":"SearchResponse","queryContext":{"originalQuery":"q"},
				"images":{"value":[{},{"width":10}]},
				"videos":{"value":[{"name":"only a name"}]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.doc, roundTrip(t, tt.doc))
		})
	}
}

func TestRoundTrip_SearchScenario(t *testing.T) {
	doc := `{
		"_type": "SearchResponse",
		"queryContext": {"originalQuery": "AI"},
		"webPages": {
			"totalEstimatedMatches": 42,
			"value": [{"name": "A", "url": "http://a", "snippet": "s"}]
		}
	}`

	resp := parseDoc(t, doc)

	assert.Equal(t, "AI", resp.QueryContext.OriginalQuery)
	require.NotNil(t, resp.WebPages)
	require.NotNil(t, resp.WebPages.TotalEstimatedMatches)
	assert.Equal(t, int64(42), *resp.WebPages.TotalEstimatedMatches)
	require.Len(t, resp.WebPages.Value, 1)
	assert.Equal(t, "A", resp.WebPages.Value[0].Name)
	assert.Nil(t, resp.Images)
	assert.Nil(t, resp.Videos)

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(out))
}

func TestRoundTrip_OrderPreserved(t *testing.T) {
	doc := `{"_type":"SearchResponse","queryContext":{"originalQuery":"q"},"webPages":{"value":[
		{"name":"r1","url":"u1","snippet":"s1"},
		{"name":"r2","url":"u2","snippet":"s2"},
		{"name":"r3","url":"u3","snippet":"s3"},
		{"name":"r4","url":"u4","snippet":"s4"},
		{"name":"r5","url":"u5","snippet":"s5"}]}}`

	resp := parseDoc(t, doc)
	require.Len(t, resp.WebPages.Value, 5)
	for i, page := range resp.WebPages.Value {
		assert.Equalf(t, []string{"r1", "r2", "r3", "r4", "r5"}[i], page.Name, "element %d", i)
	}

	values := resp.Serialize()["webPages"].(map[string]any)["value"].([]any)
	require.Len(t, values, 5)
	for i, v := range values {
		assert.Equalf(t, []string{"r1", "r2", "r3", "r4", "r5"}[i], v.(map[string]any)["name"], "element %d", i)
	}
}

func TestRoundTrip_UnknownKeysDropped(t *testing.T) {
	doc := `{
		"_type": "SearchResponse",
		"futureField": 1,
		"queryContext": {"originalQuery": "q"},
		"webPages": {"value": [{"name":"n","url":"u","snippet":"s","rankingScore":0.98}]}
	}`

	out := roundTrip(t, doc)

	var plain map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &plain))
	assert.NotContains(t, plain, "futureField")

	page := plain["webPages"].(map[string]any)["value"].([]any)[0].(map[string]any)
	assert.NotContains(t, page, "rankingScore")
	assert.Equal(t, "n", page["name"])
}
