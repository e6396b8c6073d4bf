package bocha

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchRequest_Body_Defaults(t *testing.T) {
	req := &SearchRequest{Query: "golang"}

	body := req.body()

	assert.Equal(t, map[string]any{
		"query":   "golang",
		"summary": false,
		"count":   DefaultCount,
	}, body)
	assert.NotContains(t, body, "freshness")
	assert.NotContains(t, body, "include")
	assert.NotContains(t, body, "exclude")
}

func TestSearchRequest_Body_AllFilters(t *testing.T) {
	req := &SearchRequest{
		Query:     "kubernetes operators",
		Freshness: FreshnessOneWeek,
		Summary:   true,
		Include:   "github.com|kubernetes.io",
		Exclude:   "medium.com",
		Count:     25,
	}

	body := req.body()

	assert.Equal(t, map[string]any{
		"query":     "kubernetes operators",
		"summary":   true,
		"count":     25,
		"freshness": FreshnessOneWeek,
		"include":   "github.com|kubernetes.io",
		"exclude":   "medium.com",
	}, body)
}

func TestSearchRequest_Count(t *testing.T) {
	assert.Equal(t, DefaultCount, (&SearchRequest{}).count())
	assert.Equal(t, 1, (&SearchRequest{Count: 1}).count())
	assert.Equal(t, 50, (&SearchRequest{Count: 50}).count())
}

func TestValidFreshness(t *testing.T) {
	for _, f := range Freshnesses {
		assert.Truef(t, ValidFreshness(f), "freshness %q", f)
	}

	assert.False(t, ValidFreshness(""))
	assert.False(t, ValidFreshness("2days"))
	assert.False(t, ValidFreshness("NoLimit"))
}
