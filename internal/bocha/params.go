package bocha

// Freshness filter values accepted by the web search endpoint.
const (
	FreshnessNoLimit  = "noLimit"
	FreshnessOneDay   = "oneDay"
	FreshnessOneWeek  = "oneWeek"
	FreshnessOneMonth = "oneMonth"
	FreshnessOneYear  = "oneYear"
)

// Result count bounds enforced by the provider.
const (
	MinCount     = 1
	MaxCount     = 50
	DefaultCount = 10
)

// Freshnesses lists every accepted freshness value, in the order the
// provider documents them. Tool schemas use it for enum validation.
var Freshnesses = []string{
	FreshnessNoLimit,
	FreshnessOneDay,
	FreshnessOneWeek,
	FreshnessOneMonth,
	FreshnessOneYear,
}

// ValidFreshness reports whether f is an accepted freshness value.
func ValidFreshness(f string) bool {
	for _, v := range Freshnesses {
		if f == v {
			return true
		}
	}
	return false
}

// SearchRequest holds the parameters for one web search call.
//
// Include and Exclude restrict results to, or drop, specific sites; each
// takes up to 20 domains separated by "|" or ",". Count asks for between
// MinCount and MaxCount results, zero meaning DefaultCount. Summary asks
// the provider to attach long form text summaries to web page results.
type SearchRequest struct {
	Query     string
	Freshness string
	Summary   bool
	Include   string
	Exclude   string
	Count     int
}

// body builds the JSON object posted to the search endpoint. Unset filter
// fields stay off the wire; summary and count are always sent.
func (r *SearchRequest) body() map[string]any {
	b := map[string]any{
		"query":   r.Query,
		"summary": r.Summary,
		"count":   r.count(),
	}
	if r.Freshness != "" {
		b["freshness"] = r.Freshness
	}
	if r.Include != "" {
		b["include"] = r.Include
	}
	if r.Exclude != "" {
		b["exclude"] = r.Exclude
	}
	return b
}

func (r *SearchRequest) count() int {
	if r.Count == 0 {
		return DefaultCount
	}
	return r.Count
}
