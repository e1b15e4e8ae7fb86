package config

import "strings"

const (
	baseURLVar = "BUDGET_API_URL"
	fencingVar = "BUDGET_FENCING"
	metricsVar = "BUDGET_METRICS"
)

type API struct{}

var _ APIConfig = API{}

// GetBaseURL returns the budget API root without a trailing slash
// (e.g. "http://localhost:8000"). Endpoint paths are appended verbatim.
func (API) GetBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, "http://localhost:8000"), "/")
}

// GetFencing reports whether stale whole-collection fetches are discarded.
// Off by default: the later-resolving request wins.
func (API) GetFencing() bool {
	return GetBoolEnv(fencingVar, false)
}

func (API) GetMetricsEnabled() bool {
	return GetBoolEnv(metricsVar, false)
}
