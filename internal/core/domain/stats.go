package domain

// Stats are the global counters shown on the dashboard.
type Stats struct {
	Documents int `json:"documents"`
	Pages     int `json:"pages"`
	Searches  int `json:"searches"`
}
