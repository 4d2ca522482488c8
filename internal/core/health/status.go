package health

import "time"

const (
	StatusUp       = "UP"
	StatusDegraded = "DEGRADED"
	StatusDown     = "DOWN"
)

// Dependency is the reachability of an external resource.
type Dependency struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// LastRun summarises the most recent ingestion run.
type LastRun struct {
	ID         int64     `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	Processed  int       `json:"processed"`
	Duplicates int       `json:"duplicates"`
	Errors     int       `json:"errors"`
	Message    string    `json:"message,omitempty"`
}

// Status captures the state of the service at a moment in time.
type Status struct {
	Service      string       `json:"service"`
	Version      string       `json:"version"`
	Environment  string       `json:"environment"`
	Status       string       `json:"status"`
	StartedAt    time.Time    `json:"startedAt"`
	Uptime       string       `json:"uptime"`
	UptimeSecs   int64        `json:"uptimeSeconds"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
	LastRun      *LastRun     `json:"lastRun,omitempty"`
}
