package logging

// LogEntry represents a structured log record with fields relevant to
// the evolution loop.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Evolution-specific fields
	Generation int    // Generation index the event belongs to, -1 if none
	Emitter    string // Active emitter name, if any

	// General structured data
	Fields map[string]interface{}
}
