package models

// LogLevel of a progress log event
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// TickEvent reports one unit of progress
type TickEvent struct {
	Done        int
	Total       int
	Description string
}

// LogEvent is a discrete message for the progress sink
type LogEvent struct {
	Level   LogLevel
	Message string
	Source  string // source file, when known
	Article string // article title, when known
}

// RecognizedLine is one text line returned by a line recognizer
type RecognizedLine struct {
	Text       string
	Confidence float64 // 0..100
	Err        error   // set when the backend failed on this line
}
