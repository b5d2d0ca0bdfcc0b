package models

import "strings"

// RunLogEntry is a single log line captured for an evaluation run.
//
// Timestamp Format:
//   - Timestamp: "15:04:05" (HH:MM:SS) for display
//   - FullTimestamp: RFC3339Nano for accurate sorting
//
// Sequence is UnixNano plus a global counter so lines written in the
// same nanosecond still order deterministically.
type RunLogEntry struct {
	Timestamp     string `json:"timestamp"`
	FullTimestamp string `json:"full_timestamp"`
	Level         string `json:"level" badgerhold:"index"` // 3-letter code: INF, WRN, ERR, DBG
	Message       string `json:"message"`
	Sequence      string `json:"sequence" badgerhold:"index"`
	RunID         string `json:"run_id,omitempty" badgerhold:"index"`
}

// RunLogBatch groups the stored entries for one run ID.
type RunLogBatch struct {
	RunID   string        `json:"run_id"`
	Entries []RunLogEntry `json:"entries"`
}

// Log level codes in ascending severity order.
const (
	LevelDebug = "DBG"
	LevelInfo  = "INF"
	LevelWarn  = "WRN"
	LevelError = "ERR"
)

var levelRank = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// LevelCode maps a level word ("warn") to its 3-letter code ("WRN").
// Codes pass through; unknown or empty values return "".
func LevelCode(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "dbg":
		return LevelDebug
	case "info", "inf":
		return LevelInfo
	case "warn", "warning", "wrn":
		return LevelWarn
	case "error", "err":
		return LevelError
	default:
		return ""
	}
}

// LevelAtLeast reports whether level is at or above minLevel. Unknown
// levels rank below debug so they are filtered unless minLevel is "".
func LevelAtLeast(level, minLevel string) bool {
	if minLevel == "" {
		return true
	}
	min, ok := levelRank[minLevel]
	if !ok {
		return true
	}
	rank, ok := levelRank[level]
	if !ok {
		return false
	}
	return rank >= min
}
