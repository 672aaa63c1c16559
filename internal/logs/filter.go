package logs

import (
	"encoding/json"
	"strings"

	"reelsmith/internal/logging"
)

// Filter selects log lines. The zero value matches everything.
type Filter struct {
	// ProductionID matches records whose production_id starts with it.
	ProductionID string
	// MinLevel is one of debug, info, warn or error.
	MinLevel string
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "warning": 2, "error": 3}

// Match reports whether line passes the filter. JSON records are matched on
// their fields; other lines by substring.
func (f Filter) Match(line string) bool {
	if f.ProductionID == "" && f.MinLevel == "" {
		return true
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return f.matchText(line)
	}
	if f.ProductionID != "" {
		id, _ := record[logging.FieldProductionID].(string)
		if !strings.HasPrefix(id, f.ProductionID) {
			return false
		}
	}
	if f.MinLevel != "" {
		level, _ := record["level"].(string)
		return rank(level) >= rank(f.MinLevel)
	}
	return true
}

func (f Filter) matchText(line string) bool {
	if f.ProductionID != "" && !strings.Contains(line, f.ProductionID) {
		return false
	}
	if f.MinLevel != "" {
		// Console lines start with the timestamp and then the level label.
		fields := strings.Fields(line)
		for _, field := range fields[:min(len(fields), 3)] {
			if r, ok := levelRank[strings.ToLower(field)]; ok {
				return r >= rank(f.MinLevel)
			}
		}
	}
	return true
}

func rank(level string) int {
	if r, ok := levelRank[strings.ToLower(strings.TrimSpace(level))]; ok {
		return r
	}
	return levelRank["info"]
}
