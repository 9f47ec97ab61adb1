package models

import (
	"encoding/json"
	"time"
)

// ErrorReport is a captured failure. ID is the correlation ID shown to users.
type ErrorReport struct {
	ID      string
	Error   string
	Stack   string
	Extras  map[string]any
	Created time.Time
}

func (r ErrorReport) Map() map[string]any {
	extras, err := json.Marshal(r.Extras)
	if err != nil {
		extras, _ = json.Marshal(map[string]any{"marshal_error": err.Error()})
	}

	return map[string]any{
		"id":     r.ID,
		"error":  r.Error,
		"stack":  r.Stack,
		"extras": extras,
	}
}

func (r ErrorReport) Table() Table {
	return TableErrorReports
}
