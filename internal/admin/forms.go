package admin

import (
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// formError is a user input problem found while parsing a form
type formError struct {
	msg string
}

func (e *formError) Error() string { return e.msg }

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// optionalInt parses an optional integer field; empty means unset
func optionalInt(v string) (*int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// queryInt reads a positive integer query parameter, 0 when absent or invalid
func queryInt(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
