package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/scry-fsrs/internal/store"
)

// TimeLayout is the fixed-width UTC layout used for timestamps stored as
// text. Fixed width keeps lexical order equal to chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// Dialect describes how a SQL backend differs from the common query text.
type Dialect struct {
	// Name identifies the backend in logs
	Name string
	// Numbered selects $1, $2 placeholders instead of ?
	Numbered bool
	// TextTimes stores timestamps as TimeLayout strings
	TextTimes bool
	// MapError translates driver errors to store errors; nil leaves them as is
	MapError func(error) error
}

// Rebind rewrites ? placeholders for the dialect. Queries must not contain
// literal question marks.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Time converts t to the value written to a timestamp column.
func (d Dialect) Time(t time.Time) any {
	t = t.UTC()
	if d.TextTimes {
		return t.Format(TimeLayout)
	}
	return t
}

// NullTime converts an optional time to a column value.
func (d Dialect) NullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return d.Time(*t)
}

// Date converts the calendar date of day to the value written to a date column.
func (d Dialect) Date(day time.Time) any {
	if d.TextTimes {
		return day.Format(time.DateOnly)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

// mapError applies the dialect's mapping and turns sql.ErrNoRows into
// store.ErrNotFound.
func (d Dialect) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}
	if d.MapError != nil {
		return d.MapError(err)
	}
	return err
}

// timestamp scans a timestamp column stored either natively or as text.
type timestamp struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (ts *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*ts = timestamp{}
		return nil
	case time.Time:
		*ts = timestamp{Time: v.UTC(), Valid: true}
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (ts *timestamp) parse(s string) error {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
	}
	*ts = timestamp{Time: t.UTC(), Valid: true}
	return nil
}

// Ptr returns the scanned time or nil for NULL.
func (ts timestamp) Ptr() *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

// checkRowsAffected returns notFound when an UPDATE or DELETE touched no rows.
func checkRowsAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
