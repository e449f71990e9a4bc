package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const isoDayLayout = "2006-01-02"

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func textParam(v string) pgtype.Text {
	if v == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: v, Valid: true}
}

func jsonParam(v any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

// ParseDay validates an ISO calendar day (YYYY-MM-DD) and returns it at UTC midnight.
func ParseDay(day string) (time.Time, error) {
	return time.ParseInLocation(isoDayLayout, day, time.UTC)
}

func FormatDay(t time.Time) string {
	return t.UTC().Format(isoDayLayout)
}
