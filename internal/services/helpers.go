package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// Page carries list pagination.
type Page struct {
	Limit  int
	Offset int
}

// Normalised replaces an out-of-range limit with the default page size and a negative offset with zero.
func (p Page) Normalised() Page {
	if p.Limit <= 0 || p.Limit > maxPageSize {
		p.Limit = defaultPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func encodeJSON(value map[string]any) (datatypes.JSON, error) {
	if len(value) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

func decodeJSON(data datatypes.JSON) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
