// Package record defines the logical item stored in a user's collection and
// the single normalization rules applied at every read boundary. Values
// arrive from loosely-typed sources (replicated maps, remote documents, the
// legacy array snapshot), so every field coercion lives here rather than
// inline at call sites.
package record

import (
	"sort"
	"strconv"
	"time"
)

// Field defaults applied wherever a record is materialized.
const (
	DefaultStage         = "inspiration"
	DefaultCategory      = "note"
	DefaultAIAssistClass = "unclassified"
)

// Record is one logical item: an idea, task, or project card.
type Record struct {
	ID            string         `json:"id"`
	Content       string         `json:"content"`
	Stage         string         `json:"stage"`
	Category      string         `json:"category"`
	Completed     bool           `json:"completed"`
	AIAssistClass string         `json:"aiAssistClass"`
	Timestamp     int64          `json:"timestamp"` // epoch millis
	CreatedAt     int64          `json:"createdAt"` // epoch millis
	UpdatedAt     int64          `json:"updatedAt,omitempty"`
	Extra         map[string]any `json:"-"` // free-form fields carried opaquely
}

// known lists the field keys the core interprets; everything else is Extra.
var known = map[string]bool{
	"id": true, "content": true, "stage": true, "category": true,
	"completed": true, "aiAssistClass": true,
	"timestamp": true, "createdAt": true, "updatedAt": true,
}

// FromFields normalizes a loosely-typed field map into a Record.
func FromFields(fields map[string]any) Record {
	r := Record{
		ID:            asString(fields["id"]),
		Content:       asString(fields["content"]),
		Stage:         asString(fields["stage"]),
		Category:      asString(fields["category"]),
		Completed:     TruthyCompleted(fields["completed"]),
		AIAssistClass: asString(fields["aiAssistClass"]),
		Timestamp:     asMillis(fields["timestamp"]),
		CreatedAt:     asMillis(fields["createdAt"]),
		UpdatedAt:     asMillis(fields["updatedAt"]),
	}
	if r.Stage == "" {
		r.Stage = DefaultStage
	}
	if r.Category == "" {
		r.Category = DefaultCategory
	}
	if r.AIAssistClass == "" {
		r.AIAssistClass = DefaultAIAssistClass
	}

	for k, v := range fields {
		if known[k] {
			continue
		}
		if r.Extra == nil {
			r.Extra = make(map[string]any)
		}
		r.Extra[k] = v
	}
	return r
}

// Fields converts a Record back into a field map for storage.
func (r Record) Fields() map[string]any {
	fields := map[string]any{
		"id":            r.ID,
		"content":       r.Content,
		"stage":         r.Stage,
		"category":      r.Category,
		"completed":     r.Completed,
		"aiAssistClass": r.AIAssistClass,
		"timestamp":     r.Timestamp,
		"createdAt":     r.CreatedAt,
	}
	if r.UpdatedAt != 0 {
		fields["updatedAt"] = r.UpdatedAt
	}
	for k, v := range r.Extra {
		fields[k] = v
	}
	return fields
}

// LastWrite returns the record's effective last-write time: UpdatedAt when
// present, else the store's write timestamp.
func (r Record) LastWrite(storeWrite time.Time) int64 {
	if r.UpdatedAt != 0 {
		return r.UpdatedAt
	}
	return storeWrite.UnixMilli()
}

// TruthyCompleted applies the loose-truthy rule for the completed flag.
// true, 1, "1", and "true" mark a record completed; everything else does not.
func TruthyCompleted(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t == 1
	case int64:
		return t == 1
	case float64:
		return t == 1
	case string:
		return t == "1" || t == "true"
	default:
		return false
	}
}

// SortNewestFirst orders records by CreatedAt descending, missing values
// sorting last. This is the materialized-list order the application reads.
func SortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt > records[j].CreatedAt
	})
}

// SortOldestFirst orders records by Timestamp ascending (FIFO task order).
func SortOldestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asMillis coerces numeric epoch-millis values that may arrive as any
// numeric type or a numeric string. Unparseable values degrade to 0.
func asMillis(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case uint64:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseFloat(t, 64); err == nil {
			return int64(n)
		}
	case time.Time:
		return t.UnixMilli()
	}
	return 0
}
