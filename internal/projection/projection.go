// Package projection derives read-only todo views from a record set:
// filtering by stage, category, completion, and assist class, then
// paginating and rendering numbered text suitable for voice or chat
// surfaces.
package projection

import (
	"fmt"
	"strings"

	"github.com/hpungsan/flowdeck/internal/errors"
	"github.com/hpungsan/flowdeck/internal/record"
)

// Modes a projection can select on. "all" keeps every assist class; the
// others match a single aiAssistClass value.
const (
	ModeAll          = "all"
	ModeUnclassified = "unclassified"
	ModeAIDone       = "ai_done"
	ModeAIHigh       = "ai_high"
	ModeAIMid        = "ai_mid"
	ModeSelf         = "self"
)

// DefaultMode is applied when a request names no mode.
const DefaultMode = ModeUnclassified

// AllowedModes lists every valid projection mode, in the order error
// responses report them.
var AllowedModes = []string{ModeAll, ModeUnclassified, ModeAIDone, ModeAIHigh, ModeAIMid, ModeSelf}

// Pagination bounds.
const (
	DefaultLimit = 1
	MaxLimit     = 100
)

// Item is one projected todo with its position in the full filtered list.
type Item struct {
	Record record.Record `json:"record"`
	Index  int           `json:"index"`
}

// Page is one window over the filtered list.
type Page struct {
	Items      []Item
	Total      int
	Cursor     int
	Limit      int
	HasMore    bool
	NextCursor *int
}

// ValidMode reports whether mode names a known projection mode.
func ValidMode(mode string) bool {
	for _, m := range AllowedModes {
		if m == mode {
			return true
		}
	}
	return false
}

// ExtractTodos filters records down to open inspiration-stage todos
// matching the given mode, sorted oldest first by timestamp so item
// numbering is stable as records are added.
func ExtractTodos(records []record.Record, mode string) ([]record.Record, error) {
	if mode == "" {
		mode = DefaultMode
	}
	if !ValidMode(mode) {
		return nil, errors.NewInvalidMode(AllowedModes)
	}

	var out []record.Record
	for _, r := range records {
		if r.Stage != record.DefaultStage {
			continue
		}
		if r.Category != "todo" {
			continue
		}
		if r.Completed {
			continue
		}
		if mode != ModeAll && r.AIAssistClass != mode {
			continue
		}
		out = append(out, r)
	}
	record.SortOldestFirst(out)
	return out, nil
}

// Paginate slices the filtered list at cursor, returning up to limit items.
// Cursor positions are absolute indexes into the filtered list; NextCursor
// is nil once the window reaches the end.
func Paginate(todos []record.Record, cursor, limit int) Page {
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if cursor < 0 {
		cursor = 0
	}

	total := len(todos)
	page := Page{Total: total, Cursor: cursor, Limit: limit}
	if cursor >= total {
		return page
	}

	end := cursor + limit
	if end > total {
		end = total
	}
	for i := cursor; i < end; i++ {
		page.Items = append(page.Items, Item{Record: todos[i], Index: i})
	}
	page.HasMore = end < total
	if page.HasMore {
		next := end
		page.NextCursor = &next
	}
	return page
}

// FormatItem renders one item as its numbered line. Numbering is 1-based
// over the full filtered list, not the page.
func FormatItem(it Item) string {
	text := record.NormalizeContent(it.Record.Content)
	if text == "" {
		text = record.EmptyPlaceholder
	}
	return fmt.Sprintf("%d. %s", it.Index+1, text)
}

// NumberedText renders a page as newline-joined numbered lines.
func NumberedText(p Page) string {
	lines := make([]string, len(p.Items))
	for i, it := range p.Items {
		lines[i] = FormatItem(it)
	}
	return strings.Join(lines, "\n")
}
