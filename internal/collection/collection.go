// Package collection exposes one named, ordered collection of records inside
// a replicated automerge document. Concurrent inserts, field updates, and
// deletes from independent replicas merge deterministically without
// coordination; the package adds change observation and an undo/redo history
// scoped to locally-originated mutations on top of the library's merge.
package collection

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/automerge/automerge-go"
	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/flowdeck/internal/record"
)

// DefaultName is the list the application keeps all project records under.
const DefaultName = "all_projects"

// Collection binds a named list of record maps inside a replicated document.
type Collection struct {
	doc  *automerge.Doc
	name string

	mu        sync.Mutex
	undoStack []step
	redoStack []step
	observers []func()
}

// New creates a fresh document containing an empty collection. The list
// object is created eagerly so that replicas forked from this document's
// blob share it and their concurrent inserts interleave instead of
// conflicting.
func New(name string) (*Collection, error) {
	doc := automerge.New()
	if err := doc.Path(name).Set(automerge.NewList()); err != nil {
		return nil, fmt.Errorf("seed collection %q: %w", name, err)
	}
	return &Collection{doc: doc, name: name}, nil
}

// Load reconstructs a collection from a full update blob. An empty blob
// yields an empty collection.
func Load(blob []byte, name string) (*Collection, error) {
	if len(blob) == 0 {
		return New(name)
	}
	doc, err := automerge.Load(blob)
	if err != nil {
		return nil, fmt.Errorf("load update blob: %w", err)
	}
	return &Collection{doc: doc, name: name}, nil
}

// Observe registers fn to run after every change to the collection,
// including remote merges.
func (c *Collection) Observe(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Insert creates a new record at index (front when 0, the newest-first
// convention). A missing ID gets a ULID; a missing CreatedAt gets now.
func (c *Collection) Insert(r record.Record, index int) (record.Record, error) {
	if r.ID == "" {
		r.ID = ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fields := r.Fields()
	if err := c.insertAt(fields, index); err != nil {
		return record.Record{}, err
	}
	c.pushLocked(step{kind: stepInsert, id: r.ID, index: index, fields: fields})
	c.notifyLocked()
	return r, nil
}

// Update applies field-level mutations to the record with the given id so
// concurrent edits to different fields converge. When the stored entry is
// not a structured map (legacy shape) it falls back to delete+reinsert with
// merged fields.
func (c *Collection) Update(id string, updates map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, v, err := c.findLocked(id)
	if err != nil {
		return err
	}
	if idx < 0 {
		return fmt.Errorf("record %s not found", id)
	}

	if v.Kind() == automerge.KindMap {
		m := v.Map()
		before := make(map[string]any, len(updates))
		for key, value := range updates {
			prev, err := automerge.As[any](m.Get(key))
			if err != nil {
				prev = nil
			}
			before[key] = prev
			if err := m.Set(key, value); err != nil {
				return fmt.Errorf("set field %q on %s: %w", key, id, err)
			}
		}
		c.pushLocked(step{kind: stepUpdate, id: id, before: before, after: updates})
		c.notifyLocked()
		return nil
	}

	// Legacy shape: replace the whole entry with a merged map.
	old, err := automerge.As[map[string]any](v)
	if err != nil || old == nil {
		old = map[string]any{}
	}
	merged := make(map[string]any, len(old)+len(updates))
	for k, val := range old {
		merged[k] = val
	}
	for k, val := range updates {
		merged[k] = val
	}
	merged["id"] = id

	lv, err := c.doc.Path(c.name).Get()
	if err != nil {
		return fmt.Errorf("replace legacy record %s: %w", id, err)
	}
	l := lv.List()
	if err := l.Delete(idx); err != nil {
		return fmt.Errorf("replace legacy record %s: %w", id, err)
	}
	if err := l.Insert(idx, merged); err != nil {
		return fmt.Errorf("replace legacy record %s: %w", id, err)
	}
	c.pushLocked(step{kind: stepUpdate, id: id, before: old, after: merged})
	c.notifyLocked()
	return nil
}

// Remove deletes the record with the given id. Unknown ids are a no-op.
func (c *Collection) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, v, err := c.findLocked(id)
	if err != nil {
		return err
	}
	if idx < 0 {
		return nil
	}

	snapshot, err := automerge.As[map[string]any](v)
	if err != nil {
		snapshot = map[string]any{"id": id}
	}
	lv, err := c.doc.Path(c.name).Get()
	if err != nil {
		return fmt.Errorf("remove record %s: %w", id, err)
	}
	if err := lv.List().Delete(idx); err != nil {
		return fmt.Errorf("remove record %s: %w", id, err)
	}
	c.pushLocked(step{kind: stepRemove, id: id, index: idx, fields: snapshot})
	c.notifyLocked()
	return nil
}

// Records materializes the collection as a plain, normalized slice in list
// order. Entries that are not structured maps are skipped.
func (c *Collection) Records() ([]record.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recordsLocked()
}

// Len returns the number of entries in the underlying list.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.doc.Path(c.name).Get()
	if err != nil || v.Kind() != automerge.KindList {
		return 0
	}
	return v.List().Len()
}

// ToBlob serializes the whole parent document as a full update blob.
func (c *Collection) ToBlob() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Save()
}

// ApplyBlob merges a full update blob into the live document. Applying the
// same blob twice is idempotent, and blobs produced from a common ancestor
// merge to the same state regardless of application order. Remote merges
// never enter the undo history.
func (c *Collection) ApplyBlob(blob []byte) error {
	if len(blob) == 0 {
		return nil
	}
	other, err := automerge.Load(blob)
	if err != nil {
		return fmt.Errorf("load update blob: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.doc.Merge(other); err != nil {
		return fmt.Errorf("merge update blob: %w", err)
	}
	c.notifyLocked()
	return nil
}

// findLocked returns the index and value of the record with the given id,
// or -1 when absent.
func (c *Collection) findLocked(id string) (int, *automerge.Value, error) {
	v, err := c.doc.Path(c.name).Get()
	if err != nil {
		return -1, nil, fmt.Errorf("read collection %q: %w", c.name, err)
	}
	if v.Kind() != automerge.KindList {
		return -1, nil, nil
	}

	items, err := v.List().Values()
	if err != nil {
		return -1, nil, fmt.Errorf("read collection %q: %w", c.name, err)
	}
	for i, item := range items {
		if entryID(item) == id {
			return i, item, nil
		}
	}
	return -1, nil, nil
}

func (c *Collection) recordsLocked() ([]record.Record, error) {
	v, err := c.doc.Path(c.name).Get()
	if err != nil {
		return nil, fmt.Errorf("read collection %q: %w", c.name, err)
	}
	if v.Kind() != automerge.KindList {
		return []record.Record{}, nil
	}

	items, err := v.List().Values()
	if err != nil {
		return nil, fmt.Errorf("read collection %q: %w", c.name, err)
	}

	records := make([]record.Record, 0, len(items))
	for _, item := range items {
		fields, err := automerge.As[map[string]any](item)
		if err != nil || fields == nil {
			continue
		}
		records = append(records, record.FromFields(fields))
	}
	return records, nil
}

func (c *Collection) insertAt(fields map[string]any, index int) error {
	l := c.doc.Path(c.name).List()
	if n := l.Len(); index > n {
		index = n
	}
	if index < 0 {
		index = 0
	}
	if err := l.Insert(index, fields); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (c *Collection) notifyLocked() {
	for _, fn := range c.observers {
		fn()
	}
}

// entryID extracts the id field from a list entry of any shape.
func entryID(v *automerge.Value) string {
	if v.Kind() == automerge.KindMap {
		id, err := automerge.As[string](v.Map().Get("id"))
		if err != nil {
			return ""
		}
		return id
	}
	fields, err := automerge.As[map[string]any](v)
	if err != nil {
		return ""
	}
	id, _ := fields["id"].(string)
	return id
}
