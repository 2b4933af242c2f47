package collection

import (
	"fmt"

	"github.com/automerge/automerge-go"
)

// stepKind identifies which mutation a history step reverses.
type stepKind int

const (
	stepInsert stepKind = iota
	stepRemove
	stepUpdate
)

// step captures enough of a locally-originated mutation to reverse and
// replay it. Remote merges never produce steps, so undo only ever touches
// this replica's own edits.
type step struct {
	kind   stepKind
	id     string
	index  int
	fields map[string]any // inserted/removed record snapshot
	before map[string]any // update: prior values per touched field
	after  map[string]any // update: applied values per touched field
}

// pushLocked records a new local mutation. Any redo history is invalidated.
func (c *Collection) pushLocked(s step) {
	c.undoStack = append(c.undoStack, s)
	c.redoStack = c.redoStack[:0]
}

// CanUndo reports whether a locally-originated mutation can be reversed.
func (c *Collection) CanUndo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.undoStack) > 0
}

// CanRedo reports whether a reversed mutation can be replayed.
func (c *Collection) CanRedo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.redoStack) > 0
}

// Undo reverses the most recent local mutation. A no-op when the history is
// empty.
func (c *Collection) Undo() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.undoStack) == 0 {
		return nil
	}
	s := c.undoStack[len(c.undoStack)-1]
	c.undoStack = c.undoStack[:len(c.undoStack)-1]

	if err := c.applyInverseLocked(s); err != nil {
		return err
	}
	c.redoStack = append(c.redoStack, s)
	c.notifyLocked()
	return nil
}

// Redo replays the most recently undone mutation. A no-op when nothing has
// been undone.
func (c *Collection) Redo() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.redoStack) == 0 {
		return nil
	}
	s := c.redoStack[len(c.redoStack)-1]
	c.redoStack = c.redoStack[:len(c.redoStack)-1]

	if err := c.applyForwardLocked(s); err != nil {
		return err
	}
	c.undoStack = append(c.undoStack, s)
	c.notifyLocked()
	return nil
}

func (c *Collection) applyInverseLocked(s step) error {
	switch s.kind {
	case stepInsert:
		return c.deleteByIDLocked(s.id)
	case stepRemove:
		return c.insertAt(s.fields, s.index)
	case stepUpdate:
		return c.setFieldsLocked(s.id, s.before)
	}
	return fmt.Errorf("unknown history step %d", s.kind)
}

func (c *Collection) applyForwardLocked(s step) error {
	switch s.kind {
	case stepInsert:
		return c.insertAt(s.fields, s.index)
	case stepRemove:
		return c.deleteByIDLocked(s.id)
	case stepUpdate:
		return c.setFieldsLocked(s.id, s.after)
	}
	return fmt.Errorf("unknown history step %d", s.kind)
}

func (c *Collection) deleteByIDLocked(id string) error {
	idx, _, err := c.findLocked(id)
	if err != nil {
		return err
	}
	if idx < 0 {
		return nil
	}
	lv, err := c.doc.Path(c.name).Get()
	if err != nil {
		return fmt.Errorf("history delete %s: %w", id, err)
	}
	if err := lv.List().Delete(idx); err != nil {
		return fmt.Errorf("history delete %s: %w", id, err)
	}
	return nil
}

// setFieldsLocked writes values onto the record's map. A field that did not
// exist before an update is reset to null rather than removed; every read
// boundary normalizes null back to the field's default.
func (c *Collection) setFieldsLocked(id string, values map[string]any) error {
	idx, v, err := c.findLocked(id)
	if err != nil {
		return err
	}
	if idx < 0 {
		return nil
	}

	if v.Kind() != automerge.KindMap {
		// Entry was replaced wholesale (legacy shape); nothing granular to
		// restore beyond the stored snapshot.
		lv, err := c.doc.Path(c.name).Get()
		if err != nil {
			return err
		}
		l := lv.List()
		if err := l.Delete(idx); err != nil {
			return err
		}
		return l.Insert(idx, values)
	}

	m := v.Map()
	for key, value := range values {
		if err := m.Set(key, value); err != nil {
			return fmt.Errorf("history set %q on %s: %w", key, id, err)
		}
	}
	return nil
}
