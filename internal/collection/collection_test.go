package collection

import (
	"sort"
	"testing"

	"github.com/hpungsan/flowdeck/internal/record"
)

func newCollection(t *testing.T) *Collection {
	t.Helper()
	c, err := New(DefaultName)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func ids(t *testing.T, c *Collection) []string {
	t.Helper()
	records, err := c.Records()
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestInsert_FrontByDefault(t *testing.T) {
	c := newCollection(t)

	for _, id := range []string{"a", "b", "c"} {
		if _, err := c.Insert(record.Record{ID: id, Content: id}, 0); err != nil {
			t.Fatalf("Insert(%s) failed: %v", id, err)
		}
	}

	got := ids(t, c)
	want := []string{"c", "b", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestInsert_GeneratesIDAndCreatedAt(t *testing.T) {
	c := newCollection(t)

	r, err := c.Insert(record.Record{Content: "hello"}, 0)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if r.ID == "" {
		t.Error("ID not generated")
	}
	if r.CreatedAt == 0 {
		t.Error("CreatedAt not set")
	}
}

func TestUpdate_FieldLevel(t *testing.T) {
	c := newCollection(t)
	if _, err := c.Insert(record.Record{ID: "a", Content: "x", Category: "note"}, 0); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := c.Update("a", map[string]any{"category": "todo"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	records, err := c.Records()
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if records[0].Category != "todo" {
		t.Errorf("Category = %q, want todo", records[0].Category)
	}
	if records[0].Content != "x" {
		t.Errorf("Content = %q, untouched field changed", records[0].Content)
	}
}

func TestUpdate_UnknownID(t *testing.T) {
	c := newCollection(t)
	if err := c.Update("nope", map[string]any{"content": "x"}); err == nil {
		t.Error("Update of unknown id succeeded, want error")
	}
}

func TestRemove_NoopWhenAbsent(t *testing.T) {
	c := newCollection(t)
	if err := c.Remove("nope"); err != nil {
		t.Errorf("Remove of unknown id errored: %v", err)
	}
}

func TestRemove(t *testing.T) {
	c := newCollection(t)
	c.Insert(record.Record{ID: "a"}, 0)
	c.Insert(record.Record{ID: "b"}, 0)

	if err := c.Remove("a"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	got := ids(t, c)
	if len(got) != 1 || got[0] != "b" {
		t.Errorf("ids = %v, want [b]", got)
	}
}

func TestApplyBlob_Idempotent(t *testing.T) {
	src := newCollection(t)
	src.Insert(record.Record{ID: "a", Content: "one"}, 0)
	blob := src.ToBlob()

	dst, err := Load(blob, DefaultName)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := dst.ApplyBlob(blob); err != nil {
		t.Fatalf("re-apply failed: %v", err)
	}
	if err := dst.ApplyBlob(blob); err != nil {
		t.Fatalf("re-apply failed: %v", err)
	}

	if got := ids(t, dst); len(got) != 1 || got[0] != "a" {
		t.Fatalf("ids = %v, want [a]", got)
	}
}

func TestApplyBlob_ConvergesEitherOrder(t *testing.T) {
	// Two replicas diverge from a common ancestor.
	base := newCollection(t)
	base.Insert(record.Record{ID: "base", Content: "shared"}, 0)
	seed := base.ToBlob()

	replicaA, err := Load(seed, DefaultName)
	if err != nil {
		t.Fatalf("Load replica A failed: %v", err)
	}
	replicaB, err := Load(seed, DefaultName)
	if err != nil {
		t.Fatalf("Load replica B failed: %v", err)
	}

	replicaA.Insert(record.Record{ID: "from-a"}, 0)
	replicaA.Update("base", map[string]any{"stage": "pending"})
	replicaB.Insert(record.Record{ID: "from-b"}, 0)
	replicaB.Update("base", map[string]any{"category": "todo"})

	blobA := replicaA.ToBlob()
	blobB := replicaB.ToBlob()

	ab, err := Load(blobA, DefaultName)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	ab.ApplyBlob(blobB)

	ba, err := Load(blobB, DefaultName)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	ba.ApplyBlob(blobA)

	gotAB := ids(t, ab)
	gotBA := ids(t, ba)
	if len(gotAB) != 3 || len(gotBA) != 3 {
		t.Fatalf("merged sizes = %d/%d, want 3", len(gotAB), len(gotBA))
	}
	for i := range gotAB {
		if gotAB[i] != gotBA[i] {
			t.Fatalf("order diverged: %v vs %v", gotAB, gotBA)
		}
	}

	// Concurrent edits to different fields of the same record both survive.
	for _, c := range []*Collection{ab, ba} {
		records, _ := c.Records()
		for _, r := range records {
			if r.ID != "base" {
				continue
			}
			if r.Stage != "pending" {
				t.Errorf("merged Stage = %q, want pending", r.Stage)
			}
			if r.Category != "todo" {
				t.Errorf("merged Category = %q, want todo", r.Category)
			}
		}
	}
}

func TestApplyBlob_NoDuplicateIDs(t *testing.T) {
	base := newCollection(t)
	base.Insert(record.Record{ID: "a"}, 0)
	seed := base.ToBlob()

	dst, _ := Load(seed, DefaultName)
	dst.ApplyBlob(seed)

	got := ids(t, dst)
	sort.Strings(got)
	if len(got) != 1 {
		t.Errorf("ids = %v, merge duplicated a record", got)
	}
}

func TestApplyBlob_EmptyBlob(t *testing.T) {
	c := newCollection(t)
	if err := c.ApplyBlob(nil); err != nil {
		t.Errorf("ApplyBlob(nil) errored: %v", err)
	}
}

func TestLoad_EmptyBlobYieldsEmptyCollection(t *testing.T) {
	c, err := Load(nil, DefaultName)
	if err != nil {
		t.Fatalf("Load(nil) failed: %v", err)
	}
	if got := ids(t, c); len(got) != 0 {
		t.Errorf("ids = %v, want empty", got)
	}
}

func TestUndoRedo_InsertCycle(t *testing.T) {
	c := newCollection(t)
	c.Insert(record.Record{ID: "a"}, 0)

	if !c.CanUndo() {
		t.Fatal("CanUndo = false after insert")
	}
	if c.CanRedo() {
		t.Fatal("CanRedo = true before any undo")
	}

	if err := c.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if got := ids(t, c); len(got) != 0 {
		t.Fatalf("ids after undo = %v, want empty", got)
	}
	if !c.CanRedo() {
		t.Fatal("CanRedo = false after undo")
	}

	if err := c.Redo(); err != nil {
		t.Fatalf("Redo failed: %v", err)
	}
	if got := ids(t, c); len(got) != 1 || got[0] != "a" {
		t.Fatalf("ids after redo = %v, want [a]", got)
	}
}

func TestUndo_RestoresRemovedRecord(t *testing.T) {
	c := newCollection(t)
	c.Insert(record.Record{ID: "a", Content: "keep me", Category: "todo"}, 0)
	c.Remove("a")

	if err := c.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}

	records, _ := c.Records()
	if len(records) != 1 || records[0].Content != "keep me" || records[0].Category != "todo" {
		t.Errorf("restored record = %+v", records)
	}
}

func TestUndo_RevertsFieldUpdate(t *testing.T) {
	c := newCollection(t)
	c.Insert(record.Record{ID: "a", Stage: "inspiration"}, 0)
	c.Update("a", map[string]any{"stage": "pending"})

	if err := c.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}

	records, _ := c.Records()
	if records[0].Stage != "inspiration" {
		t.Errorf("Stage after undo = %q, want inspiration", records[0].Stage)
	}
}

func TestUndo_ExcludesRemoteMerges(t *testing.T) {
	src := newCollection(t)
	seed := src.ToBlob()
	src.Insert(record.Record{ID: "remote"}, 0)

	dst, err := Load(seed, DefaultName)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	dst.ApplyBlob(src.ToBlob())

	if dst.CanUndo() {
		t.Error("CanUndo = true after remote merge, remote origins must not be tracked")
	}
	if err := dst.Undo(); err != nil {
		t.Errorf("Undo on empty history errored: %v", err)
	}
	if got := ids(t, dst); len(got) != 1 {
		t.Errorf("ids = %v, undo of empty history mutated state", got)
	}
}

func TestLocalMutation_ClearsRedo(t *testing.T) {
	c := newCollection(t)
	c.Insert(record.Record{ID: "a"}, 0)
	c.Undo()

	if !c.CanRedo() {
		t.Fatal("CanRedo = false after undo")
	}
	c.Insert(record.Record{ID: "b"}, 0)
	if c.CanRedo() {
		t.Error("CanRedo = true after a new local mutation")
	}
}

func TestObserve_FiresOnLocalAndRemoteChanges(t *testing.T) {
	c := newCollection(t)
	var fired int
	c.Observe(func() { fired++ })

	c.Insert(record.Record{ID: "a"}, 0)
	if fired != 1 {
		t.Fatalf("fired = %d after insert, want 1", fired)
	}

	c.Update("a", map[string]any{"content": "x"})
	if fired != 2 {
		t.Fatalf("fired = %d after update, want 2", fired)
	}

	other := newCollection(t)
	other.Insert(record.Record{ID: "b"}, 0)
	c.ApplyBlob(other.ToBlob())
	if fired != 3 {
		t.Fatalf("fired = %d after merge, want 3", fired)
	}
}

func TestRoundTrip_BlobPreservesRecords(t *testing.T) {
	c := newCollection(t)
	c.Insert(record.Record{ID: "a", Content: "Buy **milk**", Category: "todo", Timestamp: 42}, 0)

	reloaded, err := Load(c.ToBlob(), DefaultName)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	records, err := reloaded.Records()
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len = %d, want 1", len(records))
	}
	r := records[0]
	if r.Content != "Buy **milk**" || r.Category != "todo" || r.Timestamp != 42 {
		t.Errorf("record = %+v", r)
	}
}
