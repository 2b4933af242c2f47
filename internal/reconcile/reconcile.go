// Package reconcile keeps the local record cache consistent with the
// per-user remote collection. It also migrates the legacy layout, where
// records lived in an items array on the user document, into per-record
// documents under users/<uid>/projects.
package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/flowdeck/internal/cache"
	"github.com/hpungsan/flowdeck/internal/record"
	"github.com/hpungsan/flowdeck/internal/remote"
)

// DocStore is the slice of the remote client reconciliation needs.
type DocStore interface {
	GetDoc(ctx context.Context, token, path string) (*remote.Doc, error)
	ListDocs(ctx context.Context, token, collectionPath string) ([]remote.Doc, error)
	Commit(ctx context.Context, token string, writes []remote.Write) error
	DocName(path string) string
}

// Reconciler merges remote per-record documents with the local cache.
type Reconciler struct {
	docs DocStore
	db   *sql.DB
	now  func() time.Time
}

// New creates a reconciler over the given document client and cache.
func New(docs DocStore, db *sql.DB) *Reconciler {
	return &Reconciler{docs: docs, db: db, now: time.Now}
}

func userPath(uid string) string {
	return fmt.Sprintf("users/%s", uid)
}

func projectsPath(uid string) string {
	return fmt.Sprintf("users/%s/projects", uid)
}

// MigrateLegacy moves records out of the legacy items array on the user
// document into per-record documents. The upserts and the clearing of the
// array land in one atomic commit, so a failed migration leaves the legacy
// array intact for the next attempt. Returns the number of records moved.
func (r *Reconciler) MigrateLegacy(ctx context.Context, token, uid string) (int, error) {
	userDoc, err := r.docs.GetDoc(ctx, token, userPath(uid))
	if err != nil {
		return 0, err
	}
	if userDoc == nil {
		return 0, nil
	}

	items, _ := userDoc.Field("items").([]any)
	if len(items) == 0 {
		return 0, nil
	}

	nowMillis := r.now().UnixMilli()
	var writes []remote.Write
	migrated := 0
	for _, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rec := record.FromFields(fields)
		if rec.ID == "" {
			rec.ID = ulid.Make().String()
		}
		if rec.UpdatedAt == 0 {
			rec.UpdatedAt = nowMillis
		}
		writes = append(writes, remote.Write{Update: &remote.Doc{
			Name:   r.docs.DocName(projectsPath(uid) + "/" + rec.ID),
			Fields: remote.FieldsFromGo(rec.Fields()),
		}})
		migrated++
	}
	if migrated == 0 {
		return 0, nil
	}

	// Clearing items via update mask deletes the field without touching
	// the rest of the user document.
	writes = append(writes, remote.Write{
		Update:     &remote.Doc{Name: r.docs.DocName(userPath(uid))},
		UpdateMask: []string{"items"},
	})

	if err := r.docs.Commit(ctx, token, writes); err != nil {
		return 0, err
	}
	return migrated, nil
}

// Reconcile pulls the remote collection, merges it with the cached records
// newest-wins by last write time, replaces the cache with the merged set,
// and returns it sorted newest first. Legacy migration runs first so the
// pull always sees the per-record layout.
func (r *Reconciler) Reconcile(ctx context.Context, token, uid string) ([]record.Record, error) {
	if _, err := r.MigrateLegacy(ctx, token, uid); err != nil {
		return nil, err
	}

	docs, err := r.docs.ListDocs(ctx, token, projectsPath(uid))
	if err != nil {
		return nil, err
	}

	merged := map[string]record.Record{}
	lastWrite := map[string]int64{}

	cached, err := cache.List(r.db)
	if err != nil {
		return nil, err
	}
	for _, rec := range cached {
		merged[rec.ID] = rec
		lastWrite[rec.ID] = rec.LastWrite(time.Time{})
	}

	for _, doc := range docs {
		rec := record.FromFields(doc.FieldMap())
		if rec.ID == "" {
			rec.ID = doc.ID()
		}
		w := rec.LastWrite(doc.UpdateTime)
		if prev, ok := lastWrite[rec.ID]; !ok || w >= prev {
			merged[rec.ID] = rec
			lastWrite[rec.ID] = w
		}
	}

	out := make([]record.Record, 0, len(merged))
	for _, rec := range merged {
		out = append(out, rec)
	}
	record.SortNewestFirst(out)

	if err := cache.Replace(r.db, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Watch reconciles on the given interval until the context is cancelled,
// invoking fn with each successful result. Errors are passed to fn as well
// so the caller decides how to surface them; polling continues regardless.
func (r *Reconciler) Watch(ctx context.Context, token, uid string, interval time.Duration, fn func([]record.Record, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(r.Reconcile(ctx, token, uid))
		}
	}
}
