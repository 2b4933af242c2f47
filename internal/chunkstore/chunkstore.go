// Package chunkstore persists sync state blobs in the remote document
// store, splitting oversized payloads across sibling chunk documents. Small
// states stay inline on the head document; anything past the inline
// threshold is sharded and reassembled transparently.
package chunkstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/flowdeck/internal/codec"
	apperrors "github.com/hpungsan/flowdeck/internal/errors"
	"github.com/hpungsan/flowdeck/internal/remote"
)

// DocStore is the slice of the remote client the chunk store needs.
type DocStore interface {
	GetDoc(ctx context.Context, token, path string) (*remote.Doc, error)
	Commit(ctx context.Context, token string, writes []remote.Write) error
	DocName(path string) string
}

// Store reads and writes chunked sync state under users/<uid>/rooms.
type Store struct {
	docs        DocStore
	inlineMax   int
	chunkLength int
	fetchLimit  int
}

// Option tweaks store construction.
type Option func(*Store)

// WithInlineMaxLength sets the encoded-text length above which state is
// chunked instead of stored inline.
func WithInlineMaxLength(n int) Option {
	return func(s *Store) { s.inlineMax = n }
}

// WithChunkLength sets the per-chunk encoded-text length.
func WithChunkLength(n int) Option {
	return func(s *Store) { s.chunkLength = n }
}

// New creates a chunk store over the given document client.
func New(docs DocStore, opts ...Option) *Store {
	s := &Store{
		docs:        docs,
		inlineMax:   codec.DefaultInlineMaxLength,
		chunkLength: codec.DefaultChunkLength,
		fetchLimit:  8,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func headPath(uid, docID string) string {
	return fmt.Sprintf("users/%s/rooms/%s", uid, docID)
}

func chunkPath(uid, docID string, index int) string {
	return fmt.Sprintf("users/%s/rooms/%s", uid, codec.ChunkDocID(docID, index))
}

// LoadState fetches and reassembles the sync state blob for one document.
// A missing head document yields a not-found error; a missing or malformed
// chunk yields a chunk integrity error naming the chunk's position.
func (s *Store) LoadState(ctx context.Context, token, uid, docID string) ([]byte, error) {
	head, err := s.docs.GetDoc(ctx, token, headPath(uid, docID))
	if err != nil {
		return nil, err
	}
	if head == nil {
		return nil, apperrors.NewNotFound(headPath(uid, docID))
	}

	encoding, _ := head.Field("stateEncoding").(string)
	if encoding != codec.EncodingChunked {
		text, _ := head.Field("state").(string)
		return codec.Decode(text)
	}

	count := intField(head.Field("stateChunkCount"))
	if count <= 0 {
		// A chunked head with no chunks recorded reads as empty state.
		return codec.Decode("")
	}

	parts := make([]string, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchLimit)
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			doc, err := s.docs.GetDoc(gctx, token, chunkPath(uid, docID, i))
			if err != nil {
				return err
			}
			if doc == nil {
				return apperrors.NewChunkMissing(i, count)
			}
			value, ok := doc.Field("value").(string)
			if !ok {
				return apperrors.NewChunkInvalid(i, count)
			}
			parts[i] = value
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return codec.Decode(strings.Join(parts, ""))
}

// SaveState persists a sync state blob, choosing inline or chunked layout
// by encoded size. The head update, all chunk writes, and deletions of
// chunks left over from a previous larger layout land in one atomic commit.
func (s *Store) SaveState(ctx context.Context, token, uid, docID string, blob []byte) error {
	prev, err := s.docs.GetDoc(ctx, token, headPath(uid, docID))
	if err != nil {
		return err
	}
	prevChunks := 0
	if prev != nil {
		prevChunks = intField(prev.Field("stateChunkCount"))
	}

	text := codec.Encode(blob)
	now := time.Now().UTC()

	var writes []remote.Write
	if len(text) <= s.inlineMax {
		writes = append(writes, remote.Write{Update: &remote.Doc{
			Name: s.docs.DocName(headPath(uid, docID)),
			Fields: remote.FieldsFromGo(map[string]any{
				"state":           text,
				"stateEncoding":   codec.EncodingInline,
				"stateChunkCount": int64(0),
				"updatedAt":       now,
			}),
		}})
		for i := 0; i < prevChunks; i++ {
			writes = append(writes, remote.Write{Delete: s.docs.DocName(chunkPath(uid, docID, i))})
		}
		return s.docs.Commit(ctx, token, writes)
	}

	chunks := codec.SplitChunks(text, s.chunkLength)
	writes = append(writes, remote.Write{Update: &remote.Doc{
		Name: s.docs.DocName(headPath(uid, docID)),
		Fields: remote.FieldsFromGo(map[string]any{
			"state":           "",
			"stateEncoding":   codec.EncodingChunked,
			"stateChunkCount": int64(len(chunks)),
			"updatedAt":       now,
		}),
	}})
	for i, chunk := range chunks {
		writes = append(writes, remote.Write{Update: &remote.Doc{
			Name:   s.docs.DocName(chunkPath(uid, docID, i)),
			Fields: remote.FieldsFromGo(map[string]any{"value": chunk}),
		}})
	}
	for i := len(chunks); i < prevChunks; i++ {
		writes = append(writes, remote.Write{Delete: s.docs.DocName(chunkPath(uid, docID, i))})
	}
	return s.docs.Commit(ctx, token, writes)
}

func intField(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}
