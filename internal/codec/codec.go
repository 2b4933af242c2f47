// Package codec converts replicated-update blobs between their binary form
// and the text form persisted in the remote document store, and splits the
// text form into size-bounded chunks when it exceeds a single document's
// field size ceiling.
package codec

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// encodeSegmentSize bounds how much input a single base64 call sees.
// Segment boundaries must stay on a 3-byte multiple so concatenated
// segment outputs equal the encoding of the whole input.
const encodeSegmentSize = 30 * 1024

const (
	// DefaultChunkLength is the chunk size for stored state fragments. It
	// must stay safely under the remote store's single-field size ceiling.
	DefaultChunkLength = 700_000

	// DefaultInlineMaxLength is the largest encoded state kept inline on
	// the head record instead of being chunked.
	DefaultInlineMaxLength = 700_000
)

// State encoding tags carried on the head record.
const (
	EncodingInline  = "inline-base64"
	EncodingChunked = "chunked-base64"
)

// Encode converts an update blob to its text form. Empty input yields "".
// The input is processed in bounded segments so that arbitrarily large blobs
// never hit host string or argument limits in one call.
func Encode(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(base64.StdEncoding.EncodedLen(len(b)))
	for i := 0; i < len(b); i += encodeSegmentSize {
		end := min(i+encodeSegmentSize, len(b))
		sb.WriteString(base64.StdEncoding.EncodeToString(b[i:end]))
	}
	return sb.String()
}

// Decode is the inverse of Encode. Empty input yields a zero-length slice;
// text containing characters outside the base64 alphabet is an error.
func Decode(text string) ([]byte, error) {
	if text == "" {
		return []byte{}, nil
	}
	b, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return b, nil
}

// SplitChunks slices text into fragments of at most chunkLength characters,
// preserving order. A non-positive chunkLength degrades to the whole text as
// one fragment. Empty text returns nil.
func SplitChunks(text string, chunkLength int) []string {
	if text == "" {
		return nil
	}
	if chunkLength <= 0 {
		return []string{text}
	}

	chunks := make([]string, 0, (len(text)+chunkLength-1)/chunkLength)
	for i := 0; i < len(text); i += chunkLength {
		end := min(i+chunkLength, len(text))
		chunks = append(chunks, text[i:end])
	}
	return chunks
}

// ChunkDocID returns the deterministic document id for a state chunk.
func ChunkDocID(docID string, index int) string {
	return fmt.Sprintf("chunk_%s_%04d", docID, index)
}
