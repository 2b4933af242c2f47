// Package ops implements Flowdeck's operations as composable functions
// shared by the HTTP, MCP, and CLI surfaces. Each operation takes an Input
// struct and returns an Output struct so the transport layers stay thin.
package ops

import (
	"context"
	"regexp"

	"github.com/hpungsan/flowdeck/internal/errors"
)

// DefaultDocID is the sync document consulted when a request names none.
const DefaultDocID = "flowdeck_v1"

// docIDPattern is the conservative allowlist for document ids.
var docIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,120}$`)

// StateLoader resolves a sync state blob for one user document.
type StateLoader interface {
	LoadState(ctx context.Context, token, uid, docID string) ([]byte, error)
}

// Deps bundles the dependencies operations draw on.
type Deps struct {
	Chunks       StateLoader
	DefaultDocID string
}

func (d Deps) docID(requested string) (string, error) {
	if requested == "" {
		requested = d.DefaultDocID
	}
	if requested == "" {
		requested = DefaultDocID
	}
	if !docIDPattern.MatchString(requested) {
		return "", errors.NewInvalidRequest("invalid docId")
	}
	return requested, nil
}
