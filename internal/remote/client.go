// Package remote is a thin client for the per-user remote document store
// (Firestore REST). It covers exactly the surface the core needs: single
// document reads with bounded retry, collection listing for reconciliation
// pulls, and atomic batched commits for the legacy migration.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/hpungsan/flowdeck/internal/errors"
)

// DefaultBaseURL is the production document store endpoint.
const DefaultBaseURL = "https://firestore.googleapis.com/v1"

// Config holds client construction parameters. The zero value of optional
// fields falls back to the retry policy the read path specifies: 2 retries,
// exponential backoff from 250 ms, retried only on network failure, 5xx,
// or 429.
type Config struct {
	ProjectID string
	BaseURL   string
	Retries   int
	BaseDelay time.Duration
	HTTP      *http.Client
}

// Client talks to one project's document store. It holds no per-user state;
// the caller's bearer token travels with each call.
type Client struct {
	projectID string
	baseURL   string
	retries   int
	baseDelay time.Duration
	http      *http.Client
}

// Doc is one stored document.
type Doc struct {
	Name       string           `json:"name,omitempty"`
	Fields     map[string]Value `json:"fields,omitempty"`
	CreateTime time.Time        `json:"createTime,omitempty"`
	UpdateTime time.Time        `json:"updateTime,omitempty"`
}

// Field returns a document field as a plain Go value, nil when absent.
func (d *Doc) Field(name string) any {
	if d == nil {
		return nil
	}
	v, ok := d.Fields[name]
	if !ok {
		return nil
	}
	return v.Go()
}

// FieldMap returns all document fields as plain Go values.
func (d *Doc) FieldMap() map[string]any {
	if d == nil {
		return nil
	}
	return goFields(d.Fields)
}

// ID returns the last path segment of the document's resource name.
func (d *Doc) ID() string {
	if d == nil {
		return ""
	}
	idx := strings.LastIndex(d.Name, "/")
	return d.Name[idx+1:]
}

// NewClient creates a document store client.
func NewClient(cfg Config) *Client {
	c := &Client{
		projectID: cfg.ProjectID,
		baseURL:   cfg.BaseURL,
		retries:   cfg.Retries,
		baseDelay: cfg.BaseDelay,
		http:      cfg.HTTP,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.retries == 0 {
		c.retries = 2
	}
	if c.baseDelay == 0 {
		c.baseDelay = 250 * time.Millisecond
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	return c
}

// DocName builds the full resource name for a document path such as
// "users/u1/rooms/r1".
func (c *Client) DocName(path string) string {
	return fmt.Sprintf("projects/%s/databases/(default)/documents/%s", c.projectID, path)
}

func (c *Client) docURL(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.baseURL + "/" + c.DocName(strings.Join(segments, "/"))
}

// GetDoc fetches a single document by path. An absent document returns
// (nil, nil); other non-2xx responses become upstream errors carrying the
// store's status code.
func (c *Client) GetDoc(ctx context.Context, token, path string) (*Doc, error) {
	resp, err := c.doWithRetry(ctx, http.MethodGet, c.docURL(path), token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError(resp)
	}

	var doc Doc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, apperrors.NewUpstream(502, fmt.Sprintf("decode document %s: %v", path, err))
	}
	return &doc, nil
}

// ListDocs fetches every document in a collection path, following page
// tokens until exhausted.
func (c *Client) ListDocs(ctx context.Context, token, collectionPath string) ([]Doc, error) {
	var out []Doc
	pageToken := ""
	for {
		u := c.docURL(collectionPath)
		if pageToken != "" {
			u += "?pageToken=" + url.QueryEscape(pageToken)
		}
		resp, err := c.doWithRetry(ctx, http.MethodGet, u, token, nil)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			return nil, upstreamError(resp)
		}

		var page struct {
			Documents     []Doc  `json:"documents"`
			NextPageToken string `json:"nextPageToken"`
		}
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, apperrors.NewUpstream(502, fmt.Sprintf("decode collection %s: %v", collectionPath, err))
		}

		out = append(out, page.Documents...)
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

// Write is one entry of an atomic commit: either an upsert of the given
// fields (merged per UpdateMask when set) or a deletion of a document, or a
// field clear expressed as an update with a mask over null fields.
type Write struct {
	Update     *Doc     `json:"update,omitempty"`
	UpdateMask []string `json:"-"`
	Delete     string   `json:"delete,omitempty"`
}

// MarshalJSON shapes the update mask the way the wire format expects.
func (w Write) MarshalJSON() ([]byte, error) {
	type mask struct {
		FieldPaths []string `json:"fieldPaths"`
	}
	aux := struct {
		Update     *Doc   `json:"update,omitempty"`
		UpdateMask *mask  `json:"updateMask,omitempty"`
		Delete     string `json:"delete,omitempty"`
	}{Update: w.Update, Delete: w.Delete}
	if len(w.UpdateMask) > 0 {
		aux.UpdateMask = &mask{FieldPaths: w.UpdateMask}
	}
	return json.Marshal(aux)
}

// Commit applies all writes atomically: either every write lands or none
// does.
func (c *Client) Commit(ctx context.Context, token string, writes []Write) error {
	body, err := json.Marshal(map[string]any{"writes": writes})
	if err != nil {
		return apperrors.NewInternal(err)
	}

	u := fmt.Sprintf("%s/projects/%s/databases/(default)/documents:commit", c.baseURL, c.projectID)
	resp, err := c.doWithRetry(ctx, http.MethodPost, u, token, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return upstreamError(resp)
	}
	return nil
}

// doWithRetry issues the request, retrying only on network failure or a
// response status >=500 or 429. A successful-but-error status below 500
// (other than 429) is returned as-is without retry. The final attempt's
// response is returned even when its status would otherwise have been
// retried.
func (c *Client) doWithRetry(ctx context.Context, method, u, token string, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * (1 << (attempt - 1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, apperrors.NewUpstream(500, ctx.Err().Error())
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return nil, apperrors.NewInternal(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		if attempt >= c.retries {
			return resp, nil
		}
		resp.Body.Close()
	}
	return nil, apperrors.NewUpstream(500, fmt.Sprintf("request failed: %v", lastErr))
}

// upstreamError drains an error response into a FlowError carrying the
// upstream status and, when present, the store's error message.
func upstreamError(resp *http.Response) error {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	msg := payload.Error.Message
	if msg == "" {
		msg = fmt.Sprintf("document store request failed (%d)", resp.StatusCode)
	}
	return apperrors.NewUpstream(resp.StatusCode, msg)
}
