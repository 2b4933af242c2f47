package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/flowdeck/internal/collection"
	apperrors "github.com/hpungsan/flowdeck/internal/errors"
	"github.com/hpungsan/flowdeck/internal/ops"
	"github.com/hpungsan/flowdeck/internal/record"
)

type fakeChunks struct {
	blobs map[string][]byte
	err   error
}

func (f *fakeChunks) LoadState(_ context.Context, _, uid, docID string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	blob, ok := f.blobs[uid+"/"+docID]
	if !ok {
		return nil, apperrors.NewNotFound("users/" + uid + "/rooms/" + docID)
	}
	return blob, nil
}

func testToken(t *testing.T, uid string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": uid}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func stateBlob(t *testing.T, records ...record.Record) []byte {
	t.Helper()
	coll, err := collection.New(collection.DefaultName)
	require.NoError(t, err)
	for _, r := range records {
		_, err := coll.Insert(r, coll.Len())
		require.NoError(t, err)
	}
	return coll.ToBlob()
}

func newTestServer(t *testing.T, chunks *fakeChunks) http.Handler {
	t.Helper()
	return NewServer(ops.Deps{Chunks: chunks}, ":0").Handler
}

func doRequest(t *testing.T, handler http.Handler, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleTodo_Success(t *testing.T) {
	blob := stateBlob(t, record.Record{
		ID: "a", Content: "Buy **milk**",
		Stage: "inspiration", Category: "todo",
		AIAssistClass: "unclassified", Timestamp: 100,
	})
	handler := newTestServer(t, &fakeChunks{blobs: map[string][]byte{"u1/flowdeck_v1": blob}})

	rec := doRequest(t, handler, http.MethodGet, "/api/todo?limit=5", testToken(t, "u1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "u1", body["userId"])
	assert.Equal(t, "flowdeck_v1", body["docId"])
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, "1. Buy milk", body["numberedText"])

	items := body["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "Buy milk", item["normalizedContent"])
	assert.Equal(t, "Buy **milk**", item["content"])
}

func TestHandleTodo_MissingDocIsEmptySuccess(t *testing.T) {
	handler := newTestServer(t, &fakeChunks{blobs: map[string][]byte{}})

	rec := doRequest(t, handler, http.MethodGet, "/api/todo", testToken(t, "u1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(0), body["total"])
	assert.Equal(t, []any{}, body["items"])
	assert.Nil(t, body["item"])
	assert.Nil(t, body["nextCursor"])
}

func TestHandleTodo_MissingToken(t *testing.T) {
	handler := newTestServer(t, &fakeChunks{})

	rec := doRequest(t, handler, http.MethodGet, "/api/todo", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
}

func TestHandleTodo_InvalidMode(t *testing.T) {
	handler := newTestServer(t, &fakeChunks{})

	rec := doRequest(t, handler, http.MethodGet, "/api/todo?mode=bogus", testToken(t, "u1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
	assert.NotEmpty(t, body["allowedModes"])
}

func TestHandleTodo_InvalidDocID(t *testing.T) {
	handler := newTestServer(t, &fakeChunks{})

	rec := doRequest(t, handler, http.MethodGet, "/api/todo?docId=../evil", testToken(t, "u1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTodo_UpstreamFailurePropagatesStatus(t *testing.T) {
	handler := newTestServer(t, &fakeChunks{err: apperrors.NewUpstream(503, "store unavailable")})

	rec := doRequest(t, handler, http.MethodGet, "/api/todo", testToken(t, "u1"))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "store unavailable")
}

func TestHandleTodo_ChunkErrorIsFetchFailure(t *testing.T) {
	handler := newTestServer(t, &fakeChunks{err: apperrors.NewChunkMissing(1, 3)})

	rec := doRequest(t, handler, http.MethodGet, "/api/todo", testToken(t, "u1"))
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "2/3")
}

func TestPreflight(t *testing.T) {
	handler := newTestServer(t, &fakeChunks{})

	rec := doRequest(t, handler, http.MethodOptions, "/api/todo", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Authorization, Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestHealth(t *testing.T) {
	handler := newTestServer(t, &fakeChunks{})
	rec := doRequest(t, handler, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
}
