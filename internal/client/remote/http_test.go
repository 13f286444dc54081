package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/common"
)

// apiServer is a minimal in-memory rendition of the server API, enough to
// exercise the client's auth, retry and document paths.
type apiServer struct {
	mu           sync.Mutex
	docs         map[string]Document
	nextID       int
	accessToken  string
	refreshToken string
	refreshes    int
}

func newAPIServer() *apiServer {
	return &apiServer{
		docs:         make(map[string]Document),
		accessToken:  "access-1",
		refreshToken: "refresh-1",
	}
}

// expireAccess invalidates the current access token, forcing the next
// authenticated call through the refresh path.
func (s *apiServer) expireAccess() {
	s.mu.Lock()
	s.accessToken = "access-rotated"
	s.mu.Unlock()
}

func (s *apiServer) authorized(r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return r.Header.Get("Authorization") == "Bearer "+s.accessToken
}

func (s *apiServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{
			"accessToken": s.accessToken, "refreshToken": s.refreshToken,
		})
	})

	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		defer s.mu.Unlock()
		if req.RefreshToken != s.refreshToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		s.refreshes++
		s.refreshToken = fmt.Sprintf("refresh-%d", s.refreshes+1)
		writeJSON(w, http.StatusOK, map[string]string{
			"accessToken": s.accessToken, "refreshToken": s.refreshToken,
		})
	})

	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		s.route(w, r)
	})

	return mux
}

func (s *apiServer) route(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case r.Method == http.MethodGet && path == "/time":
		writeJSON(w, http.StatusOK, map[string]int64{"unixMilli": 1_700_000_000_000})

	case len(parts) == 3 && parts[0] == "collections" && parts[2] == "documents":
		collection := parts[1]
		if r.Method == http.MethodGet {
			s.listDocuments(w, r, collection)
			return
		}
		s.createDocument(w, r, collection)

	case len(parts) == 4 && parts[0] == "collections" && parts[2] == "documents":
		s.documentByID(w, r, parts[3])

	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (s *apiServer) listDocuments(w http.ResponseWriter, r *http.Request, collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Document{}
	localID, filtered := int64(0), false
	if v := r.URL.Query().Get("localId"); v != "" {
		localID, _ = strconv.ParseInt(v, 10, 64)
		filtered = true
	}
	for _, d := range s.docs {
		if d.Collection != collection {
			continue
		}
		if filtered && d.LocalID != localID {
			continue
		}
		out = append(out, d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (s *apiServer) createDocument(w http.ResponseWriter, r *http.Request, collection string) {
	var req struct {
		LocalID   int64           `json:"localId"`
		Data      json.RawMessage `json:"data"`
		UpdatedAt int64           `json:"updatedAt"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("doc-%d", s.nextID)
	s.docs[id] = Document{ID: id, Collection: collection, LocalID: req.LocalID, Data: req.Data, UpdatedAt: req.UpdatedAt}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *apiServer) documentByID(w http.ResponseWriter, r *http.Request, docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		d, ok := s.docs[docID]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		var req struct {
			Data      json.RawMessage `json:"data"`
			UpdatedAt int64           `json:"updatedAt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		d.Data = req.Data
		d.UpdatedAt = req.UpdatedAt
		s.docs[docID] = d
		writeJSON(w, http.StatusOK, map[string]string{})
	case http.MethodDelete:
		if _, ok := s.docs[docID]; !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		delete(s.docs, docID)
		writeJSON(w, http.StatusOK, map[string]string{})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T) (*HTTPClient, *apiServer) {
	t.Helper()
	api := newAPIServer()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL), api
}

func TestPing(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	assert.NoError(t, c.Ping(ctx))
}

func TestDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	require.NoError(t, c.Login(ctx, "amina", "s3cret"))

	id, err := c.Create(ctx, "sales", 7, json.RawMessage(`{"v":1}`), 100)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	docs, err := c.List(ctx, "sales")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.EqualValues(t, 7, docs[0].LocalID)

	require.NoError(t, c.Update(ctx, "sales", id, json.RawMessage(`{"v":2}`), 200))
	docs, err = c.List(ctx, "sales")
	require.NoError(t, err)
	assert.EqualValues(t, 200, docs[0].UpdatedAt)

	found, err := c.FindByLocalID(ctx, "sales", 7)
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)

	_, err = c.FindByLocalID(ctx, "sales", 404)
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, c.Delete(ctx, "sales", id))
	docs, err = c.List(ctx, "sales")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDeleteAbsentDocumentIsNotAnError(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	require.NoError(t, c.Login(ctx, "amina", "s3cret"))

	assert.NoError(t, c.Delete(ctx, "sales", "doc-never-existed"))
}

func TestUnauthenticatedCallFails(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)

	_, err := c.List(ctx, "sales")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestExpiredAccessTokenIsRefreshedOnce(t *testing.T) {
	ctx := context.Background()
	c, api := newTestClient(t)
	require.NoError(t, c.Login(ctx, "amina", "s3cret"))

	api.expireAccess()

	docs, err := c.List(ctx, "sales")
	require.NoError(t, err, "a stale access token is refreshed transparently")
	assert.Empty(t, docs)

	api.mu.Lock()
	refreshes := api.refreshes
	api.mu.Unlock()
	assert.Equal(t, 1, refreshes)
}

func TestBatchRejectsOversizedClientSide(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)

	ops := make([]Op, common.MaxBatchOps+1)
	_, err := c.Batch(ctx, ops)
	assert.ErrorIs(t, err, common.ErrBatchTooLarge)
}

func TestServerTime(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	require.NoError(t, c.Login(ctx, "amina", "s3cret"))

	ts, err := c.ServerTime(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1_700_000_000_000, ts.UnixMilli())
}
