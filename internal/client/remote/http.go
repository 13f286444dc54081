package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tallyhq/tally/internal/common"
)

// HTTPClient implements Store over the server's JSON API.
// Requests carry a bearer access token; a 401 triggers one transparent
// refresh-and-retry before the error is surfaced. Transient failures
// (network errors, 5xx) are retried with capped exponential backoff.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.status, e.body)
}

func (c *HTTPClient) setTokens(p tokenPair) {
	c.mu.Lock()
	c.accessToken = p.AccessToken
	c.refreshToken = p.RefreshToken
	c.mu.Unlock()
}

func (c *HTTPClient) tokens() (access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

// Register creates an account and stores the issued tokens.
func (c *HTTPClient) Register(ctx context.Context, username, password string) error {
	var pair tokenPair
	if err := c.postJSON(ctx, "/api/v1/auth/register",
		map[string]string{"username": username, "password": password}, &pair); err != nil {
		return err
	}
	c.setTokens(pair)
	return nil
}

// Login authenticates and stores the issued tokens.
func (c *HTTPClient) Login(ctx context.Context, username, password string) error {
	var pair tokenPair
	if err := c.postJSON(ctx, "/api/v1/auth/login",
		map[string]string{"username": username, "password": password}, &pair); err != nil {
		return err
	}
	c.setTokens(pair)
	return nil
}

func (c *HTTPClient) refresh(ctx context.Context) error {
	_, rt := c.tokens()
	if rt == "" {
		return common.ErrUnauthorized
	}
	var pair tokenPair
	if err := c.postJSON(ctx, "/api/v1/auth/refresh", map[string]string{"refreshToken": rt}, &pair); err != nil {
		return err
	}
	c.setTokens(pair)
	return nil
}

// postJSON is used by the auth endpoints only; it does not attach a token.
func (c *HTTPClient) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return common.ErrUnauthorized
	}
	if resp.StatusCode == http.StatusNotFound {
		return common.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &apiError{status: resp.StatusCode, body: string(b)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// do performs an authenticated request with backoff on transient failures
// and one token refresh on 401.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(1*time.Second))

	refreshed := false
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.doOnce(ctx, method, path, in, out)
		if err == nil {
			return nil
		}
		if errors.Is(err, common.ErrUnauthorized) && !refreshed {
			refreshed = true
			if rerr := c.refresh(ctx); rerr != nil {
				return common.ErrUnauthorized
			}
			return retry.RetryableError(err)
		}
		if isNetworkError(err) {
			return retry.RetryableError(err)
		}
		var ae *apiError
		if errors.As(err, &ae) && ae.status >= 500 {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *HTTPClient) doOnce(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	access, _ := c.tokens()
	if access != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+access)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func isNetworkError(err error) bool {
	var ue *url.Error
	return errors.As(err, &ue)
}

// Ping probes server reachability without auth.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected ping status: %s", resp.Status)
	}
	return nil
}

func (c *HTTPClient) ServerTime(ctx context.Context) (time.Time, error) {
	var out struct {
		UnixMilli int64 `json:"unixMilli"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/time", nil, &out); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(out.UnixMilli), nil
}

func (c *HTTPClient) List(ctx context.Context, collection string) ([]Document, error) {
	var out struct {
		Documents []Document `json:"documents"`
	}
	path := "/api/v1/collections/" + url.PathEscape(collection) + "/documents"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

func (c *HTTPClient) FindByLocalID(ctx context.Context, collection string, localID int64) (*Document, error) {
	var out struct {
		Documents []Document `json:"documents"`
	}
	path := "/api/v1/collections/" + url.PathEscape(collection) + "/documents?localId=" + strconv.FormatInt(localID, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Documents) == 0 {
		return nil, common.ErrNotFound
	}
	return &out.Documents[0], nil
}

func (c *HTTPClient) Create(ctx context.Context, collection string, localID int64, data json.RawMessage, updatedAt int64) (string, error) {
	in := map[string]any{"localId": localID, "data": data, "updatedAt": updatedAt}
	var out struct {
		ID string `json:"id"`
	}
	path := "/api/v1/collections/" + url.PathEscape(collection) + "/documents"
	if err := c.do(ctx, http.MethodPost, path, in, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *HTTPClient) Update(ctx context.Context, collection, docID string, data json.RawMessage, updatedAt int64) error {
	in := map[string]any{"data": data, "updatedAt": updatedAt}
	path := "/api/v1/collections/" + url.PathEscape(collection) + "/documents/" + url.PathEscape(docID)
	return c.do(ctx, http.MethodPut, path, in, nil)
}

func (c *HTTPClient) Delete(ctx context.Context, collection, docID string) error {
	path := "/api/v1/collections/" + url.PathEscape(collection) + "/documents/" + url.PathEscape(docID)
	err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	return err
}

func (c *HTTPClient) Batch(ctx context.Context, ops []Op) ([]OpResult, error) {
	if len(ops) > common.MaxBatchOps {
		return nil, common.ErrBatchTooLarge
	}
	in := map[string]any{"ops": ops}
	var out struct {
		Results []OpResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/batch", in, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// PresignReceiptPut asks the server for a presigned upload slot for a
// receipt photo and returns the storage key plus the one-shot URL.
func (c *HTTPClient) PresignReceiptPut(ctx context.Context) (key, uploadURL string, err error) {
	var out struct {
		Key string `json:"key"`
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/receipts/presign-put", nil, &out); err != nil {
		return "", "", err
	}
	return out.Key, out.URL, nil
}

// PresignReceiptGet returns a temporary download URL for a stored receipt.
func (c *HTTPClient) PresignReceiptGet(ctx context.Context, key string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/receipts/presign-get?key="+url.QueryEscape(key), nil, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}
