// Package drive is a minimal Google Drive v3 files client covering the
// read-only operations the export reconciler needs: resolving folders by
// name and listing folder contents.
package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/oappleby/plotsat/internal/resilience"
)

const (
	defaultBaseURL  = "https://www.googleapis.com/drive/v3"
	defaultPageSize = 100

	folderMIMEType = "application/vnd.google-apps.folder"
)

// Client performs Google Drive file listing operations.
type Client interface {
	// FindFolder resolves a folder by exact name, optionally scoped to a
	// parent folder id. A nil File means no such folder exists.
	FindFolder(ctx context.Context, name, parentID string) (*File, error)
	// ListFolders returns the child folders of a parent folder.
	ListFolders(ctx context.Context, parentID string) ([]File, error)
	// ListFiles returns the non-folder children of a folder.
	ListFiles(ctx context.Context, folderID string) ([]File, error)
}

// File is a Drive file or folder.
type File struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type fileList struct {
	NextPageToken string `json:"nextPageToken"`
	Files         []File `json:"files"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithPageSize overrides the default listing page size (1..1000).
func WithPageSize(n int) Option {
	return func(c *httpClient) {
		c.pageSize = n
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type httpClient struct {
	token    string
	baseURL  string
	pageSize int
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a Drive API client using a bearer token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:    token,
		baseURL:  defaultBaseURL,
		pageSize: defaultPageSize,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: rate.NewLimiter(10, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) FindFolder(ctx context.Context, name, parentID string) (*File, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), folderMIMEType)
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}
	files, err := c.listAll(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	return &files[0], nil
}

func (c *httpClient) ListFolders(ctx context.Context, parentID string) ([]File, error) {
	q := fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false", escapeQuery(parentID), folderMIMEType)
	return c.listAll(ctx, q)
}

func (c *httpClient) ListFiles(ctx context.Context, folderID string) ([]File, error) {
	q := fmt.Sprintf("'%s' in parents and mimeType != '%s' and trashed = false", escapeQuery(folderID), folderMIMEType)
	return c.listAll(ctx, q)
}

// listAll pages through GET /files for a query until nextPageToken runs out.
func (c *httpClient) listAll(ctx context.Context, query string) ([]File, error) {
	var (
		files     []File
		pageToken string
	)
	for {
		page, err := c.listPage(ctx, query, pageToken)
		if err != nil {
			return nil, err
		}
		files = append(files, page.Files...)
		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *httpClient) listPage(ctx context.Context, query, pageToken string) (*fileList, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "drive: rate limit wait")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("fields", "nextPageToken,files(id,name)")
	params.Set("pageSize", fmt.Sprintf("%d", c.pageSize))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "drive: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "drive: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "drive: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("drive: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result fileList
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "drive: unmarshal response")
	}
	return &result, nil
}

// escapeQuery escapes single quotes and backslashes in Drive query strings.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
