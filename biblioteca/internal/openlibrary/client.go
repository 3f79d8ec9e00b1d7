// Package openlibrary is a thin client for the Open Library REST catalog.
// Lookups distinguish "not found" (nil record, nil error) from soft failures
// (network error, non-success status, malformed body), so callers can fall
// through to another strategy.
package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bibliotek/biblioteca-service/biblioteca/config"
	"github.com/bibliotek/biblioteca-service/pkg/circuit_breaker"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Text normalizes Open Library's string-or-object text fields
// ("description": "..." vs {"type": ..., "value": "..."}).
type Text struct {
	Value string
}

func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Value = s
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	t.Value = obj.Value
	return nil
}

type KeyRef struct {
	Key string `json:"key"`
}

// Edition is the /isbn/{isbn}.json record.
type Edition struct {
	Title         string   `json:"title"`
	Publishers    []string `json:"publishers"`
	NumberOfPages int      `json:"number_of_pages"`
	PublishDate   string   `json:"publish_date"`
	Works         []KeyRef `json:"works"`
	Authors       []KeyRef `json:"authors"`
}

// Work is the /works/{id}.json record.
type Work struct {
	Description Text     `json:"description"`
	Subjects    []string `json:"subjects"`
}

// Author is the /authors/{id}.json record.
type Author struct {
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
	Bio       Text   `json:"bio"`
}

// SearchDoc is one result of /search.json.
type SearchDoc struct {
	Title               string   `json:"title"`
	Key                 string   `json:"key"`
	FirstPublishYear    int      `json:"first_publish_year"`
	Publisher           []string `json:"publisher"`
	NumberOfPagesMedian int      `json:"number_of_pages_median"`
	Subject             []string `json:"subject"`
	ISBN                []string `json:"isbn"`
	AuthorName          []string `json:"author_name"`
	AuthorKey           []string `json:"author_key"`
}

type searchResponse struct {
	NumFound int         `json:"numFound"`
	Docs     []SearchDoc `json:"docs"`
}

type Client struct {
	cfg    config.OpenLibrary
	client *http.Client
	cb     circuit_breaker.CircuitBreaker
	log    *zap.Logger
}

func NewClient(cfg config.OpenLibrary, log *zap.Logger) *Client {
	const (
		cbRecordLength     = 20
		cbTimeout          = 30 * time.Second
		cbPercentile       = 0.5
		cbRecoveryRequests = 3
	)
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cb:     circuit_breaker.New(cbRecordLength, cbTimeout, cbPercentile, cbRecoveryRequests),
		log:    log.Named("openlibrary"),
	}
}

// get decodes path into v. found=false with nil error means 404.
func (c *Client) get(ctx context.Context, path string, v any) (found bool, err error) {
	err = c.cb.Call(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, http.NoBody)
		if err != nil {
			return err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil
		case resp.StatusCode != http.StatusOK:
			return errors.Errorf("openlibrary %s: status %d", path, resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return errors.Wrapf(err, "openlibrary %s: decode", path)
		}
		found = true
		return nil
	})
	return found, err
}

func (c *Client) LookupByISBN(ctx context.Context, isbn string) (*Edition, error) {
	var ed Edition
	found, err := c.get(ctx, fmt.Sprintf("/isbn/%s.json", url.PathEscape(isbn)), &ed)
	if err != nil || !found {
		return nil, err
	}
	return &ed, nil
}

// SearchByTitle returns the best match for a free-text title, or nil when the
// search yields nothing.
func (c *Client) SearchByTitle(ctx context.Context, title string, limit int) (*SearchDoc, error) {
	var sr searchResponse
	path := fmt.Sprintf("/search.json?q=%s&limit=%d", url.QueryEscape(title), limit)
	found, err := c.get(ctx, path, &sr)
	if err != nil || !found {
		return nil, err
	}
	if len(sr.Docs) == 0 {
		return nil, nil
	}
	return &sr.Docs[0], nil
}

func (c *Client) FetchWork(ctx context.Context, workKey string) (*Work, error) {
	key := NormalizeWorkKey(workKey)
	if key == "" {
		return nil, nil
	}
	var w Work
	found, err := c.get(ctx, key+".json", &w)
	if err != nil || !found {
		return nil, err
	}
	return &w, nil
}

func (c *Client) FetchAuthor(ctx context.Context, authorKey string) (*Author, error) {
	if authorKey == "" {
		return nil, nil
	}
	if !strings.HasPrefix(authorKey, "/authors/") {
		authorKey = "/authors/" + authorKey
	}
	var a Author
	found, err := c.get(ctx, authorKey+".json", &a)
	if err != nil || !found {
		return nil, err
	}
	return &a, nil
}

// NormalizeWorkKey maps the raw work reference shapes the API returns
// ("OL45883W", "/works/OL45883W") onto the canonical /works/<id> form.
// Anything else normalizes to the empty string.
func NormalizeWorkKey(raw string) string {
	id := strings.TrimPrefix(raw, "/works/")
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	if !strings.HasPrefix(id, "OL") {
		return ""
	}
	return "/works/" + id
}
