// Package scholar provides a tool that searches Google Scholar by scraping
// the result page. Scholar has no public API, so selectors may need
// maintenance when the markup changes.
package scholar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/pkg/llmutils"
	"github.com/effective-security/agenttools/pkg/schema"
	"github.com/effective-security/agenttools/tools"
)

const (
	ToolName = "ScholarSearch"

	defaultBaseURL = "https://scholar.google.com"

	defaultMaxResults = 10
	maxResultsLimit   = 20

	// a desktop user agent, Scholar blocks the Go default
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

var citedByRe = regexp.MustCompile(`Cited by (\d+)`)

// Config holds the Scholar endpoint.
type Config struct {
	baseURL    string
	httpClient *http.Client
}

func NewConfig() *Config {
	return &Config{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
}

func (c *Config) WithBaseURL(baseURL string) *Config {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

func (c *Config) WithHTTPClient(client *http.Client) *Config {
	c.httpClient = client
	return c
}

// SearchRequest represents the tool input.
type SearchRequest struct {
	Query      string `json:"Query" jsonschema:"title=Query,description=The scholarly search query." validate:"required"`
	MaxResults int    `json:"MaxResults,omitempty" jsonschema:"title=MaxResults,description=Maximum number of results, up to 20 (default 10)."`
	YearFrom   int    `json:"YearFrom,omitempty" jsonschema:"title=YearFrom,description=Only include results published in or after this year."`
}

// Publication holds one scraped search result.
type Publication struct {
	Title    string `json:"title"`
	Link     string `json:"link,omitempty"`
	Snippet  string `json:"snippet,omitempty"`
	Authors  string `json:"authors,omitempty"`
	CitedBy  int    `json:"cited_by,omitempty"`
}

// SearchResult represents the tool output.
type SearchResult struct {
	Publications []Publication `json:"publications"`
}

func (r *SearchResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *SearchResult) String() string {
	var sb strings.Builder
	for i, p := range r.Publications {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, p.Title)
		if p.Authors != "" {
			fmt.Fprintf(&sb, "   %s\n", p.Authors)
		}
		if p.CitedBy > 0 {
			fmt.Fprintf(&sb, "   Cited by %d\n", p.CitedBy)
		}
	}
	return sb.String()
}

// Tool scrapes Google Scholar search results.
type Tool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[SearchRequest, SearchResult] = (*Tool)(nil)

func New(cfg *Config) (*Tool, error) {
	sc, err := schema.New(reflect.TypeOf(SearchRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &Tool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *Tool) Name() string { return ToolName }

func (t *Tool) Description() string {
	return "Searches Google Scholar and returns titles, links, snippets, author lines and citation counts."
}

func (t *Tool) Parameters() any { return t.funcParams }

func (t *Tool) Run(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	limit := req.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}
	if limit > maxResultsLimit {
		limit = maxResultsLimit
	}

	query := url.Values{}
	query.Set("q", req.Query)
	query.Set("hl", "en")
	if req.YearFrom > 0 {
		query.Set("as_ylo", strconv.Itoa(req.YearFrom))
	}
	uri := fmt.Sprintf("%s/scholar?%s", t.cfg.baseURL, query.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := t.cfg.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call Google Scholar")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("scholar: request failed: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse result page")
	}

	res := &SearchResult{}
	doc.Find("div.gs_r.gs_or").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(res.Publications) >= limit {
			return false
		}
		pub := Publication{
			Title:   strings.TrimSpace(s.Find("h3.gs_rt").Text()),
			Snippet: strings.TrimSpace(s.Find("div.gs_rs").Text()),
			Authors: strings.TrimSpace(s.Find("div.gs_a").Text()),
		}
		if pub.Title == "" {
			return true
		}
		if href, ok := s.Find("h3.gs_rt a").Attr("href"); ok {
			pub.Link = href
		}
		if m := citedByRe.FindStringSubmatch(s.Find("div.gs_fl").Text()); m != nil {
			pub.CitedBy, _ = strconv.Atoi(m[1])
		}
		res.Publications = append(res.Publications, pub)
		return true
	})
	return res, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[SearchRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}
