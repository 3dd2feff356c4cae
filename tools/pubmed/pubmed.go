// Package pubmed provides tools for searching PubMed and fetching article
// metadata through the NCBI E-utilities API.
package pubmed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/pkg/llmutils"
	"github.com/effective-security/agenttools/pkg/schema"
	"github.com/effective-security/agenttools/tools"
)

const (
	SearchToolName = "PubMedSearch"
	FetchToolName  = "PubMedFetch"

	defaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// maxResponseSize bounds the E-utilities response body.
	maxResponseSize = 4 * 1024 * 1024

	defaultMaxResults = 10
	maxResults        = 50
	maxFetchIDs       = 20
)

// Config holds the E-utilities endpoint and optional API key.
type Config struct {
	// APIKey raises the NCBI rate limit, optional.
	APIKey     string
	baseURL    string
	httpClient *http.Client
}

// NewConfig reads PUBMED_API_KEY from the environment. The key is optional.
func NewConfig() *Config {
	return &Config{
		APIKey:     os.Getenv("PUBMED_API_KEY"),
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

func (c *Config) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	query.Set("db", "pubmed")
	if c.APIKey != "" {
		query.Set("api_key", c.APIKey)
	}
	uri := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call PubMed API")
	}
	defer resp.Body.Close()

	bs, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode >= 300 {
		return nil, errors.Errorf("pubmed: request failed: status %d: %s",
			resp.StatusCode, llmutils.TruncateString(string(bs), 256))
	}
	return bs, nil
}

// SearchRequest represents the search tool input.
type SearchRequest struct {
	Query      string `json:"Query" jsonschema:"title=Query,description=The PubMed search term, supports field tags such as [au] and [ti]." validate:"required"`
	MaxResults int    `json:"MaxResults,omitempty" jsonschema:"title=MaxResults,description=Maximum number of PMIDs to return, up to 50 (default 10)."`
}

// SearchResult represents the search tool output.
type SearchResult struct {
	Count int      `json:"count"`
	PMIDs []string `json:"pmids"`
}

func (r *SearchResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *SearchResult) String() string {
	return fmt.Sprintf("%d results: %s", r.Count, strings.Join(r.PMIDs, ", "))
}

// SearchTool queries esearch and returns matching PMIDs.
type SearchTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[SearchRequest, SearchResult] = (*SearchTool)(nil)

func NewSearchTool(cfg *Config) (*SearchTool, error) {
	sc, err := schema.New(reflect.TypeOf(SearchRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &SearchTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *SearchTool) Name() string { return SearchToolName }

func (t *SearchTool) Description() string {
	return "Searches PubMed and returns the total hit count and matching PMIDs."
}

func (t *SearchTool) Parameters() any { return t.funcParams }

func (t *SearchTool) Run(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	limit := req.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}
	if limit > maxResults {
		limit = maxResults
	}

	query := url.Values{}
	query.Set("term", req.Query)
	query.Set("retmax", strconv.Itoa(limit))
	query.Set("retmode", "json")

	bs, err := t.cfg.get(ctx, "esearch.fcgi", query)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		ESearchResult struct {
			Count  string   `json:"count"`
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.Unmarshal(bs, &parsed); err != nil {
		return nil, errors.Wrap(err, "failed to parse search response")
	}

	count, _ := strconv.Atoi(parsed.ESearchResult.Count)
	return &SearchResult{
		Count: count,
		PMIDs: parsed.ESearchResult.IDList,
	}, nil
}

func (t *SearchTool) Call(ctx context.Context, input string) (string, error) {
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

// FetchRequest represents the fetch tool input.
type FetchRequest struct {
	PMIDs []string `json:"PMIDs" jsonschema:"title=PMIDs,description=The PubMed IDs to fetch, up to 20." validate:"required,min=1,max=20"`
}

// Article holds the metadata extracted from a PubmedArticle record.
type Article struct {
	PMID     string   `json:"pmid"`
	Title    string   `json:"title"`
	Abstract string   `json:"abstract,omitempty"`
	Journal  string   `json:"journal,omitempty"`
	Year     string   `json:"year,omitempty"`
	Authors  []string `json:"authors,omitempty"`
	DOI      string   `json:"doi,omitempty"`
}

// FetchResult represents the fetch tool output.
type FetchResult struct {
	Articles []Article `json:"articles"`
}

func (r *FetchResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *FetchResult) String() string {
	var sb strings.Builder
	for _, a := range r.Articles {
		fmt.Fprintf(&sb, "PMID %s: %s (%s, %s)\n", a.PMID, a.Title, a.Journal, a.Year)
	}
	return sb.String()
}

// articleSet mirrors the efetch PubmedArticleSet XML document.
type articleSet struct {
	XMLName  xml.Name `xml:"PubmedArticleSet"`
	Articles []struct {
		Citation struct {
			PMID    string `xml:"PMID"`
			Article struct {
				Title    string `xml:"ArticleTitle"`
				Abstract struct {
					Text []string `xml:"AbstractText"`
				} `xml:"Abstract"`
				Journal struct {
					Title string `xml:"Title"`
					Issue struct {
						PubDate struct {
							Year string `xml:"Year"`
						} `xml:"PubDate"`
					} `xml:"JournalIssue"`
				} `xml:"Journal"`
				AuthorList struct {
					Authors []struct {
						LastName string `xml:"LastName"`
						Initials string `xml:"Initials"`
					} `xml:"Author"`
				} `xml:"AuthorList"`
			} `xml:"Article"`
		} `xml:"MedlineCitation"`
		PubmedData struct {
			ArticleIDs []struct {
				IDType string `xml:"IdType,attr"`
				Value  string `xml:",chardata"`
			} `xml:"ArticleIdList>ArticleId"`
		} `xml:"PubmedData"`
	} `xml:"PubmedArticle"`
}

// FetchTool retrieves article metadata with efetch and parses the XML.
type FetchTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[FetchRequest, FetchResult] = (*FetchTool)(nil)

func NewFetchTool(cfg *Config) (*FetchTool, error) {
	sc, err := schema.New(reflect.TypeOf(FetchRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &FetchTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *FetchTool) Name() string { return FetchToolName }

func (t *FetchTool) Description() string {
	return "Fetches title, abstract, journal, year, authors and DOI for PubMed IDs."
}

func (t *FetchTool) Parameters() any { return t.funcParams }

func (t *FetchTool) Run(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if len(req.PMIDs) > maxFetchIDs {
		return nil, errors.Errorf("invalid request: at most %d PMIDs per fetch", maxFetchIDs)
	}

	query := url.Values{}
	query.Set("id", strings.Join(req.PMIDs, ","))
	query.Set("retmode", "xml")

	bs, err := t.cfg.get(ctx, "efetch.fcgi", query)
	if err != nil {
		return nil, err
	}

	var set articleSet
	if err := xml.Unmarshal(bs, &set); err != nil {
		return nil, errors.Wrap(err, "failed to parse article XML")
	}

	res := &FetchResult{}
	for _, rec := range set.Articles {
		art := Article{
			PMID:     rec.Citation.PMID,
			Title:    rec.Citation.Article.Title,
			Abstract: strings.Join(rec.Citation.Article.Abstract.Text, "\n"),
			Journal:  rec.Citation.Article.Journal.Title,
			Year:     rec.Citation.Article.Journal.Issue.PubDate.Year,
		}
		for _, a := range rec.Citation.Article.AuthorList.Authors {
			if a.LastName == "" {
				continue
			}
			name := a.LastName
			if a.Initials != "" {
				name += " " + a.Initials
			}
			art.Authors = append(art.Authors, name)
		}
		for _, id := range rec.PubmedData.ArticleIDs {
			if id.IDType == "doi" {
				art.DOI = id.Value
				break
			}
		}
		res.Articles = append(res.Articles, art)
	}
	return res, nil
}

func (t *FetchTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[FetchRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}
