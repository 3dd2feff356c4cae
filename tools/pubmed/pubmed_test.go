package pubmed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/chatmodel"
	"github.com/effective-security/agenttools/tools/pubmed"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fetchXML = `<?xml version="1.0" ?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>36635000</PMID>
      <Article>
        <Journal>
          <JournalIssue>
            <PubDate><Year>2023</Year></PubDate>
          </JournalIssue>
          <Title>Nature Medicine</Title>
        </Journal>
        <ArticleTitle>Large language models in clinical decision support</ArticleTitle>
        <Abstract>
          <AbstractText>Background paragraph.</AbstractText>
          <AbstractText>Results paragraph.</AbstractText>
        </Abstract>
        <AuthorList>
          <Author><LastName>Chen</LastName><Initials>L</Initials></Author>
          <Author><LastName>Okafor</LastName><Initials>A</Initials></Author>
          <Author><CollectiveName>Study Group</CollectiveName></Author>
        </AuthorList>
      </Article>
    </MedlineCitation>
    <PubmedData>
      <ArticleIdList>
        <ArticleId IdType="pubmed">36635000</ArticleId>
        <ArticleId IdType="doi">10.1038/s41591-023-0001-1</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
</PubmedArticleSet>`

func Test_Search(t *testing.T) {
	t.Setenv("PUBMED_API_KEY", "nckey")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/esearch.fcgi", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "pubmed", q.Get("db"))
		assert.Equal(t, "sepsis[ti] AND 2023[dp]", q.Get("term"))
		assert.Equal(t, "5", q.Get("retmax"))
		assert.Equal(t, "nckey", q.Get("api_key"))

		_, _ = w.Write([]byte(`{"esearchresult":{"count":"2741","idlist":["36635000","36634999"]}}`))
	}))
	defer server.Close()

	cfg := pubmed.NewConfig().WithBaseURL(server.URL).WithHTTPClient(server.Client())
	tool, err := pubmed.NewSearchTool(cfg)
	require.NoError(t, err)

	assert.Equal(t, pubmed.SearchToolName, tool.Name())

	ctx := context.Background()

	_, err = tool.Call(ctx, "not json")
	assert.True(t, errors.Is(err, chatmodel.ErrFailedUnmarshalInput))

	res, err := tool.Run(ctx, &pubmed.SearchRequest{
		Query:      "sepsis[ti] AND 2023[dp]",
		MaxResults: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 2741, res.Count)
	assert.Equal(t, []string{"36635000", "36634999"}, res.PMIDs)
	assert.Equal(t, "2741 results: 36635000, 36634999", res.String())
}

func Test_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/efetch.fcgi", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "36635000", q.Get("id"))
		assert.Equal(t, "xml", q.Get("retmode"))

		_, _ = w.Write([]byte(fetchXML))
	}))
	defer server.Close()

	cfg := pubmed.NewConfig().WithBaseURL(server.URL).WithHTTPClient(server.Client())
	tool, err := pubmed.NewFetchTool(cfg)
	require.NoError(t, err)

	res, err := tool.Run(context.Background(), &pubmed.FetchRequest{PMIDs: []string{"36635000"}})
	require.NoError(t, err)
	require.Len(t, res.Articles, 1)

	exp := pubmed.Article{
		PMID:     "36635000",
		Title:    "Large language models in clinical decision support",
		Abstract: "Background paragraph.\nResults paragraph.",
		Journal:  "Nature Medicine",
		Year:     "2023",
		Authors:  []string{"Chen L", "Okafor A"},
		DOI:      "10.1038/s41591-023-0001-1",
	}
	if diff := cmp.Diff(exp, res.Articles[0]); diff != "" {
		t.Fatalf("unexpected article (-want +got):\n%s", diff)
	}
	assert.Contains(t, res.String(), "PMID 36635000")
}

func Test_VendorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"API rate limit exceeded"}`))
	}))
	defer server.Close()

	cfg := pubmed.NewConfig().WithBaseURL(server.URL).WithHTTPClient(server.Client())
	tool, err := pubmed.NewSearchTool(cfg)
	require.NoError(t, err)

	_, err = tool.Run(context.Background(), &pubmed.SearchRequest{Query: "sepsis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "rate limit")
}
