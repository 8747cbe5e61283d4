package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/content-graph-service/internal/domain"
)

type keywordResult struct {
	Value       string  `json:"value"`
	Status      string  `json:"status"`
	Occurrences int     `json:"occurrences"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

const (
	allowKeywordMutation = `
mutation AllowKeyword($keyword: String!) {
  allowKeyword(keyword: $keyword) { value status occurrences }
}`
	denyKeywordMutation = `
mutation DenyKeyword($keyword: String!) {
  denyKeyword(keyword: $keyword) { value status occurrences }
}`
	synonymMutation = `
mutation SetKeywordAsSynonym($keywordToUpdate: String!, $originalKeyword: String!) {
  setKeywordAsSynonym(keywordToUpdate: $keywordToUpdate, originalKeyword: $originalKeyword) {
    value status occurrences
  }
}`
	keywordQuery = `
query Keyword($value: String!) {
  keyword(value: $value) { value status occurrences title description }
}`
	postTagsQuery = `
query PostTags($id: ID!) {
  post(id: $id) { id tags }
}`
)

func (ts *testServer) tag(postID string, keywords ...string) {
	ts.t.Helper()
	require.NoError(ts.t, ts.store.AddPostKeywords(context.Background(), postID, keywords))
}

func (ts *testServer) postTags(postID string) []string {
	ts.t.Helper()
	var data struct {
		Post struct {
			Tags []string `json:"tags"`
		} `json:"post"`
	}
	ts.mustQuery("", postTagsQuery, map[string]interface{}{"id": postID}, &data)
	return data.Post.Tags
}

func (ts *testServer) postKeywords(postID string) map[string]domain.KeywordStatus {
	ts.t.Helper()
	rows, err := ts.store.GetPostKeywords(context.Background(), postID)
	require.NoError(ts.t, err)
	result := make(map[string]domain.KeywordStatus, len(rows))
	for _, row := range rows {
		result[row.Keyword] = row.Status
	}
	return result
}

func TestKeywordMutations_RequireModerator(t *testing.T) {
	ts := newTestServer(t)
	ts.tag("p1", "java")

	tests := []struct {
		name      string
		query     string
		variables map[string]interface{}
	}{
		{"allowKeyword", allowKeywordMutation, map[string]interface{}{"keyword": "java"}},
		{"denyKeyword", denyKeywordMutation, map[string]interface{}{"keyword": "java"}},
		{"setKeywordAsSynonym", synonymMutation, map[string]interface{}{"keywordToUpdate": "java", "originalKeyword": "jvm"}},
	}
	for _, tt := range tests {
		t.Run(tt.name+" anonymous", func(t *testing.T) {
			res := ts.query("", tt.query, tt.variables)
			assert.Equal(t, "UNAUTHENTICATED", res.errorCode())
		})
		t.Run(tt.name+" not moderator", func(t *testing.T) {
			res := ts.query(ts.token(userTsahi), tt.query, tt.variables)
			assert.Equal(t, "FORBIDDEN", res.errorCode())
		})
	}

	kw, err := ts.store.GetKeyword(context.Background(), "java")
	require.NoError(t, err)
	assert.Equal(t, domain.KeywordStatusPending, kw.Status)
}

func TestAllowKeyword_CreatesMissingKeyword(t *testing.T) {
	ts := newTestServer(t)

	var data struct {
		AllowKeyword keywordResult `json:"allowKeyword"`
	}
	ts.mustQuery(ts.moderator(), allowKeywordMutation, map[string]interface{}{"keyword": "Web Development"}, &data)

	assert.Equal(t, keywordResult{Value: "web-development", Status: "allow"}, data.AllowKeyword)
	kw, err := ts.store.GetKeyword(context.Background(), "web-development")
	require.NoError(t, err)
	assert.Equal(t, domain.KeywordStatusAllow, kw.Status)
}

func TestAllowKeyword_UpdatesPostKeywords(t *testing.T) {
	ts := newTestServer(t)
	ts.tag("p1", "java", "go")
	ts.tag("p2", "java")
	assert.Empty(t, ts.postTags("p1"))

	var data struct {
		AllowKeyword keywordResult `json:"allowKeyword"`
	}
	ts.mustQuery(ts.moderator(), allowKeywordMutation, map[string]interface{}{"keyword": "java"}, &data)

	assert.Equal(t, keywordResult{Value: "java", Status: "allow", Occurrences: 2}, data.AllowKeyword)
	assert.Equal(t, []string{"java"}, ts.postTags("p1"))
	assert.Equal(t, []string{"java"}, ts.postTags("p2"))
	assert.Equal(t, map[string]domain.KeywordStatus{
		"java": domain.KeywordStatusAllow,
		"go":   domain.KeywordStatusPending,
	}, ts.postKeywords("p1"))
}

func TestDenyKeyword(t *testing.T) {
	ts := newTestServer(t)
	ts.tag("p1", "java")
	ts.mustQuery(ts.moderator(), allowKeywordMutation, map[string]interface{}{"keyword": "java"}, nil)

	var data struct {
		DenyKeyword keywordResult `json:"denyKeyword"`
	}
	ts.mustQuery(ts.moderator(), denyKeywordMutation, map[string]interface{}{"keyword": "java"}, &data)

	assert.Equal(t, "deny", data.DenyKeyword.Status)
	assert.Empty(t, ts.postTags("p1"))
	assert.Equal(t, map[string]domain.KeywordStatus{"java": domain.KeywordStatusDeny}, ts.postKeywords("p1"))
}

func TestSetKeywordAsSynonym(t *testing.T) {
	ts := newTestServer(t)
	ts.tag("p1", "js", "javascript")
	ts.tag("p2", "js")
	ts.tag("p3", "javascript")
	ts.mustQuery(ts.moderator(), allowKeywordMutation, map[string]interface{}{"keyword": "javascript"}, nil)

	var data struct {
		SetKeywordAsSynonym keywordResult `json:"setKeywordAsSynonym"`
	}
	ts.mustQuery(ts.moderator(), synonymMutation, map[string]interface{}{
		"keywordToUpdate": "js",
		"originalKeyword": "javascript",
	}, &data)

	assert.Equal(t, keywordResult{Value: "javascript", Status: "allow", Occurrences: 3}, data.SetKeywordAsSynonym)

	// The old keyword is gone.
	var kw struct {
		Keyword *keywordResult `json:"keyword"`
	}
	ts.mustQuery("", keywordQuery, map[string]interface{}{"value": "js"}, &kw)
	assert.Nil(t, kw.Keyword)

	for _, postID := range []string{"p1", "p2", "p3"} {
		assert.Equal(t, map[string]domain.KeywordStatus{"javascript": domain.KeywordStatusAllow}, ts.postKeywords(postID), postID)
		assert.Equal(t, []string{"javascript"}, ts.postTags(postID), postID)
	}
}

func TestSetKeywordAsSynonym_CreatesTarget(t *testing.T) {
	ts := newTestServer(t)
	ts.tag("p1", "reactjs")
	ts.tag("p2", "reactjs")

	var data struct {
		SetKeywordAsSynonym keywordResult `json:"setKeywordAsSynonym"`
	}
	ts.mustQuery(ts.moderator(), synonymMutation, map[string]interface{}{
		"keywordToUpdate": "reactjs",
		"originalKeyword": "React",
	}, &data)

	assert.Equal(t, keywordResult{Value: "react", Status: "allow", Occurrences: 2}, data.SetKeywordAsSynonym)
	assert.Equal(t, []string{"react"}, ts.postTags("p1"))
}

func TestSetKeywordAsSynonym_DeniedTarget(t *testing.T) {
	ts := newTestServer(t)
	ts.tag("p1", "nft")
	ts.tag("p2", "crypto")
	ts.mustQuery(ts.moderator(), denyKeywordMutation, map[string]interface{}{"keyword": "crypto"}, nil)

	var data struct {
		SetKeywordAsSynonym keywordResult `json:"setKeywordAsSynonym"`
	}
	ts.mustQuery(ts.moderator(), synonymMutation, map[string]interface{}{
		"keywordToUpdate": "nft",
		"originalKeyword": "crypto",
	}, &data)

	assert.Equal(t, keywordResult{Value: "crypto", Status: "deny", Occurrences: 2}, data.SetKeywordAsSynonym)
	assert.Equal(t, map[string]domain.KeywordStatus{"crypto": domain.KeywordStatusDeny}, ts.postKeywords("p1"))
	assert.Empty(t, ts.postTags("p1"))
}

func TestSetKeywordAsSynonym_Errors(t *testing.T) {
	ts := newTestServer(t)
	ts.tag("p1", "web-dev")

	res := ts.query(ts.moderator(), synonymMutation, map[string]interface{}{
		"keywordToUpdate": "Web Dev",
		"originalKeyword": "web-dev",
	})
	assert.Equal(t, "GRAPHQL_VALIDATION_FAILED", res.errorCode())

	res = ts.query(ts.moderator(), synonymMutation, map[string]interface{}{
		"keywordToUpdate": "missing",
		"originalKeyword": "web-dev",
	})
	assert.Equal(t, "NOT_FOUND", res.errorCode())

	// Nothing changed.
	assert.Equal(t, map[string]domain.KeywordStatus{"web-dev": domain.KeywordStatusPending}, ts.postKeywords("p1"))
}

func TestRandomPendingKeyword(t *testing.T) {
	ts := newTestServer(t)
	ts.tag("p1", "java", "go")
	ts.mustQuery(ts.moderator(), allowKeywordMutation, map[string]interface{}{"keyword": "go"}, nil)

	const query = `{ randomPendingKeyword { value status } countPendingKeywords }`

	res := ts.query(ts.token(userTsahi), query, nil)
	assert.Equal(t, "FORBIDDEN", res.errorCode())

	var data struct {
		RandomPendingKeyword *keywordResult `json:"randomPendingKeyword"`
		CountPendingKeywords int            `json:"countPendingKeywords"`
	}
	ts.mustQuery(ts.moderator(), query, nil, &data)
	require.NotNil(t, data.RandomPendingKeyword)
	assert.Equal(t, "java", data.RandomPendingKeyword.Value)
	assert.Equal(t, 1, data.CountPendingKeywords)

	ts.mustQuery(ts.moderator(), denyKeywordMutation, map[string]interface{}{"keyword": "java"}, nil)
	data.RandomPendingKeyword = nil
	ts.mustQuery(ts.moderator(), query, nil, &data)
	assert.Nil(t, data.RandomPendingKeyword)
	assert.Zero(t, data.CountPendingKeywords)
}

func TestSearchKeywords(t *testing.T) {
	ts := newTestServer(t)
	ts.tag("p1", "java", "javascript")
	ts.tag("p2", "javascript")
	ts.tag("p3", "go")

	const query = `
query Search($query: String!, $limit: Int) {
  searchKeywords(query: $query, limit: $limit) { query hits { value occurrences } }
}`

	var data struct {
		SearchKeywords struct {
			Query string          `json:"query"`
			Hits  []keywordResult `json:"hits"`
		} `json:"searchKeywords"`
	}
	ts.mustQuery("", query, map[string]interface{}{"query": "java"}, &data)
	assert.Equal(t, "java", data.SearchKeywords.Query)
	assert.Equal(t, []keywordResult{
		{Value: "javascript", Occurrences: 2},
		{Value: "java", Occurrences: 1},
	}, data.SearchKeywords.Hits)

	ts.mustQuery("", query, map[string]interface{}{"query": "JAVA", "limit": 1}, &data)
	require.Len(t, data.SearchKeywords.Hits, 1)
	assert.Equal(t, "javascript", data.SearchKeywords.Hits[0].Value)

	ts.mustQuery("", query, map[string]interface{}{"query": "rust"}, &data)
	assert.Empty(t, data.SearchKeywords.Hits)
}

func TestKeywordsByStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.tag("p1", "java", "go", "rust")
	ts.tag("p2", "go")

	const query = `
query Keywords($status: KeywordStatus!) {
  keywords(status: $status) { value status occurrences }
}`

	res := ts.query(ts.token(userTsahi), query, map[string]interface{}{"status": "pending"})
	assert.Equal(t, "FORBIDDEN", res.errorCode())

	var data struct {
		Keywords []keywordResult `json:"keywords"`
	}
	ts.mustQuery(ts.moderator(), query, map[string]interface{}{"status": "pending"}, &data)
	assert.Equal(t, []keywordResult{
		{Value: "go", Status: "pending", Occurrences: 2},
		{Value: "java", Status: "pending", Occurrences: 1},
		{Value: "rust", Status: "pending", Occurrences: 1},
	}, data.Keywords)

	ts.mustQuery(ts.moderator(), query, map[string]interface{}{"status": "allow"}, &data)
	assert.Empty(t, data.Keywords)
}

func TestUpdateKeyword(t *testing.T) {
	ts := newTestServer(t)
	ts.tag("p1", "go")

	const mutation = `
mutation UpdateKeyword($keyword: String!, $title: String, $description: String) {
  updateKeyword(keyword: $keyword, title: $title, description: $description) { value title description }
}`

	var data struct {
		UpdateKeyword keywordResult `json:"updateKeyword"`
	}
	ts.mustQuery(ts.moderator(), mutation, map[string]interface{}{"keyword": "go", "title": "Go"}, &data)
	require.NotNil(t, data.UpdateKeyword.Title)
	assert.Equal(t, "Go", *data.UpdateKeyword.Title)
	assert.Nil(t, data.UpdateKeyword.Description)

	ts.mustQuery(ts.moderator(), mutation, map[string]interface{}{"keyword": "go", "description": "The Go language"}, &data)
	require.NotNil(t, data.UpdateKeyword.Title)
	assert.Equal(t, "Go", *data.UpdateKeyword.Title)
	require.NotNil(t, data.UpdateKeyword.Description)
	assert.Equal(t, "The Go language", *data.UpdateKeyword.Description)

	res := ts.query(ts.moderator(), mutation, map[string]interface{}{"keyword": "missing", "title": "x"})
	assert.Equal(t, "NOT_FOUND", res.errorCode())
}

func TestTagPost(t *testing.T) {
	ts := newTestServer(t)

	const mutation = `
mutation TagPost($postId: ID!, $keywords: [String!]!) {
  tagPost(postId: $postId, keywords: $keywords) { id tags }
}`
	vars := map[string]interface{}{"postId": "p1", "keywords": []string{"Go", "go", "Web Dev"}}

	res := ts.query(ts.token(userTsahi), mutation, vars)
	assert.Equal(t, "FORBIDDEN", res.errorCode())

	ts.mustQuery(ts.moderator(), mutation, vars, nil)
	ts.mustQuery(ts.moderator(), mutation, vars, nil)

	assert.Equal(t, map[string]domain.KeywordStatus{
		"go":      domain.KeywordStatusPending,
		"web-dev": domain.KeywordStatusPending,
	}, ts.postKeywords("p1"))
	kw, err := ts.store.GetKeyword(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, 1, kw.Occurrences)

	res = ts.query(ts.moderator(), mutation, map[string]interface{}{"postId": "missing", "keywords": []string{"go"}})
	assert.Equal(t, "NOT_FOUND", res.errorCode())
}
