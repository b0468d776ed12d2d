package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/khabar"
	"github.com/poiesic/khabar/cluster"
	"github.com/poiesic/khabar/core"
	"github.com/poiesic/khabar/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var published = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeService struct {
	items      []*core.Item
	lastLatest int
	lastReq    search.Request
	semantic   []*core.SemanticResult
	semErr     error
	status     khabar.Status
}

func (f *fakeService) ListAll() []*core.Item { return f.items }

func (f *fakeService) Latest(n int) ([]*core.Item, error) {
	f.lastLatest = n
	if err := core.ValidateCount(n, 50); err != nil {
		return nil, err
	}
	if n > len(f.items) {
		n = len(f.items)
	}
	return f.items[:n], nil
}

func (f *fakeService) KeywordSearch(term string) ([]*core.Item, error) {
	if err := core.ValidateKeyword(term, 2); err != nil {
		return nil, err
	}
	return f.items[:1], nil
}

func (f *fakeService) SemanticSearch(ctx context.Context, req search.Request) ([]*core.SemanticResult, error) {
	f.lastReq = req
	if f.semErr != nil {
		return nil, f.semErr
	}
	return f.semantic, nil
}

func (f *fakeService) FeedStatus() khabar.Status { return f.status }

func (f *fakeService) Topics() map[int][]string {
	return map[int][]string{0: {"a", "b"}, -1: {"c"}}
}

func (f *fakeService) TopicsWithKeywords() map[int]core.TopicSummary {
	return map[int]core.TopicSummary{
		0:  {ItemIDs: []string{"a", "b"}, Keywords: []core.Keyword{{Word: "gaza", Score: 0.4}}},
		-1: {ItemIDs: []string{"c"}},
	}
}

func (f *fakeService) TopicInfo(topicID int) (*core.TopicInfo, error) {
	if topicID != 0 {
		return nil, fmt.Errorf("%w: %d", cluster.ErrTopicNotFound, topicID)
	}
	return &core.TopicInfo{TopicID: 0, ItemCount: 2, ItemIDs: []string{"a", "b"}, Keywords: []core.Keyword{}}, nil
}

func newFakeService() *fakeService {
	items := []*core.Item{
		{ID: "a", Title: "Talks resume", URL: "https://example.com/a", Published: published, Summary: "Delegations meet", Source: "BBC"},
		{ID: "b", Title: "Markets fall", URL: "https://example.com/b", Published: published.Add(-time.Hour), Summary: "Oil drops"},
	}
	return &fakeService{
		items: items,
		status: khabar.Status{
			FeedURL:       "https://example.com/rss.xml",
			TotalStored:   2,
			UniqueSeen:    2,
			ETag:          `"abc"`,
			LatestItem:    items[0],
			PollingActive: true,
			Clustering:    cluster.State{ItemsSinceLastCluster: 2, NeedsClustering: true, Threshold: 5},
		},
	}
}

func serve(t *testing.T, svc Service, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	h, err := NewHandler(svc)
	require.NoError(t, err)
	h.now = func() time.Time { return published }

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	h.Router().ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w, body
}

func TestNewHandler(t *testing.T) {
	_, err := NewHandler(nil)
	assert.Error(t, err)

	h, err := NewHandler(newFakeService(), WithTitle("Test"), WithSemanticDefaults(0.3, 0), WithLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, "Test", h.title)
	assert.Equal(t, 0.3, h.defaultThreshold)
	assert.Equal(t, 10, h.defaultMaxResults)
}

func TestRootAndHealth(t *testing.T) {
	svc := newFakeService()

	w, body := serve(t, svc, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, "https://example.com/rss.xml", body["feed_source"])

	w, body = serve(t, svc, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["polling_active"])
	assert.Equal(t, float64(2), body["articles_count"])
	assert.Equal(t, "2024-01-01T12:00:00Z", body["timestamp"])
}

func TestNewsRoutes(t *testing.T) {
	t.Run("all news", func(t *testing.T) {
		w, body := serve(t, newFakeService(), "/news")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(2), body["total_articles"])
		articles := body["articles"].([]any)
		first := articles[0].(map[string]any)
		assert.Equal(t, "a", first["id"])
		assert.Equal(t, "2024-01-01T12:00:00Z", first["published"])
		assert.Equal(t, "BBC", first["source"])
		_, hasSource := articles[1].(map[string]any)["source"]
		assert.False(t, hasSource, "absent source is omitted")
	})

	t.Run("latest defaults to ten", func(t *testing.T) {
		svc := newFakeService()
		w, body := serve(t, svc, "/news/latest")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 10, svc.lastLatest)
		assert.Equal(t, float64(2), body["returned_count"])
	})

	tests := []struct {
		name string
		path string
		code int
	}{
		{"latest one", "/news/latest/1", http.StatusOK},
		{"latest zero", "/news/latest/0", http.StatusBadRequest},
		{"latest too many", "/news/latest/51", http.StatusBadRequest},
		{"latest not a number", "/news/latest/abc", http.StatusBadRequest},
		{"search", "/news/search/talks", http.StatusOK},
		{"search too short", "/news/search/a", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := serve(t, newFakeService(), tt.path)
			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusBadRequest {
				assert.NotEmpty(t, body["message"])
			}
		})
	}
}

func TestSemanticSearchRoute(t *testing.T) {
	t.Run("defaults and results", func(t *testing.T) {
		svc := newFakeService()
		svc.semantic = []*core.SemanticResult{{Item: svc.items[0], Score: 0.91, Confidence: core.ConfidenceVeryStrong}}

		w, body := serve(t, svc, "/news/semantic?q=ceasefire")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ceasefire", svc.lastReq.Query)
		assert.Equal(t, 0.5, svc.lastReq.MinThreshold)
		assert.Equal(t, 10, svc.lastReq.MaxResults)
		assert.Nil(t, svc.lastReq.TitleWeight)

		results := body["results"].([]any)
		require.Len(t, results, 1)
		first := results[0].(map[string]any)
		assert.Equal(t, "Very Strong Match", first["confidence"])
		assert.Equal(t, 0.91, first["similarity_score"])
	})

	t.Run("explicit parameters", func(t *testing.T) {
		svc := newFakeService()
		w, _ := serve(t, svc, "/news/semantic?q=oil&min_threshold=0.2&max_results=3&title_weight=0.5&summary_weight=0.5")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0.2, svc.lastReq.MinThreshold)
		assert.Equal(t, 3, svc.lastReq.MaxResults)
		require.NotNil(t, svc.lastReq.TitleWeight)
		assert.Equal(t, 0.5, *svc.lastReq.TitleWeight)
	})

	t.Run("invalid query is a bad request", func(t *testing.T) {
		svc := newFakeService()
		svc.semErr = fmt.Errorf("%w: %w", core.ErrInvalidQuery, core.ErrAsymmetricWeights)
		w, _ := serve(t, svc, "/news/semantic?q=oil&title_weight=0.5")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unparseable number", func(t *testing.T) {
		w, _ := serve(t, newFakeService(), "/news/semantic?q=oil&max_results=many")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("embedding failure is a server error", func(t *testing.T) {
		svc := newFakeService()
		svc.semErr = errors.New("connection refused")
		w, body := serve(t, svc, "/news/semantic?q=oil")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "internal error", body["message"])
	})
}

func TestStatusRoute(t *testing.T) {
	w, body := serve(t, newFakeService(), "/news/status")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["total_articles_stored"])
	assert.Equal(t, `"abc"`, body["last_etag"])
	assert.Nil(t, body["last_fetch_time"])
	assert.Equal(t, "a", body["latest_article"].(map[string]any)["id"])

	clustering := body["clustering"].(map[string]any)
	assert.Equal(t, true, clustering["needs_clustering"])
	assert.Nil(t, clustering["last_cluster_time"])
	assert.Equal(t, float64(5), clustering["threshold"])
}

func TestTopicRoutes(t *testing.T) {
	w, body := serve(t, newFakeService(), "/topics")
	assert.Equal(t, http.StatusOK, w.Code)
	topics := body["topics"].(map[string]any)
	assert.Len(t, topics, 2)
	assert.Contains(t, topics, "-1")

	w, body = serve(t, newFakeService(), "/topics/keywords")
	assert.Equal(t, http.StatusOK, w.Code)
	withKeywords := body["topics"].(map[string]any)
	zero := withKeywords["0"].(map[string]any)
	assert.Equal(t, []any{"a", "b"}, zero["news_ids"])
	assert.NotContains(t, withKeywords["-1"].(map[string]any), "keywords")

	w, body = serve(t, newFakeService(), "/topics/0")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["news_count"])

	w, _ = serve(t, newFakeService(), "/topics/9")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = serve(t, newFakeService(), "/topics/x")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
