package api

import (
	"time"

	"github.com/poiesic/khabar"
	"github.com/poiesic/khabar/cluster"
	"github.com/poiesic/khabar/core"
)

type itemResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Published string `json:"published"`
	Summary   string `json:"summary"`
	Source    string `json:"source,omitempty"`
}

func newItemResponse(item *core.Item) itemResponse {
	return itemResponse{
		ID:        item.ID,
		Title:     item.Title,
		URL:       item.URL,
		Published: item.Published.Format(time.RFC3339),
		Summary:   item.Summary,
		Source:    item.Source,
	}
}

func newItemResponses(items []*core.Item) []itemResponse {
	out := make([]itemResponse, len(items))
	for i, item := range items {
		out[i] = newItemResponse(item)
	}
	return out
}

type semanticResultResponse struct {
	Article         itemResponse `json:"article"`
	SimilarityScore float64      `json:"similarity_score"`
	Confidence      string       `json:"confidence"`
}

type clusteringResponse struct {
	ItemsSinceLastCluster int     `json:"items_since_last_cluster"`
	NeedsClustering       bool    `json:"needs_clustering"`
	LastClusterTime       *string `json:"last_cluster_time"`
	Threshold             int     `json:"threshold"`
}

type statusResponse struct {
	FeedURL           string             `json:"feed_url"`
	TotalStored       int                `json:"total_articles_stored"`
	UniqueSeen        int                `json:"unique_articles_seen"`
	LatestContentHash string             `json:"latest_content_hash"`
	LastFetchTime     *string            `json:"last_fetch_time"`
	LastETag          string             `json:"last_etag"`
	LastModified      string             `json:"last_modified"`
	LatestArticle     *itemResponse      `json:"latest_article"`
	PollingActive     bool               `json:"polling_active"`
	Clustering        clusteringResponse `json:"clustering"`
}

func newStatusResponse(s khabar.Status) statusResponse {
	resp := statusResponse{
		FeedURL:           s.FeedURL,
		TotalStored:       s.TotalStored,
		UniqueSeen:        s.UniqueSeen,
		LatestContentHash: s.LatestContentHash,
		LastFetchTime:     timeOrNil(s.LastFetchTime),
		LastETag:          s.ETag,
		LastModified:      s.LastModified,
		PollingActive:     s.PollingActive,
		Clustering:        newClusteringResponse(s.Clustering),
	}
	if s.LatestItem != nil {
		latest := newItemResponse(s.LatestItem)
		resp.LatestArticle = &latest
	}
	return resp
}

func newClusteringResponse(s cluster.State) clusteringResponse {
	return clusteringResponse{
		ItemsSinceLastCluster: s.ItemsSinceLastCluster,
		NeedsClustering:       s.NeedsClustering,
		LastClusterTime:       timeOrNil(s.LastClusterTime),
		Threshold:             s.Threshold,
	}
}

func timeOrNil(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
