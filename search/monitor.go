package search

import "github.com/poiesic/khabar/core"

// SearchMonitor provides hooks to observe the scoring process.
// Implement this interface to trace intermediate values of a query.
type SearchMonitor interface {
	Start(query string, titleWeight, summaryWeight float64)
	AfterQueryEmbedding(dimensions int)
	Skipped(item *core.Item, reason string)
	Scored(item *core.Item, semantic, exact, combined float64)
	Finish(results []*core.SemanticResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _, _ float64)         {}
func (n *noopMonitor) AfterQueryEmbedding(_ int)            {}
func (n *noopMonitor) Skipped(_ *core.Item, _ string)       {}
func (n *noopMonitor) Scored(_ *core.Item, _, _, _ float64) {}
func (n *noopMonitor) Finish(_ []*core.SemanticResult)      {}
