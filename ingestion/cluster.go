package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/khabar/cluster"
	"github.com/poiesic/khabar/core"
	"github.com/poiesic/khabar/store"
)

// clusterProcessor feeds the coordinator and re-fits topics over the whole
// store window when the coordinator asks for it.
type clusterProcessor struct {
	coordinator *cluster.Coordinator
	store       *store.Store
	logger      *slog.Logger
}

var _ processor = (*clusterProcessor)(nil)

func newClusterProcessor(coordinator *cluster.Coordinator, st *store.Store, logger *slog.Logger) (processor, error) {
	if coordinator == nil {
		return nil, fmt.Errorf("coordinator required")
	}
	if st == nil {
		return nil, fmt.Errorf("store required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &clusterProcessor{
		coordinator: coordinator,
		store:       st,
		logger:      logger.With("processor", "clustering"),
	}, nil
}

func (cp *clusterProcessor) process(ctx context.Context, items ...*core.Item) error {
	for _, item := range items {
		cp.coordinator.Add(item)
	}
	if !cp.coordinator.ShouldCluster() {
		return nil
	}

	window := cp.store.Items()
	cp.logger.Debug("re-clustering", "window", len(window), "pending", cp.coordinator.State().ItemsSinceLastCluster)
	return cp.coordinator.Cluster(ctx, window)
}
