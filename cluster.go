package presto

import (
	"context"
	"net/http"
)

// ClusterStats represents the cluster statistics returned by /v1/cluster.
type ClusterStats struct {
	RunningQueries    int     `json:"runningQueries"`
	BlockedQueries    int     `json:"blockedQueries"`
	QueuedQueries     int     `json:"queuedQueries"`
	ActiveWorkers     int     `json:"activeWorkers"`
	RunningDrivers    int     `json:"runningDrivers"`
	RunningTasks      int     `json:"runningTasks"`
	ReservedMemory    float64 `json:"reservedMemory"`
	TotalInputRows    int     `json:"totalInputRows"`
	TotalInputBytes   int     `json:"totalInputBytes"`
	TotalCPUTimeSecs  int     `json:"totalCpuTimeSecs"`
	AdjustedQueueSize int     `json:"adjustedQueueSize"`
}

// ClusterInfo retrieves cluster statistics from the /v1/cluster endpoint.
// The request goes through the same retrying transport as queries.
func (c *Conn) ClusterInfo(ctx context.Context) (*ClusterStats, error) {
	stats := new(ClusterStats)
	if _, err := c.client.roundTrip(ctx, "cluster", http.MethodGet, "v1/cluster", "", "", stats); err != nil {
		return nil, err
	}
	return stats, nil
}
