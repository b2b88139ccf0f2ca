package presto

// StatementStats contains the progress counters the engine reports with
// every poll response. The engine guarantees that, within one query, the
// numeric counters are non-decreasing across successive responses; the
// client stores each snapshot verbatim and never adjusts it.
type StatementStats struct {
	State             string `json:"state"`
	Queued            bool   `json:"queued"`
	Scheduled         bool   `json:"scheduled"`
	Nodes             int    `json:"nodes"`
	TotalSplits       int    `json:"totalSplits"`
	QueuedSplits      int    `json:"queuedSplits"`
	RunningSplits     int    `json:"runningSplits"`
	CompletedSplits   int    `json:"completedSplits"`
	CPUTimeMillis     int64  `json:"cpuTimeMillis"`
	WallTimeMillis    int64  `json:"wallTimeMillis"`
	QueuedTimeMillis  int64  `json:"queuedTimeMillis"`
	ElapsedTimeMillis int64  `json:"elapsedTimeMillis"`
	ProcessedRows     int64  `json:"processedRows"`
	ProcessedBytes    int64  `json:"processedBytes"`
	PeakMemoryBytes   int64  `json:"peakMemoryBytes"`
}

// QueryStats is the latest progress snapshot for a query, as sampled from
// the most recently parsed response. Before the first response it is the
// zero value.
type QueryStats struct {
	// QueryID is the server-issued id, constant across all snapshots of
	// one query.
	QueryID string

	StatementStats
}
