package metrics

// Metric names follow Prometheus conventions:
// sessionhive_{component}_{metric}_{unit}.
const (
	MetricStoreOperationsTotal = "sessionhive_store_operations_total"
	MetricStoreOperationSecs   = "sessionhive_store_operation_duration_seconds"
	MetricStoreRecords         = "sessionhive_store_records"
	MetricStoreLiveRecords     = "sessionhive_store_live_records"
	MetricStoreReclaimedTotal  = "sessionhive_store_reclaimed_records_total"
	MetricStoreRebuildRuns     = "sessionhive_store_rebuild_runs_total"
)

// Label names.
const (
	LabelBackend   = "backend"
	LabelOperation = "operation"
	LabelStatus    = "status"
	LabelLoop      = "loop"
)

// Status label values.
const (
	StatusOK    = "ok"
	StatusMiss  = "miss"
	StatusError = "error"
)
