package application

// Analytics event names emitted by the logging and sync subsystem.
// Events are a side channel: emission failures never affect
// correctness of the write paths.
const (
	EventDuplicateCheckCacheHit  = "duplicate_check_cache_hit"
	EventDuplicateCheckCacheSkip = "duplicate_check_cache_skip"
	EventDuplicateCheckRemote    = "duplicate_check_remote"
	EventDuplicateDetected       = "duplicate_detected"
	EventCacheWarmed             = "cache_warmed"
	EventCacheWarmFailed         = "cache_warm_failed"
	EventCacheWriteFailed        = "cache_write_failed"
	EventCacheReadFailed         = "cache_read_failed"
	EventCacheExpired            = "cache_expired"
	EventSummaryFetchFailed      = "summary_fetch_failed"
	EventQueueAccepted           = "queue_accepted"
	EventQueueWarning            = "queue_warning"
	EventQueueRejected           = "queue_rejected"
	EventSyncCompleted           = "sync_completed"
	EventSyncPartialFailure      = "sync_partial_failure"
	EventSessionLogged           = "session_logged"
	EventQuickLogCompleted       = "quick_log_completed"
)
