package constants

import "time"

const (
	// Request creation
	MinPreferredDates = 1
	MaxPreferredDates = 3

	// Release retry queue
	ReleaseSweepSchedule  = "@every 5m"
	ReleaseSweepBatchSize = 25
	ReleaseSweepLease     = 10 * time.Minute
	ReleaseSweepLockTTL   = 4 * time.Minute
	ReleaseSweepLockKey   = "viewings-service:release-sweep"
	ReleaseBaseRetryDelay = 15 * time.Minute
	ReleaseMaxRetryDelay  = 12 * time.Hour
	MaxReleaseAttempts    = 8

	// Release function call
	ReleaseFunctionTimeout = 15 * time.Second

	// Payment release modes (payment_release_mode flag)
	ReleaseModeFunction = "function"
	ReleaseModeStripe   = "stripe"

	// Stripe metadata
	StripeMetadataViewingRequestIDKey = "viewing_request_id"
	StripeMetadataGeneratedByKey      = "generated_by"

	// User-facing messages replacing the web app's toasts
	MsgScheduled       = "Viewing scheduled"
	MsgCancelled       = "Viewing request cancelled"
	MsgConfirmed       = "Viewing marked as completed"
	MsgReleaseDeferred = "Viewing confirmed. Payment release may take a moment."
	MsgCreated         = "Viewing request submitted"
)
