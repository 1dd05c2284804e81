package routes

const (
	Health  = "/health"
	Metrics = "/metrics"

	idPattern = "{id:[0-9a-fA-F-]{36}}"

	Viewings         = "/api/v1/viewings"
	ViewingsTenant   = "/api/v1/viewings/tenant"
	ViewingsLandlord = "/api/v1/viewings/landlord"
	ViewingByID      = "/api/v1/viewings/" + idPattern
	ViewingSchedule  = "/api/v1/viewings/" + idPattern + "/schedule"
	ViewingCancel    = "/api/v1/viewings/" + idPattern + "/cancel"
	ViewingConfirm   = "/api/v1/viewings/" + idPattern + "/confirm"

	AdminViewings     = "/api/v1/admin/viewings"
	AdminViewingByID  = "/api/v1/admin/viewings/" + idPattern
	AdminReleaseRetry = "/api/v1/admin/viewings/" + idPattern + "/release/retry"
	AdminReleaseSweep = "/api/v1/admin/releases/sweep"
)
