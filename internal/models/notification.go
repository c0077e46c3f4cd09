package models

import "time"

const (
	SeveritySuccess = "success"
	SeverityError   = "error"
	SeverityInfo    = "info"
)

// NotificationTTL is how long a notification stays visible.
const NotificationTTL = 3 * time.Second

type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type NotificationsResponse struct {
	Notifications []Notification `json:"notifications"`
}

const (
	MsgProfileSaved        = "Profile saved successfully!"
	MsgProfileSaveFailed   = "Failed to save profile."
	MsgProfileLoadFailed   = "Failed to load your profile data."
	MsgLoggedOut           = "You have been logged out."
	MsgInvalidImage        = "Please upload a valid image file (PNG, JPG, etc.)."
	MsgServicesUnavailable = "Could not connect to essential services."
	MsgSummaryNeedsMetrics = "Please provide at least height and weight for an accurate summary."
	MsgReportImageMissing  = "Please upload a report image first."
	MsgRequestInFlight     = "Please wait for the current request to finish."
)
