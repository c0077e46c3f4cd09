package models

// WebSocket message types
const (
	EventNotification   = "notification"
	EventFeatureState   = "feature_state"
	EventSessionChanged = "session_changed"
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	FeatureProfile = "profile"
	FeatureChat    = "chat"
	FeatureSummary = "summary"
	FeatureReport  = "report"
)

const (
	StateIdle    = "IDLE"
	StateSending = "SENDING"
	StateSuccess = "SUCCESS"
	StateFailed  = "FAILED"
)

type FeatureStateEvent struct {
	Feature string `json:"feature"`
	State   string `json:"state"`
}

type SessionChangedEvent struct {
	Ready    bool   `json:"ready"`
	Identity string `json:"identity,omitempty"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error        APIError      `json:"error"`
	Notification *Notification `json:"notification,omitempty"`
}
