package types

// PromptRequest is an incoming chat request from the frontend.
type PromptRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Prompt    string `json:"prompt"`
}

// PromptResponse is the HTTP answer to a chat request.
type PromptResponse struct {
	Response       string            `json:"response"`
	UsedFilters    map[string]string `json:"usedFilters,omitempty"`
	Degraded       bool              `json:"degraded"`
	RequestID      string            `json:"requestId"`
	SessionID      string            `json:"sessionId"`
	ProcessingTime float64           `json:"processingTime"` // milliseconds
	Timestamp      string            `json:"timestamp"`
}

// TraceEvent is one pipeline stage trace entry, pushed to websocket
// clients so the frontend can show what the assistant is doing.
type TraceEvent struct {
	Stage     string `json:"stage"` // "guard", "route", "locations", "on_duty", "drug_info", "format"
	SessionID string `json:"sessionId,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Content   string `json:"content"`
	Level     string `json:"level,omitempty"` // "info", "warning", "error"
	Timestamp string `json:"timestamp"`
}
