package entity

type ChatRequest struct {
	Message   string `json:"message"`
	Language  string `json:"language,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type RephraseRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

type ReplyResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id,omitempty"`
}

type ChatResponse struct {
	TurnReply
	SessionID string `json:"session_id,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
