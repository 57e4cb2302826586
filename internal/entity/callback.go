package entity

// CallbackEventType represents the type of callback event
type CallbackEventType string

const (
	CallbackEventTypeFinalResult CallbackEventType = "finalResult"
)

// CallbackEvent represents a callback event
type CallbackEvent struct {
	Event     CallbackEventType `json:"event"`
	Timestamp string            `json:"timestamp"` // ISO-8601 UTC
	Data      any               `json:"data"`
}

// CallbackFinalResultData represents data for the final result event
type CallbackFinalResultData struct {
	SessionID      string `json:"session_id"`
	DownloadLink   string `json:"download_link"`
	ArtifactHandle string `json:"artifact_handle"`
	QuestionCount  int    `json:"question_count"`
	FilledForm     bool   `json:"filled_form"`
}
