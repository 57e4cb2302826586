package entity

import (
	"bytes"
	"path/filepath"
	"strings"
	"time"
)

// Mode represents the conversation mode of a session
type Mode string

const (
	ModeIdle   Mode = "IDLE"   // Free-form chat
	ModeAsking Mode = "ASKING" // Question-answer collection in progress
)

// Chat roles used in history and LLM messages
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single conversation turn
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QuestionRecord holds everything known about one question of a batch.
// ID is the stable identifier (form field name or question text), Display is
// what the user sees, Answer is stored in the pivot language.
type QuestionRecord struct {
	ID      string `json:"id"`
	Display string `json:"display"`
	Answer  string `json:"answer"`
}

// FormField is one entry of the ordered identifier -> initial value mapping
type FormField struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Extraction is the ordered question list derived from a document
type Extraction struct {
	Fields []FormField
	// Fillable is set when Fields are the fillable form fields of the document
	Fillable bool
}

// Document is an uploaded document to derive questions from
type Document struct {
	Name        string
	ContentType string
	Content     []byte
}

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether the document is a PDF, by signature first and extension second
func (d *Document) IsPDF() bool {
	if bytes.HasPrefix(bytes.TrimLeft(d.Content, "\x00\t\r\n "), pdfMagic) {
		return true
	}
	return strings.EqualFold(filepath.Ext(d.Name), ".pdf") || d.ContentType == "application/pdf"
}

// SourceForm is the original fillable PDF of a batch
type SourceForm struct {
	Name    string
	Content []byte
}

// Artifact is a finalized, downloadable output
type Artifact struct {
	Handle      string    `json:"handle"`
	Path        string    `json:"-"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// TurnReply is the engine's answer to a chat turn
type TurnReply struct {
	Reply        string `json:"reply"`
	DownloadLink string `json:"download_link,omitempty"`
	Completed    bool   `json:"completed"`
	Mode         Mode   `json:"mode"`
}

// SessionSnapshot is a read-only view of a session
type SessionSnapshot struct {
	ID              string `json:"session_id"`
	Mode            Mode   `json:"mode"`
	Cursor          int    `json:"cursor"`
	TotalQuestions  int    `json:"total_questions"`
	AwaitingAnswer  bool   `json:"awaiting_answer"`
	DisplayLanguage string `json:"display_language"`
	HasSourceForm   bool   `json:"has_source_form"`
	HistoryLength   int    `json:"history_length"`
}
