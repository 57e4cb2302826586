package entity

// TranscriptFormat selects how a transcript artifact is rendered
type TranscriptFormat string

const (
	FormatText     TranscriptFormat = "txt"
	FormatMarkdown TranscriptFormat = "markdown"
	FormatPDF      TranscriptFormat = "pdf"
	FormatDOCX     TranscriptFormat = "docx"
)
