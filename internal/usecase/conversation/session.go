package conversation

import (
	"sync"

	"github.com/futig/formchat-backend/internal/entity"
)

// Session is the dialogue state of one caller. Every operation holds mu for its whole duration.
//
// While ASKING, cursor counts the questions emitted so far and records[cursor-1]
// is the question waiting for an answer when awaitingAnswer is set.
type Session struct {
	mu sync.Mutex

	id              string
	mode            entity.Mode
	records         []entity.QuestionRecord
	cursor          int
	awaitingAnswer  bool
	displayLanguage string
	source          *entity.SourceForm
	history         []entity.ChatMessage
}

func newSession(id string) *Session {
	return &Session{
		id:   id,
		mode: entity.ModeIdle,
	}
}

// endBatch leaves ASKING mode and drops the batch. History survives.
func (s *Session) endBatch() {
	s.mode = entity.ModeIdle
	s.records = nil
	s.cursor = 0
	s.awaitingAnswer = false
	s.source = nil
}

func (s *Session) reset() {
	s.endBatch()
	s.history = nil
}

func (s *Session) appendHistory(role, content string) {
	s.history = append(s.history, entity.ChatMessage{Role: role, Content: content})
}

// emit asks records[cursor], the question after the last one asked
func (s *Session) emit() string {
	question := s.records[s.cursor].Display
	s.cursor++
	s.awaitingAnswer = true
	s.appendHistory(entity.RoleAssistant, question)
	return question
}

func (s *Session) snapshot() *entity.SessionSnapshot {
	return &entity.SessionSnapshot{
		ID:              s.id,
		Mode:            s.mode,
		Cursor:          s.cursor,
		TotalQuestions:  len(s.records),
		AwaitingAnswer:  s.awaitingAnswer,
		DisplayLanguage: s.displayLanguage,
		HasSourceForm:   s.source != nil,
		HistoryLength:   len(s.history),
	}
}
