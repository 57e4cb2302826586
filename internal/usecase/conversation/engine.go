package conversation

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/futig/formchat-backend/internal/config"
	"github.com/futig/formchat-backend/internal/entity"
	"github.com/futig/formchat-backend/internal/pkg/logger"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Engine runs the question-answer dialogue. A session is IDLE (free chat) until
// a document is ingested, then ASKING until the last question is answered and
// the batch is finalized.
type Engine struct {
	sessions       *Manager
	extractor      Extractor
	translator     Translator
	llm            LLMConnector
	finalizer      Finalizer
	callback       CallbackConnector
	downloadPrefix string
	logger         *zap.Logger
}

// NewEngine creates the conversation engine. callback may be nil.
func NewEngine(
	cfg config.ConversationConfig,
	sessions *Manager,
	extractor Extractor,
	translator Translator,
	llm LLMConnector,
	finalizer Finalizer,
	callback CallbackConnector,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		sessions:       sessions,
		extractor:      extractor,
		translator:     translator,
		llm:            llm,
		finalizer:      finalizer,
		callback:       callback,
		downloadPrefix: cfg.DownloadPrefix,
		logger:         logger,
	}
}

func (e *Engine) acquire(ctx context.Context, sessionID string) (context.Context, *Session) {
	s := e.sessions.Acquire(sessionID)
	return logger.WithSession(ctx, s.id), s
}

// Ingest starts a new batch from doc and returns the first question.
// Any batch in progress is discarded, together with the chat history.
func (e *Engine) Ingest(ctx context.Context, sessionID string, doc *entity.Document, displayLanguage string) (string, error) {
	ctx, s := e.acquire(ctx, sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	if strings.TrimSpace(displayLanguage) == "" {
		displayLanguage = e.translator.Pivot()
	}
	s.displayLanguage = strings.TrimSpace(displayLanguage)

	extraction, err := e.extractor.Extract(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("extract questions: %w", err)
	}
	if len(extraction.Fields) == 0 {
		return "", entity.ErrEmptyDocument
	}

	records := make([]entity.QuestionRecord, 0, len(extraction.Fields))
	for _, field := range extraction.Fields {
		display, err := e.translator.ToTarget(ctx, field.ID, s.displayLanguage)
		if err != nil {
			return "", fmt.Errorf("translate question: %w", err)
		}
		records = append(records, entity.QuestionRecord{
			ID:      field.ID,
			Display: display,
			Answer:  field.Value,
		})
	}

	s.mode = entity.ModeAsking
	s.records = records
	s.cursor = 0
	s.awaitingAnswer = false
	if extraction.Fillable {
		s.source = &entity.SourceForm{Name: doc.Name, Content: doc.Content}
	}

	ctxzap.Info(ctx, "batch started",
		zap.Int("questions", len(records)),
		zap.String("language", s.displayLanguage),
		zap.Bool("fillable", extraction.Fillable),
	)

	return s.emit(), nil
}

// SubmitTurn handles one user message. An empty declaredLanguage means the
// session's display language.
func (e *Engine) SubmitTurn(ctx context.Context, sessionID, text, declaredLanguage string) (*entity.TurnReply, error) {
	ctx, s := e.acquire(ctx, sessionID)

	reply, result, err := e.turn(ctx, s, text, declaredLanguage)
	if err != nil {
		return nil, err
	}

	// outside the session lock, a slow endpoint must not block the next turn
	if result != nil && e.callback != nil {
		e.callback.SendFinalResult(ctx, result)
	}

	return reply, nil
}

// turn runs one message under the session lock. result is set when the turn
// finalized the batch.
func (e *Engine) turn(ctx context.Context, s *Session, text, declaredLanguage string) (*entity.TurnReply, *entity.CallbackFinalResultData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(declaredLanguage) == "" {
		declaredLanguage = s.displayLanguage
	}

	switch {
	case s.mode != entity.ModeAsking:
		reply, err := e.chat(ctx, s, text)
		return reply, nil, err
	case s.awaitingAnswer:
		return e.answer(ctx, s, text, declaredLanguage)
	default:
		return e.requery(ctx, s)
	}
}

// chat forwards the whole history plus text, empty text included
func (e *Engine) chat(ctx context.Context, s *Session, text string) (*entity.TurnReply, error) {
	messages := append(slices.Clone(s.history), entity.ChatMessage{Role: entity.RoleUser, Content: text})

	reply, err := e.llm.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("chat reply: %w", err)
	}

	s.appendHistory(entity.RoleUser, text)
	s.appendHistory(entity.RoleAssistant, reply)

	return &entity.TurnReply{Reply: reply, Mode: s.mode}, nil
}

func (e *Engine) answer(ctx context.Context, s *Session, text, language string) (*entity.TurnReply, *entity.CallbackFinalResultData, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, entity.ErrEmptyMessage
	}

	stored, err := e.translator.ToPivot(ctx, text, language)
	if err != nil {
		return nil, nil, fmt.Errorf("translate answer: %w", err)
	}

	// the slot of the question just asked, re-answering overwrites it
	s.records[s.cursor-1].Answer = stored
	s.appendHistory(entity.RoleUser, text)
	s.awaitingAnswer = false

	if s.cursor == len(s.records) {
		return e.finish(ctx, s)
	}

	return &entity.TurnReply{Reply: s.emit(), Mode: s.mode}, nil, nil
}

// requery serves a turn that arrives while no answer is expected. Normally it
// repeats records[cursor] without moving the cursor. With every question
// answered it means finalization failed earlier, so it is attempted again.
func (e *Engine) requery(ctx context.Context, s *Session) (*entity.TurnReply, *entity.CallbackFinalResultData, error) {
	if s.cursor >= len(s.records) {
		return e.finish(ctx, s)
	}

	question := s.records[s.cursor].Display
	s.awaitingAnswer = true
	s.appendHistory(entity.RoleAssistant, question)

	return &entity.TurnReply{Reply: question, Mode: s.mode}, nil, nil
}

func (e *Engine) finish(ctx context.Context, s *Session) (*entity.TurnReply, *entity.CallbackFinalResultData, error) {
	artifact, err := e.finalizer.Finalize(ctx, s.records, s.source)
	if err != nil {
		ctxzap.Error(ctx, "finalization failed", zap.Error(err))
		return nil, nil, fmt.Errorf("finalize: %w", err)
	}

	link := e.downloadPrefix + artifact.Handle
	summary := buildSummary(s.records, link)
	result := &entity.CallbackFinalResultData{
		SessionID:      s.id,
		DownloadLink:   link,
		ArtifactHandle: artifact.Handle,
		QuestionCount:  len(s.records),
		FilledForm:     s.source != nil,
	}

	s.endBatch()
	s.appendHistory(entity.RoleAssistant, summary)

	ctxzap.Info(ctx, "batch finalized",
		zap.String("artifact", artifact.Handle),
		zap.Int("questions", result.QuestionCount),
	)

	return &entity.TurnReply{
		Reply:        summary,
		DownloadLink: link,
		Completed:    true,
		Mode:         s.mode,
	}, result, nil
}

// RephraseCurrent asks the LLM for a simpler wording of the pending question.
// It changes nothing in the session.
func (e *Engine) RephraseCurrent(ctx context.Context, sessionID string) (string, error) {
	ctx, s := e.acquire(ctx, sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != entity.ModeAsking || s.cursor < 1 || s.cursor > len(s.records) {
		return "", entity.ErrNoActiveQuestion
	}

	question := s.records[s.cursor-1].Display
	prompt := fmt.Sprintf(rephrasePrompt, s.displayLanguage, question)

	reply, err := e.llm.Complete(ctx, []entity.ChatMessage{{Role: entity.RoleUser, Content: prompt}})
	if err != nil {
		return "", fmt.Errorf("rephrase: %w", err)
	}

	return reply, nil
}

// Snapshot returns a read-only view of an existing session
func (e *Engine) Snapshot(sessionID string) (*entity.SessionSnapshot, error) {
	s, found := e.sessions.Lookup(sessionID)
	if !found {
		return nil, entity.ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

// ResolveSessionID returns the id an operation on sessionID actually uses
func (e *Engine) ResolveSessionID(sessionID string) string {
	return e.sessions.ResolveID(sessionID)
}
