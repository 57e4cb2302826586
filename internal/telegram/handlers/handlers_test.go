package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/futig/formchat-backend/internal/config"
	"github.com/futig/formchat-backend/internal/entity"
	"github.com/futig/formchat-backend/internal/pkg/validator"
	"github.com/futig/formchat-backend/internal/telegram/keyboard"
	"github.com/futig/formchat-backend/internal/telegram/render"
	"github.com/futig/formchat-backend/internal/telegram/state"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const chatID int64 = 42

type fakeAPI struct {
	mu        sync.Mutex
	messages  []tgbotapi.MessageConfig
	documents []tgbotapi.DocumentConfig
	callbacks []tgbotapi.CallbackConfig
	fileURL   string
	failSends int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSends > 0 {
		f.failSends--
		return tgbotapi.Message{}, errors.New("telegram unavailable")
	}
	switch v := c.(type) {
	case tgbotapi.MessageConfig:
		f.messages = append(f.messages, v)
	case tgbotapi.DocumentConfig:
		f.documents = append(f.documents, v)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.callbacks = append(f.callbacks, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	return f.fileURL + "/" + fileID, nil
}

func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.messages))
	for _, m := range f.messages {
		out = append(out, m.Text)
	}
	return out
}

type stubConversation struct {
	ingested    []*entity.Document
	ingestLang  string
	ingestReply string
	ingestErr   error

	turnTexts []string
	turn      *entity.TurnReply
	turnErr   error

	rephrase    string
	rephraseErr error

	snapshot    *entity.SessionSnapshot
	snapshotErr error

	sessionIDs []string
}

func (s *stubConversation) Ingest(_ context.Context, sessionID string, doc *entity.Document, language string) (string, error) {
	s.sessionIDs = append(s.sessionIDs, sessionID)
	s.ingested = append(s.ingested, doc)
	s.ingestLang = language
	return s.ingestReply, s.ingestErr
}

func (s *stubConversation) SubmitTurn(_ context.Context, sessionID, text, _ string) (*entity.TurnReply, error) {
	s.sessionIDs = append(s.sessionIDs, sessionID)
	s.turnTexts = append(s.turnTexts, text)
	return s.turn, s.turnErr
}

func (s *stubConversation) RephraseCurrent(_ context.Context, sessionID string) (string, error) {
	s.sessionIDs = append(s.sessionIDs, sessionID)
	return s.rephrase, s.rephraseErr
}

func (s *stubConversation) Snapshot(sessionID string) (*entity.SessionSnapshot, error) {
	s.sessionIDs = append(s.sessionIDs, sessionID)
	return s.snapshot, s.snapshotErr
}

type stubArtifacts map[string][]byte

func (s stubArtifacts) Open(handle string) (*entity.Artifact, []byte, error) {
	data, ok := s[handle]
	if !ok {
		return nil, nil, entity.ErrArtifactNotFound
	}
	return &entity.Artifact{Handle: handle}, data, nil
}

func newValidator() *validator.Validator {
	return validator.NewValidator(config.FileUploadConfig{MaxFileSize: 1024, MaxUploadSize: 2048})
}

func TestSessionID(t *testing.T) {
	assert.Equal(t, "tg-42", SessionID(42))
	assert.Equal(t, "tg--100123", SessionID(-100123))
}

func TestDocumentHandler(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/file-1", r.URL.Path)
		w.Write([]byte("What is your name?\nWhere do you live?\n"))
	}))
	defer server.Close()

	api := &fakeAPI{fileURL: server.URL}
	conv := &stubConversation{ingestReply: "Wie heißen Sie?"}
	prefs := state.NewPreferences(time.Hour, "english")
	prefs.SetLanguage(chatID, "german")
	h := NewDocumentHandler(api, conv, newValidator(), prefs, keyboard.NewBuilder(), 1024, zap.NewNop())

	err := h.Handle(context.Background(), &Message{
		ChatID:   chatID,
		Document: &tgbotapi.Document{FileID: "file-1", FileName: "questions.txt", FileSize: 38, MimeType: "text/plain"},
	})
	require.NoError(t, err)

	require.Len(t, conv.ingested, 1)
	assert.Equal(t, "questions.txt", conv.ingested[0].Name)
	assert.Equal(t, "What is your name?\nWhere do you live?\n", string(conv.ingested[0].Content))
	assert.Equal(t, "german", conv.ingestLang)
	assert.Equal(t, []string{"tg-42"}, conv.sessionIDs)

	require.Len(t, api.messages, 1)
	assert.Equal(t, "Wie heißen Sie?", api.messages[0].Text)
	assert.NotNil(t, api.messages[0].ReplyMarkup)
}

func TestDocumentHandler_Rejected(t *testing.T) {
	tests := []struct {
		name string
		doc  *tgbotapi.Document
		want string
	}{
		{name: "extension", doc: &tgbotapi.Document{FileID: "f", FileName: "form.docx", FileSize: 10}, want: render.ErrInvalidFile},
		{name: "size", doc: &tgbotapi.Document{FileID: "f", FileName: "form.pdf", FileSize: 4096}, want: render.ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			conv := &stubConversation{}
			h := NewDocumentHandler(api, conv, newValidator(), state.NewPreferences(time.Hour, "english"), keyboard.NewBuilder(), 1024, zap.NewNop())

			require.NoError(t, h.Handle(context.Background(), &Message{ChatID: chatID, Document: tt.doc}))
			assert.Empty(t, conv.ingested)
			assert.Equal(t, []string{tt.want}, api.texts())
		})
	}
}

func TestDocumentHandler_EmptyDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("\n\n"))
	}))
	defer server.Close()

	api := &fakeAPI{fileURL: server.URL}
	conv := &stubConversation{ingestErr: entity.ErrEmptyDocument}
	h := NewDocumentHandler(api, conv, newValidator(), state.NewPreferences(time.Hour, "english"), keyboard.NewBuilder(), 1024, zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), &Message{
		ChatID:   chatID,
		Document: &tgbotapi.Document{FileID: "f", FileName: "blank.txt", FileSize: 2},
	}))
	assert.Equal(t, []string{render.ErrEmptyDocument}, api.texts())
}

func TestFileDownloader_TooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 100))
	}))
	defer server.Close()

	d := newFileDownloader(&fakeAPI{fileURL: server.URL}, 10)
	_, err := d.Download(context.Background(), "big")
	assert.ErrorIs(t, err, entity.ErrFileTooLarge)
}

func TestTextHandler_NextQuestion(t *testing.T) {
	api := &fakeAPI{}
	conv := &stubConversation{turn: &entity.TurnReply{Reply: "Where do you live?", Mode: entity.ModeAsking}}
	h := NewTextHandler(api, conv, stubArtifacts{}, keyboard.NewBuilder(), zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), &Message{ChatID: chatID, Text: "Alice"}))

	assert.Equal(t, []string{"Alice"}, conv.turnTexts)
	require.Len(t, api.messages, 1)
	assert.Equal(t, "Where do you live?", api.messages[0].Text)
	assert.NotNil(t, api.messages[0].ReplyMarkup)
}

func TestTextHandler_IdleChat(t *testing.T) {
	api := &fakeAPI{}
	conv := &stubConversation{turn: &entity.TurnReply{Reply: "Hello there", Mode: entity.ModeIdle}}
	h := NewTextHandler(api, conv, stubArtifacts{}, keyboard.NewBuilder(), zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), &Message{ChatID: chatID, Text: "hi"}))

	require.Len(t, api.messages, 1)
	assert.Nil(t, api.messages[0].ReplyMarkup)
}

func TestTextHandler_CompletedSendsArtifact(t *testing.T) {
	api := &fakeAPI{}
	conv := &stubConversation{turn: &entity.TurnReply{
		Reply:        "Here are the questions and answers:",
		DownloadLink: "/download/qa_20260101T000000_abc.txt",
		Completed:    true,
		Mode:         entity.ModeIdle,
	}}
	artifacts := stubArtifacts{"qa_20260101T000000_abc.txt": []byte("Q1: a\nA1: b\n")}
	h := NewTextHandler(api, conv, artifacts, keyboard.NewBuilder(), zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), &Message{ChatID: chatID, Text: "Berlin"}))

	assert.Equal(t, []string{"Here are the questions and answers:"}, api.texts())
	require.Len(t, api.documents, 1)
	file, ok := api.documents[0].File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "qa_20260101T000000_abc.txt", file.Name)
	assert.Equal(t, "Q1: a\nA1: b\n", string(file.Bytes))
}

func TestTextHandler_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "empty answer", err: entity.ErrEmptyMessage, want: render.ErrEmptyMessage},
		{name: "gateway", err: fmt.Errorf("chat reply: %w", entity.ErrGateway), want: render.ErrServiceUnavailable},
		{name: "population", err: fmt.Errorf("finalize: %w", entity.ErrPopulation), want: render.ErrPopulation},
		{name: "unexpected", err: errors.New("boom"), want: render.ErrGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			h := NewTextHandler(api, &stubConversation{turnErr: tt.err}, stubArtifacts{}, keyboard.NewBuilder(), zap.NewNop())

			require.NoError(t, h.Handle(context.Background(), &Message{ChatID: chatID, Text: "x"}))
			assert.Equal(t, []string{tt.want}, api.texts())
		})
	}
}

func TestCommandHandler_Language(t *testing.T) {
	api := &fakeAPI{}
	prefs := state.NewPreferences(time.Hour, "english")
	h := NewCommandHandler(api, &stubConversation{}, newValidator(), prefs, keyboard.NewBuilder(), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, &Message{ChatID: chatID, Command: "language", CommandArgs: "german"}))
	assert.Equal(t, "german", prefs.Language(chatID))

	require.NoError(t, h.Handle(ctx, &Message{ChatID: chatID, Command: "language", CommandArgs: "<script>"}))
	assert.Equal(t, "german", prefs.Language(chatID))

	require.NoError(t, h.Handle(ctx, &Message{ChatID: chatID, Command: "language"}))

	assert.Equal(t, []string{
		render.RenderLanguageSet("german"),
		render.ErrInvalidLanguage,
		render.RenderLanguageCurrent("german"),
	}, api.texts())
	assert.NotNil(t, api.messages[2].ReplyMarkup, "language picker is attached")
}

func TestCommandHandler_Status(t *testing.T) {
	api := &fakeAPI{}
	conv := &stubConversation{snapshotErr: entity.ErrSessionNotFound}
	h := NewCommandHandler(api, conv, newValidator(), state.NewPreferences(time.Hour, "english"), keyboard.NewBuilder(), zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), &Message{ChatID: chatID, Command: "status"}))

	conv.snapshotErr = nil
	conv.snapshot = &entity.SessionSnapshot{Mode: entity.ModeAsking, Cursor: 2, TotalQuestions: 5, DisplayLanguage: "french"}
	require.NoError(t, h.Handle(context.Background(), &Message{ChatID: chatID, Command: "status"}))

	assert.Equal(t, []string{render.MsgStatusIdle, "📝 Question 2 of 5 (french)."}, api.texts())
	assert.Equal(t, []string{"tg-42", "tg-42"}, conv.sessionIDs)
}

func TestCommandHandler_Unknown(t *testing.T) {
	api := &fakeAPI{}
	h := NewCommandHandler(api, &stubConversation{}, newValidator(), state.NewPreferences(time.Hour, "english"), keyboard.NewBuilder(), zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), &Message{ChatID: chatID, Command: "cancel"}))
	assert.Equal(t, []string{render.ErrUnknownCommand}, api.texts())
}

func TestCallbackHandler(t *testing.T) {
	api := &fakeAPI{}
	conv := &stubConversation{rephrase: "In other words: what should we call you?"}
	prefs := state.NewPreferences(time.Hour, "english")
	h := NewCallbackHandler(api, conv, newValidator(), prefs, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, &Message{ChatID: chatID, CallbackID: "cb1", CallbackData: "rephrase:"}))
	require.NoError(t, h.Handle(ctx, &Message{ChatID: chatID, CallbackID: "cb2", CallbackData: "lang:spanish"}))
	require.NoError(t, h.Handle(ctx, &Message{ChatID: chatID, CallbackID: "cb3", CallbackData: "garbage"}))

	assert.Equal(t, []string{
		"In other words: what should we call you?",
		render.RenderLanguageSet("spanish"),
	}, api.texts())
	assert.Equal(t, "spanish", prefs.Language(chatID))
	assert.Len(t, api.callbacks, 3, "every click is answered")
}

func TestCallbackHandler_NoActiveQuestion(t *testing.T) {
	api := &fakeAPI{}
	conv := &stubConversation{rephraseErr: entity.ErrNoActiveQuestion}
	h := NewCallbackHandler(api, conv, newValidator(), state.NewPreferences(time.Hour, "english"), zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), &Message{ChatID: chatID, CallbackID: "cb", CallbackData: "rephrase:"}))
	assert.Equal(t, []string{render.ErrNoActiveQuestion}, api.texts())
}

func TestMessageSender_SendCriticalRetries(t *testing.T) {
	api := &fakeAPI{failSends: 2}
	s := NewMessageSender(api, zap.NewNop())
	s.retry = retryPolicy{attempts: 3, delay: time.Millisecond}

	require.NoError(t, s.SendCritical(context.Background(), chatID, "done", nil))
	assert.Equal(t, []string{"done"}, api.texts())

	api.failSends = 5
	assert.Error(t, s.SendCritical(context.Background(), chatID, "lost", nil))
}
