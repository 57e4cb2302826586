package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/futig/formchat-backend/internal/config"
	"github.com/futig/formchat-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   [][]entity.ChatMessage
}

func (s *stubLLM) Complete(_ context.Context, messages []entity.ChatMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, messages)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "ok", nil
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

type stubExtractor struct {
	extraction *entity.Extraction
	err        error
}

func (s *stubExtractor) Extract(_ context.Context, _ *entity.Document) (*entity.Extraction, error) {
	return s.extraction, s.err
}

// fakeTranslator marks translated text so tests can tell both directions apart
type fakeTranslator struct {
	mu        sync.Mutex
	targetErr error
	pivotErr  error
	toTarget  int
	toPivot   int
}

func (f *fakeTranslator) Pivot() string { return "english" }

func (f *fakeTranslator) IsPivot(language string) bool {
	language = strings.TrimSpace(language)
	return language == "" || strings.EqualFold(language, "english")
}

func (f *fakeTranslator) ToTarget(_ context.Context, text, language string) (string, error) {
	if f.IsPivot(language) {
		return text, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toTarget++
	if f.targetErr != nil {
		return "", f.targetErr
	}
	return fmt.Sprintf("[%s] %s", language, text), nil
}

func (f *fakeTranslator) ToPivot(_ context.Context, text, language string) (string, error) {
	if f.IsPivot(language) {
		return text, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toPivot++
	if f.pivotErr != nil {
		return "", f.pivotErr
	}
	return "en:" + text, nil
}

type stubFinalizer struct {
	mu      sync.Mutex
	errs    []error
	records [][]entity.QuestionRecord
	sources []*entity.SourceForm
}

func (s *stubFinalizer) Finalize(_ context.Context, records []entity.QuestionRecord, source *entity.SourceForm) (*entity.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	s.records = append(s.records, append([]entity.QuestionRecord(nil), records...))
	s.sources = append(s.sources, source)
	return &entity.Artifact{Handle: fmt.Sprintf("qa_%d.txt", len(s.records))}, nil
}

type stubCallback struct {
	mu     sync.Mutex
	events []*entity.CallbackFinalResultData
}

func (s *stubCallback) SendFinalResult(_ context.Context, data *entity.CallbackFinalResultData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, data)
}

type fixture struct {
	engine     *Engine
	llm        *stubLLM
	extractor  *stubExtractor
	translator *fakeTranslator
	finalizer  *stubFinalizer
	callback   *stubCallback
}

func newFixture(ids ...string) *fixture {
	fields := make([]entity.FormField, len(ids))
	for i, id := range ids {
		fields[i] = entity.FormField{ID: id}
	}

	f := &fixture{
		llm:        &stubLLM{},
		extractor:  &stubExtractor{extraction: &entity.Extraction{Fields: fields}},
		translator: &fakeTranslator{},
		finalizer:  &stubFinalizer{},
		callback:   &stubCallback{},
	}
	cfg := config.ConversationConfig{
		PivotLanguage:    "english",
		DefaultSessionID: "default",
		SessionTTL:       time.Hour,
		DownloadPrefix:   "/download/",
	}
	f.engine = NewEngine(cfg, NewManager(cfg.SessionTTL, cfg.DefaultSessionID),
		f.extractor, f.translator, f.llm, f.finalizer, f.callback, zap.NewNop())
	return f
}

var textDoc = &entity.Document{Name: "questions.txt", Content: []byte("ignored by the stub extractor")}

func (f *fixture) session(t *testing.T, id string) *Session {
	t.Helper()
	s, ok := f.engine.sessions.Lookup(id)
	require.True(t, ok)
	return s
}

func (f *fixture) snapshot(t *testing.T, id string) *entity.SessionSnapshot {
	t.Helper()
	snap, err := f.engine.Snapshot(id)
	require.NoError(t, err)
	return snap
}

func TestEngine_ThreeQuestionsInPivotLanguage(t *testing.T) {
	f := newFixture("What is your name?", "How old are you?", "Where do you live?")
	ctx := context.Background()

	first, err := f.engine.Ingest(ctx, "", textDoc, "english")
	require.NoError(t, err)
	assert.Equal(t, "What is your name?", first)

	var replies []*entity.TurnReply
	for _, answer := range []string{"a", "b", "c"} {
		reply, err := f.engine.SubmitTurn(ctx, "", answer, "")
		require.NoError(t, err)
		replies = append(replies, reply)
	}

	assert.Equal(t, "How old are you?", replies[0].Reply)
	assert.Equal(t, "Where do you live?", replies[1].Reply)
	assert.False(t, replies[1].Completed)

	final := replies[2]
	assert.True(t, final.Completed)
	assert.Equal(t, entity.ModeIdle, final.Mode)
	assert.Equal(t, "/download/qa_1.txt", final.DownloadLink)
	assert.Equal(t, "Here are the questions and answers:\n"+
		"1. Q: What is your name?\n   A: a\n"+
		"2. Q: How old are you?\n   A: b\n"+
		"3. Q: Where do you live?\n   A: c\n"+
		"\nYou can download the questions and answers here: /download/qa_1.txt", final.Reply)

	require.Len(t, f.finalizer.records, 1)
	assert.Equal(t, []entity.QuestionRecord{
		{ID: "What is your name?", Display: "What is your name?", Answer: "a"},
		{ID: "How old are you?", Display: "How old are you?", Answer: "b"},
		{ID: "Where do you live?", Display: "Where do you live?", Answer: "c"},
	}, f.finalizer.records[0])
	assert.Nil(t, f.finalizer.sources[0])

	snap := f.snapshot(t, "default")
	assert.Equal(t, entity.ModeIdle, snap.Mode)
	assert.Zero(t, snap.Cursor)
	assert.Zero(t, snap.TotalQuestions)
	assert.False(t, snap.AwaitingAnswer)
	// q1 a q2 b q3 c summary
	assert.Equal(t, 7, snap.HistoryLength)

	assert.Zero(t, f.translator.toTarget)
	assert.Zero(t, f.translator.toPivot)
	require.Len(t, f.callback.events, 1)
	assert.Equal(t, "default", f.callback.events[0].SessionID)
	assert.Equal(t, 3, f.callback.events[0].QuestionCount)
}

func TestEngine_TranslatedFormRoundTrip(t *testing.T) {
	f := newFixture()
	f.extractor.extraction = &entity.Extraction{
		Fields:   []entity.FormField{{ID: "Q1|Name"}, {ID: "Q2|DOB"}},
		Fillable: true,
	}
	doc := &entity.Document{Name: "form.pdf", Content: []byte("%PDF-form")}
	ctx := context.Background()

	first, err := f.engine.Ingest(ctx, "s1", doc, "spanish")
	require.NoError(t, err)
	assert.Equal(t, "[spanish] Q1|Name", first)

	reply, err := f.engine.SubmitTurn(ctx, "s1", "Roberto", "")
	require.NoError(t, err)
	assert.Equal(t, "[spanish] Q2|DOB", reply.Reply)

	reply, err = f.engine.SubmitTurn(ctx, "s1", "uno de mayo", "spanish")
	require.NoError(t, err)
	assert.True(t, reply.Completed)

	require.Len(t, f.finalizer.records, 1)
	got := f.finalizer.records[0]
	assert.Equal(t, "Q1|Name", got[0].ID)
	assert.Equal(t, "en:Roberto", got[0].Answer)
	assert.Equal(t, "Q2|DOB", got[1].ID)
	assert.Equal(t, "en:uno de mayo", got[1].Answer)

	require.NotNil(t, f.finalizer.sources[0])
	assert.Equal(t, doc.Content, f.finalizer.sources[0].Content)
	assert.True(t, f.callback.events[0].FilledForm)
}

func TestEngine_RephraseDoesNotMutate(t *testing.T) {
	f := newFixture("Q1|Name", "Q2|DOB")
	ctx := context.Background()

	_, err := f.engine.Ingest(ctx, "s", textDoc, "")
	require.NoError(t, err)
	before := f.snapshot(t, "s")

	f.llm.replies = []string{"What should we call you?", "Tell us your name."}
	first, err := f.engine.RephraseCurrent(ctx, "s")
	require.NoError(t, err)
	second, err := f.engine.RephraseCurrent(ctx, "s")
	require.NoError(t, err)

	assert.Equal(t, "What should we call you?", first)
	assert.Equal(t, "Tell us your name.", second)
	assert.Equal(t, before, f.snapshot(t, "s"))

	require.Len(t, f.llm.calls, 2)
	prompt := f.llm.calls[0][0].Content
	assert.True(t, strings.HasPrefix(prompt, "Rephrase"))
	assert.Contains(t, prompt, "Reply in english")
	assert.True(t, strings.HasSuffix(prompt, "Text: Q1|Name"))
}

func TestEngine_RephraseWithoutActiveQuestion(t *testing.T) {
	f := newFixture("Q1")

	_, err := f.engine.RephraseCurrent(context.Background(), "nobody")
	assert.ErrorIs(t, err, entity.ErrNoActiveQuestion)
	assert.Empty(t, f.llm.calls)
}

func TestEngine_IngestDiscardsBatchInProgress(t *testing.T) {
	f := newFixture("old 1", "old 2", "old 3")
	ctx := context.Background()

	_, err := f.engine.Ingest(ctx, "s", textDoc, "")
	require.NoError(t, err)
	_, err = f.engine.SubmitTurn(ctx, "s", "stale answer", "")
	require.NoError(t, err)

	f.extractor.extraction = &entity.Extraction{Fields: []entity.FormField{{ID: "new 1"}, {ID: "new 2"}}}
	first, err := f.engine.Ingest(ctx, "s", textDoc, "")
	require.NoError(t, err)
	assert.Equal(t, "new 1", first)

	snap := f.snapshot(t, "s")
	assert.Equal(t, 1, snap.Cursor)
	assert.Equal(t, 2, snap.TotalQuestions)
	assert.Equal(t, 1, snap.HistoryLength)

	_, err = f.engine.SubmitTurn(ctx, "s", "x", "")
	require.NoError(t, err)
	reply, err := f.engine.SubmitTurn(ctx, "s", "y", "")
	require.NoError(t, err)
	require.True(t, reply.Completed)

	require.Len(t, f.finalizer.records, 1)
	for _, r := range f.finalizer.records[0] {
		assert.NotEqual(t, "stale answer", r.Answer)
		assert.True(t, strings.HasPrefix(r.ID, "new"))
	}
}

func TestEngine_RequeryIsIdempotent(t *testing.T) {
	f := newFixture("Q1", "Q2", "Q3")
	ctx := context.Background()

	_, err := f.engine.Ingest(ctx, "s", textDoc, "")
	require.NoError(t, err)

	s := f.session(t, "s")
	s.awaitingAnswer = false

	for i := 0; i < 3; i++ {
		reply, err := f.engine.SubmitTurn(ctx, "s", "ignored", "")
		require.NoError(t, err)
		// records[cursor] is repeated, the cursor does not move
		assert.Equal(t, "Q2", reply.Reply)

		snap := f.snapshot(t, "s")
		assert.Equal(t, 1, snap.Cursor)
		assert.True(t, snap.AwaitingAnswer)
		s.awaitingAnswer = false
	}

	for _, r := range s.records {
		assert.Empty(t, r.Answer)
	}
}

func TestEngine_ReanswerOverwritesSlot(t *testing.T) {
	f := newFixture("Q1", "Q2", "Q3")
	ctx := context.Background()

	_, err := f.engine.Ingest(ctx, "s", textDoc, "")
	require.NoError(t, err)
	reply, err := f.engine.SubmitTurn(ctx, "s", "first", "")
	require.NoError(t, err)
	assert.Equal(t, "Q2", reply.Reply)

	// Q1 pending again, as after the user asked for a rephrase of it
	s := f.session(t, "s")
	s.cursor, s.awaitingAnswer = 1, true

	_, err = f.engine.SubmitTurn(ctx, "s", "second", "")
	require.NoError(t, err)

	require.Len(t, s.records, 3)
	assert.Equal(t, "second", s.records[0].Answer)
	assert.Empty(t, s.records[1].Answer)
	assert.Equal(t, 2, s.cursor)
}

func TestEngine_EmptyAnswerRejectedOnlyWhileAsking(t *testing.T) {
	f := newFixture("Q1")
	ctx := context.Background()

	reply, err := f.engine.SubmitTurn(ctx, "s", "", "")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Reply)
	require.Len(t, f.llm.calls, 1)
	assert.Equal(t, "", f.llm.calls[0][0].Content)

	_, err = f.engine.Ingest(ctx, "s", textDoc, "")
	require.NoError(t, err)
	before := f.snapshot(t, "s")

	_, err = f.engine.SubmitTurn(ctx, "s", "   ", "")
	assert.ErrorIs(t, err, entity.ErrEmptyMessage)
	assert.Equal(t, before, f.snapshot(t, "s"))
}

func TestEngine_IdleChatSendsHistory(t *testing.T) {
	f := newFixture()
	f.llm.replies = []string{"Hi!", "Sure."}
	ctx := context.Background()

	_, err := f.engine.SubmitTurn(ctx, "s", "hello", "")
	require.NoError(t, err)
	reply, err := f.engine.SubmitTurn(ctx, "s", "help me", "")
	require.NoError(t, err)
	assert.Equal(t, "Sure.", reply.Reply)
	assert.Equal(t, entity.ModeIdle, reply.Mode)

	require.Len(t, f.llm.calls, 2)
	assert.Equal(t, []entity.ChatMessage{
		{Role: entity.RoleUser, Content: "hello"},
		{Role: entity.RoleAssistant, Content: "Hi!"},
		{Role: entity.RoleUser, Content: "help me"},
	}, f.llm.calls[1])
	assert.Equal(t, 4, f.snapshot(t, "s").HistoryLength)
}

func TestEngine_GatewayFailuresPropagate(t *testing.T) {
	gatewayErr := fmt.Errorf("%w: connection refused", entity.ErrGateway)
	ctx := context.Background()

	t.Run("chat", func(t *testing.T) {
		f := newFixture()
		f.llm.err = gatewayErr

		_, err := f.engine.SubmitTurn(ctx, "s", "hello", "")
		assert.ErrorIs(t, err, entity.ErrGateway)
		assert.Zero(t, f.snapshot(t, "s").HistoryLength)
	})

	t.Run("question translation", func(t *testing.T) {
		f := newFixture("Q1", "Q2")
		f.translator.targetErr = gatewayErr

		_, err := f.engine.Ingest(ctx, "s", textDoc, "french")
		assert.ErrorIs(t, err, entity.ErrGateway)

		snap := f.snapshot(t, "s")
		assert.Equal(t, entity.ModeIdle, snap.Mode)
		assert.Zero(t, snap.TotalQuestions)
	})

	t.Run("answer translation", func(t *testing.T) {
		f := newFixture("Q1", "Q2")
		_, err := f.engine.Ingest(ctx, "s", textDoc, "french")
		require.NoError(t, err)
		before := f.snapshot(t, "s")

		f.translator.pivotErr = gatewayErr
		_, err = f.engine.SubmitTurn(ctx, "s", "Jean", "")
		assert.ErrorIs(t, err, entity.ErrGateway)
		assert.Equal(t, before, f.snapshot(t, "s"))
		assert.Empty(t, f.session(t, "s").records[0].Answer)
	})
}

func TestEngine_EmptyDocument(t *testing.T) {
	f := newFixture()

	_, err := f.engine.Ingest(context.Background(), "s", textDoc, "")
	assert.ErrorIs(t, err, entity.ErrEmptyDocument)
	assert.Equal(t, entity.ModeIdle, f.snapshot(t, "s").Mode)
}

func TestEngine_FinalizeFailureIsRetried(t *testing.T) {
	f := newFixture("Q1", "Q2")
	f.finalizer.errs = []error{fmt.Errorf("%w: no field named %q", entity.ErrPopulation, "Q2")}
	ctx := context.Background()

	_, err := f.engine.Ingest(ctx, "s", textDoc, "")
	require.NoError(t, err)
	_, err = f.engine.SubmitTurn(ctx, "s", "a", "")
	require.NoError(t, err)

	_, err = f.engine.SubmitTurn(ctx, "s", "b", "")
	require.ErrorIs(t, err, entity.ErrPopulation)

	snap := f.snapshot(t, "s")
	assert.Equal(t, entity.ModeAsking, snap.Mode)
	assert.Equal(t, 2, snap.Cursor)
	assert.False(t, snap.AwaitingAnswer)
	assert.Empty(t, f.callback.events)

	reply, err := f.engine.SubmitTurn(ctx, "s", "anything", "")
	require.NoError(t, err)
	assert.True(t, reply.Completed)
	assert.Equal(t, "b", f.finalizer.records[0][1].Answer)
}

func TestEngine_SessionsAreIndependent(t *testing.T) {
	f := newFixture("Q1", "Q2", "Q3")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := f.engine.Ingest(ctx, id, textDoc, ""); err != nil {
				errs <- err
				return
			}
			for _, answer := range []string{id + "-a", id + "-b", id + "-c"} {
				if _, err := f.engine.SubmitTurn(ctx, id, answer, ""); err != nil {
					errs <- err
					return
				}
			}
		}(fmt.Sprintf("s%d", i))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	require.Len(t, f.finalizer.records, 10)
	for _, records := range f.finalizer.records {
		owner := strings.TrimSuffix(records[0].Answer, "-a")
		assert.Equal(t, owner+"-b", records[1].Answer)
		assert.Equal(t, owner+"-c", records[2].Answer)
	}
}

func TestEngine_ConcurrentTurnsOnOneSession(t *testing.T) {
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = fmt.Sprintf("Q%d", i+1)
	}
	f := newFixture(ids...)
	ctx := context.Background()

	_, err := f.engine.Ingest(ctx, "shared", textDoc, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.engine.SubmitTurn(ctx, "shared", "answer", "")
		}()
	}
	wg.Wait()

	snap := f.snapshot(t, "shared")
	assert.Equal(t, 26, snap.Cursor)
	assert.True(t, snap.AwaitingAnswer)
}

func TestEngine_SnapshotUnknownSession(t *testing.T) {
	f := newFixture()

	_, err := f.engine.Snapshot("missing")
	assert.True(t, errors.Is(err, entity.ErrSessionNotFound))
}

type blockingCallback struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingCallback) SendFinalResult(_ context.Context, _ *entity.CallbackFinalResultData) {
	close(b.entered)
	<-b.release
}

func TestEngine_SlowCallbackDoesNotHoldSession(t *testing.T) {
	f := newFixture("Q1")
	cb := &blockingCallback{entered: make(chan struct{}), release: make(chan struct{})}
	f.engine.callback = cb
	ctx := context.Background()

	_, err := f.engine.Ingest(ctx, "s", textDoc, "")
	require.NoError(t, err)

	done := make(chan *entity.TurnReply, 1)
	go func() {
		reply, err := f.engine.SubmitTurn(ctx, "s", "a", "")
		assert.NoError(t, err)
		done <- reply
	}()

	select {
	case <-cb.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not called")
	}

	// the session is already IDLE and usable while the callback is in flight
	snap := f.snapshot(t, "s")
	assert.Equal(t, entity.ModeIdle, snap.Mode)
	f.llm.replies = []string{"hello"}
	reply, err := f.engine.SubmitTurn(ctx, "s", "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", reply.Reply)

	close(cb.release)
	select {
	case completed := <-done:
		assert.True(t, completed.Completed)
	case <-time.After(2 * time.Second):
		t.Fatal("completing turn did not return")
	}
}
