package translator

import (
	"context"
	"errors"
	"testing"

	"github.com/futig/formchat-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubLLM) Complete(_ context.Context, messages []entity.ChatMessage) (string, error) {
	s.prompts = append(s.prompts, messages[len(messages)-1].Content)
	return s.reply, s.err
}

func TestTranslator_PivotIsIdentity(t *testing.T) {
	llm := &stubLLM{reply: "unused"}
	tr := NewTranslator(llm, "english")

	for _, lang := range []string{"english", "English", " ENGLISH ", ""} {
		out, err := tr.ToTarget(context.Background(), "What is your name?", lang)
		require.NoError(t, err)
		assert.Equal(t, "What is your name?", out)

		out, err = tr.ToPivot(context.Background(), "Bob", lang)
		require.NoError(t, err)
		assert.Equal(t, "Bob", out)
	}

	assert.Empty(t, llm.prompts)
}

func TestTranslator_ToTarget(t *testing.T) {
	llm := &stubLLM{reply: "  ¿Cuál es su nombre?\n"}
	tr := NewTranslator(llm, "english")

	out, err := tr.ToTarget(context.Background(), "What is your name?", "spanish")
	require.NoError(t, err)
	// output is passed through verbatim
	assert.Equal(t, "  ¿Cuál es su nombre?\n", out)

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "into spanish")
	assert.Contains(t, llm.prompts[0], "Do not translate names, numerical values, or locations")
	assert.Contains(t, llm.prompts[0], "Text: What is your name?")
}

func TestTranslator_ToPivot(t *testing.T) {
	llm := &stubLLM{reply: "Madrid"}
	tr := NewTranslator(llm, "english")

	out, err := tr.ToPivot(context.Background(), "Madrid", "spanish")
	require.NoError(t, err)
	assert.Equal(t, "Madrid", out)

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "into English")
	assert.Contains(t, llm.prompts[0], "Text: Madrid")
}

func TestTranslator_GatewayError(t *testing.T) {
	gatewayErr := errors.Join(entity.ErrGateway, errors.New("connection refused"))
	tr := NewTranslator(&stubLLM{err: gatewayErr}, "english")

	_, err := tr.ToTarget(context.Background(), "Name?", "french")
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrGateway)
}
