package anthropic

import (
	"context"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
)

type messagesFake struct {
	params anthropic.MessageNewParams
	resp   *anthropic.Message
	err    error
}

func (f *messagesFake) New(_ context.Context, body anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.params = body
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func TestNewGeneratorRequiresAPIKey(t *testing.T) {
	_, err := NewGenerator(Config{}, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestGenerateJoinsTextBlocks(t *testing.T) {
	fake := &messagesFake{resp: &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "Employees get "},
			{Type: "text", Text: "30 days."},
		},
	}}
	gen := newWithMessages(Config{}, fake, nil)

	out, err := gen.Generate(context.Background(), "Q: {query}", map[string]string{"query": "leave"})
	require.NoError(t, err)
	assert.Equal(t, "Employees get 30 days.", out)
	assert.Equal(t, anthropic.Model(defaultModel), fake.params.Model)
	assert.Equal(t, int64(defaultMaxTokens), fake.params.MaxTokens)
	require.Len(t, fake.params.Messages, 1)
}

func TestGenerateEmptyContent(t *testing.T) {
	gen := newWithMessages(Config{}, &messagesFake{resp: &anthropic.Message{}}, nil)
	_, err := gen.Generate(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestGenerateWrapsError(t *testing.T) {
	gen := newWithMessages(Config{}, &messagesFake{err: errors.New("overloaded")}, nil)
	_, err := gen.Generate(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.Contains(t, err.Error(), "overloaded")
}
