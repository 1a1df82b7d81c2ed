package models

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDummyEchoesLastLine(t *testing.T) {
	d := NewDummyLLM("")

	out, err := d.Generate(context.Background(), "system stuff\n\nwrite an adder\n")
	require.NoError(t, err)
	assert.Equal(t, "Dummy response: write an adder", out)
}

type countingModel struct {
	calls int
	err   error
}

func (m *countingModel) Generate(_ context.Context, prompt string) (any, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return "completion for " + prompt, nil
}

func TestCachedLLMHitsCacheOnRepeat(t *testing.T) {
	inner := &countingModel{}
	cached := NewCachedLLM(inner, 8, time.Minute, "")

	first, err := cached.Generate(context.Background(), "same prompt")
	require.NoError(t, err)
	second, err := cached.Generate(context.Background(), "same prompt")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedLLMDoesNotCacheErrors(t *testing.T) {
	inner := &countingModel{err: errors.New("rate limited")}
	cached := NewCachedLLM(inner, 8, time.Minute, "")

	_, err := cached.Generate(context.Background(), "p")
	require.Error(t, err)

	inner.err = nil
	_, err = cached.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}
