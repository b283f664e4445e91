package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BarkinBalci/adclick-detector/internal/domain"
)

func TestEnvelope_SettlesOnce(t *testing.T) {
	var acks, nacks int
	env := NewEnvelope(&domain.AdClick{ReportID: "r-1"},
		func(context.Context) error { acks++; return nil },
		func(context.Context) error { nacks++; return nil },
	)

	assert.False(t, env.Settled())
	assert.NoError(t, env.Ack(context.Background()))
	assert.NoError(t, env.Nack(context.Background()))
	assert.NoError(t, env.Ack(context.Background()))

	assert.True(t, env.Settled())
	assert.Equal(t, 1, acks)
	assert.Equal(t, 0, nacks)
}

func TestEnvelope_ReturnsCallbackError(t *testing.T) {
	env := NewEnvelope(nil, nil, func(context.Context) error { return errors.New("visibility change failed") })

	assert.EqualError(t, env.Nack(context.Background()), "visibility change failed")
	assert.True(t, env.Settled())
}

func TestEnvelope_NilCallbacks(t *testing.T) {
	env := NewEnvelope(nil, nil, nil)

	assert.NoError(t, env.Ack(context.Background()))
	assert.True(t, env.Settled())
}
