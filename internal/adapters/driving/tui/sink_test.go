package tui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docscan/internal/core/domain"
)

func TestChannelSink_DropsWhenFull(t *testing.T) {
	sink := NewChannelSink(1)
	ctx := context.Background()

	require.NoError(t, sink.Send(ctx, domain.NewProcessingEvent("a")))
	require.NoError(t, sink.Send(ctx, domain.NewConvertingEvent("a")))

	event := <-sink.Events()
	assert.Equal(t, domain.ProgressProcessing, event.Kind)
	select {
	case e := <-sink.Events():
		t.Fatalf("unexpected event %v", e.Kind)
	default:
	}
}

func TestChannelSink_ZeroBufferStillQueuesOne(t *testing.T) {
	sink := NewChannelSink(0)

	require.NoError(t, sink.Send(context.Background(), domain.NewProcessingEvent("a")))

	assert.Len(t, sink.Events(), 1)
}
