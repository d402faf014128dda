package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishInvokesSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen []string
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.Subject)
		return nil
	})
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.Subject)
		return nil
	})
	d.Subscribe(EventTicketClosed, func(_ context.Context, e Event) error {
		seen = append(seen, "closed")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated, Subject: "T1"}))
	assert.Equal(t, []string{"first:T1", "second:T1"}, seen)
}

func TestPublishContinuesPastFailingHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")
	called := false
	d.Subscribe(EventMemberRemoved, func(context.Context, Event) error { return boom })
	d.Subscribe(EventMemberRemoved, func(context.Context, Event) error {
		called = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventMemberRemoved})
	assert.ErrorIs(t, err, boom)
	assert.True(t, called)
}
