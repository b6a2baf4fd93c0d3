package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingPublisher struct {
	subjects []string
	err      error
}

func (r *recordingPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	r.subjects = append(r.subjects, subject)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

func TestEmit_SwallowsPublishErrors(t *testing.T) {
	p := &recordingPublisher{err: errors.New("nats down")}

	assert.NotPanics(t, func() {
		Emit(context.Background(), p, AdminRequested, AdminRequestedEvent{Email: "u@iitk.ac.in"})
	})
	assert.Equal(t, []string{AdminRequested}, p.subjects)
}

func TestEmit_NilPublisher(t *testing.T) {
	assert.NotPanics(t, func() {
		Emit(context.Background(), nil, OTPIssued, OTPIssuedEvent{})
	})
}

func TestNopEventBus(t *testing.T) {
	var bus EventBus = NopEventBus{}
	assert.NoError(t, bus.Publish(context.Background(), MessageCreated, nil))
	assert.NoError(t, bus.Subscribe(MessageCreated, func(*Message) {}))
	assert.NoError(t, bus.QueueSubscribe(MessageCreated, "fanout", func(*Message) {}))
	assert.NoError(t, bus.Close())
}
