package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settlement struct {
	tag     uint64
	outcome string
	requeue bool
}

type recordingAck struct {
	mu  sync.Mutex
	got []settlement
}

func (a *recordingAck) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.got = append(a.got, settlement{tag: tag, outcome: "ack"})
	return nil
}

func (a *recordingAck) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.got = append(a.got, settlement{tag: tag, outcome: "nack", requeue: requeue})
	return nil
}

func (a *recordingAck) Reject(tag uint64, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.got = append(a.got, settlement{tag: tag, outcome: "reject", requeue: requeue})
	return nil
}

func TestDeliverSettlesByOutcome(t *testing.T) {
	ack := &recordingAck{}
	msgs := make(chan amqp.Delivery, 3)
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("ok")}
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("poison")}
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte("flaky")}
	close(msgs)

	var seen []string
	handler := func(_ context.Context, body []byte) error {
		seen = append(seen, string(body))
		switch string(body) {
		case "poison":
			return Permanent(errors.New("bad payload"))
		case "flaky":
			return errors.New("store unavailable")
		}
		return nil
	}

	require.NoError(t, Deliver(context.Background(), "q", msgs, handler))
	assert.Equal(t, []string{"ok", "poison", "flaky"}, seen)
	assert.Equal(t, []settlement{
		{tag: 1, outcome: "ack"},
		{tag: 2, outcome: "reject"},
		{tag: 3, outcome: "nack", requeue: true},
	}, ack.got)
}

func TestDeliverStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Deliver(ctx, "q", make(chan amqp.Delivery), func(context.Context, []byte) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))

	cause := errors.New("unknown store")
	err := Permanent(cause)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "unknown store", err.Error())
	assert.False(t, IsPermanent(cause))
}
