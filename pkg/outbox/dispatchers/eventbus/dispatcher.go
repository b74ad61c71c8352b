// Package eventbus bridges the outbox relay onto the in-process event bus.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iota-uz/orgchart/pkg/eventbus"
	"github.com/iota-uz/orgchart/pkg/outbox"
)

// Decoder turns a stored payload into the value subscribers expect.
type Decoder func(payload json.RawMessage) (any, error)

// JSON returns a Decoder that unmarshals into a fresh *T.
func JSON[T any]() Decoder {
	return func(payload json.RawMessage) (any, error) {
		v := new(T)
		if err := json.Unmarshal(payload, v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

type Dispatcher struct {
	bus      eventbus.EventBus
	decoders map[string]Decoder
}

func New(bus eventbus.EventBus, decoders map[string]Decoder) *Dispatcher {
	return &Dispatcher{
		bus:      bus,
		decoders: decoders,
	}
}

// Dispatch publishes (ctx, decoded) for topics with a decoder and
// (ctx, *outbox.Meta, json.RawMessage) otherwise. Handler errors and panics
// come back as errors so the relay retries.
func (d *Dispatcher) Dispatch(ctx context.Context, msg outbox.DispatchedMessage) error {
	decode, ok := d.decoders[msg.Meta.Topic]
	if !ok {
		return d.bus.PublishE(ctx, &msg.Meta, msg.Payload)
	}
	event, err := decode(msg.Payload)
	if err != nil {
		return fmt.Errorf("outbox: decode %s payload: %w", msg.Meta.Topic, err)
	}
	return d.bus.PublishE(ctx, event)
}
