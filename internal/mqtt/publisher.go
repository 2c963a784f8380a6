package mqtt

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/gridsight/thermalwatch/internal/errors"
)

// Publisher publishes detection events on the configured topic. Events for
// a known transformer go to "{topic}/{transformerId}".
type Publisher struct {
	client Client
	topic  string
}

// NewPublisher creates a Publisher over client.
func NewPublisher(client Client, topic string) *Publisher {
	return &Publisher{client: client, topic: strings.TrimSuffix(topic, "/")}
}

// Topic returns the topic an event is published to.
func (p *Publisher) Topic(ev *DetectionEvent) string {
	if ev.TransformerID == "" {
		return p.topic
	}
	return p.topic + "/" + ev.TransformerID
}

// PublishDetection publishes rec as a DetectionEvent.
func (p *Publisher) PublishDetection(ctx context.Context, rec *entities.DetectionRecord) error {
	ev, err := NewDetectionEvent(rec)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryMQTTPublish).
			Context("operation", "decode_detections").
			Build()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryMQTTPublish).
			Context("operation", "marshal_event").
			Build()
	}
	if !p.client.IsConnected() {
		// Connect enforces its own cooldown between attempts
		if err := p.client.Connect(ctx); err != nil {
			return err
		}
	}
	return p.client.Publish(ctx, p.Topic(&ev), payload)
}
