// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package eventprocessor

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// NewNATSSubscriber creates a durable JetStream subscriber. Instances sharing
// the queue group split the subject between them.
func NewNATSSubscriber(cfg *Config, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Subscriber disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("Subscriber reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.MaxAckPending(cfg.MaxAckPending),
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.DeliverNew(),
	}

	// Binding requires the stream to exist; otherwise it is provisioned
	// from the subject name.
	autoProvision := true
	if cfg.StreamName != "" {
		subOpts = append(subOpts, natsgo.BindStream(cfg.StreamName))
		autoProvision = false
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    autoProvision,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}
	return sub, nil
}

// NewNATSPublisher creates a JetStream publisher for interaction events.
// Producers and integration tests use it; the server only consumes.
func NewNATSPublisher(cfg *Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL: cfg.URL,
		NatsOptions: []natsgo.Option{
			natsgo.RetryOnFailedConnect(true),
			natsgo.MaxReconnects(cfg.MaxReconnects),
			natsgo.ReconnectWait(cfg.ReconnectWait),
		},
		Marshaler: &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: cfg.StreamName == "",
			TrackMsgId:    true,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	return pub, nil
}

// NewInteractionMessage builds a message carrying the encoded interaction.
func NewInteractionMessage(payload []byte) *message.Message {
	return message.NewMessage(watermill.NewUUID(), payload)
}
