// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package eventprocessor

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/cache"
	"github.com/tomtom215/recserve/internal/metrics"
	"github.com/tomtom215/recserve/internal/recommend"
)

// Event outcomes, used as the result label of interaction_events_total.
const (
	ResultInvalidated = "invalidated"
	ResultIgnored     = "ignored"
	ResultDuplicate   = "duplicate"
	ResultMalformed   = "malformed"
	ResultError       = "error"
)

// Invalidator drops a user's cached recommendations.
type Invalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// InteractionRecorder appends an interaction to the store.
type InteractionRecorder interface {
	RecordInteraction(ctx context.Context, in recommend.Interaction) error
}

// InteractionHandler applies interaction events to the cache and store.
type InteractionHandler struct {
	invalidator  Invalidator
	recorder     InteractionRecorder
	deduper      *cache.Deduper
	invalidateOn map[recommend.InteractionType]struct{}
	logger       zerolog.Logger
}

// HandlerOption configures an InteractionHandler.
type HandlerOption func(*InteractionHandler)

// WithRecorder appends every valid interaction to the store before
// invalidating.
func WithRecorder(recorder InteractionRecorder) HandlerOption {
	return func(h *InteractionHandler) { h.recorder = recorder }
}

// WithDeduper suppresses messages whose UUID was already handled.
func WithDeduper(d *cache.Deduper) HandlerOption {
	return func(h *InteractionHandler) { h.deduper = d }
}

// NewInteractionHandler creates a handler invalidating on the given types.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewInteractionHandler(invalidator Invalidator, invalidateOn []string, logger zerolog.Logger, opts ...HandlerOption) (*InteractionHandler, error) {
	if invalidator == nil {
		return nil, errors.New("eventprocessor: invalidator is required")
	}
	set, err := invalidationSet(invalidateOn)
	if err != nil {
		return nil, err
	}

	h := &InteractionHandler{
		invalidator:  invalidator,
		invalidateOn: set,
		logger:       logger.With().Str("component", "interaction-handler").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle processes one message. Returning an error nacks it.
func (h *InteractionHandler) Handle(msg *message.Message) error {
	result, err := h.process(msg.Context(), msg.UUID, msg.Payload)
	metrics.InteractionEvents.WithLabelValues(result).Inc()
	return err
}

func (h *InteractionHandler) process(ctx context.Context, id string, payload []byte) (string, error) {
	if id != "" && h.deduper != nil && h.deduper.Seen(id) {
		return ResultDuplicate, nil
	}

	in, err := DecodeInteraction(payload)
	if err != nil {
		h.logger.Warn().Err(err).Str("message_uuid", id).Msg("dropping malformed interaction event")
		return ResultMalformed, nil
	}

	if h.recorder != nil {
		if err := h.recorder.RecordInteraction(ctx, in); err != nil {
			h.forget(id)
			return ResultError, fmt.Errorf("record interaction for %s: %w", in.UserID, err)
		}
	}

	if _, strong := h.invalidateOn[in.Type]; !strong {
		return ResultIgnored, nil
	}

	if err := h.invalidator.Invalidate(ctx, in.UserID); err != nil {
		h.forget(id)
		return ResultError, fmt.Errorf("invalidate %s: %w", in.UserID, err)
	}

	h.logger.Debug().
		Str("user_id", in.UserID).
		Str("article_id", in.ArticleID).
		Str("type", string(in.Type)).
		Msg("cache invalidated by interaction")
	return ResultInvalidated, nil
}

// forget lets a redelivery of a failed message through the deduper.
func (h *InteractionHandler) forget(id string) {
	if id != "" && h.deduper != nil {
		h.deduper.Forget(id)
	}
}
