// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package logging

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// WatermillAdapter implements watermill.LoggerAdapter with zerolog.
type WatermillAdapter struct {
	logger zerolog.Logger
}

// NewWatermillAdapter wraps logger for watermill publishers and subscribers.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewWatermillAdapter(logger zerolog.Logger) *WatermillAdapter {
	return &WatermillAdapter{logger: logger}
}

func (a *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	event := a.logger.Error().Err(err)
	withFields(event, fields).Msg(msg)
}

func (a *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	withFields(a.logger.Info(), fields).Msg(msg)
}

func (a *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	withFields(a.logger.Debug(), fields).Msg(msg)
}

func (a *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	withFields(a.logger.Trace(), fields).Msg(msg)
}

// With returns an adapter that always adds fields.
func (a *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillAdapter{logger: a.logger.With().Fields(map[string]interface{}(fields)).Logger()}
}

func withFields(event *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	if len(fields) == 0 {
		return event
	}
	return event.Fields(map[string]interface{}(fields))
}

var _ watermill.LoggerAdapter = (*WatermillAdapter)(nil)
