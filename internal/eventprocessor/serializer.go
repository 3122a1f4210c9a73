// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package eventprocessor

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/recserve/internal/recommend"
	"github.com/tomtom215/recserve/internal/validation"
)

// EncodeInteraction validates and marshals an interaction event payload.
func EncodeInteraction(in *recommend.Interaction) ([]byte, error) {
	if verr := validation.ValidateStruct(in); verr != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, verr)
	}

	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal interaction: %w", err)
	}
	return data, nil
}

// DecodeInteraction unmarshals and validates an interaction event payload.
func DecodeInteraction(data []byte) (recommend.Interaction, error) {
	var in recommend.Interaction
	if err := json.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if verr := validation.ValidateStruct(&in); verr != nil {
		return in, fmt.Errorf("%w: %w", ErrMalformedEvent, verr)
	}
	return in, nil
}
