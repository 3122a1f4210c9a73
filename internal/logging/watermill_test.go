// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
)

func TestWatermillAdapter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := NewWatermillAdapter(NewTestLogger(&buf)).
		With(watermill.LogFields{"subscriber": "interactions"})

	adapter.Error("handler failed", errors.New("decode"), watermill.LogFields{"message_uuid": "m-1"})

	out := buf.String()
	for _, want := range []string{`"subscriber":"interactions"`, `"message_uuid":"m-1"`, `"error":"decode"`, `"message":"handler failed"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}
