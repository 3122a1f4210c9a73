// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package validation

import (
	"strings"
	"testing"

	"github.com/tomtom215/recserve/internal/recommend"
)

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()

	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil || v1 != v2 {
		t.Error("GetValidator() should return one non-nil instance")
	}
}

type testRequest struct {
	UserID     string   `json:"user_id" validate:"required,identifier"`
	Limit      int      `json:"limit" validate:"omitempty,min=1,max=100"`
	Categories []string `json:"categories" validate:"max=3,dive,identifier"`
	Weight     *float64 `json:"diversity_weight,omitempty" validate:"omitempty,gte=0,lte=1"`
	Mode       string   `json:"mode" validate:"omitempty,oneof=fast full"`
	Internal   string   `json:"-" validate:"max=2"`
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	half, two := 0.5, 2.0
	tests := []struct {
		name      string
		input     testRequest
		wantField string
		wantMsg   string
	}{
		{name: "valid", input: testRequest{UserID: "u-1", Limit: 10, Categories: []string{"tech"}, Weight: &half}},
		{name: "zero limit allowed", input: testRequest{UserID: "u-1"}},
		{name: "missing user", input: testRequest{}, wantField: "user_id", wantMsg: "user_id is required"},
		{name: "user with space", input: testRequest{UserID: "u 1"}, wantField: "user_id", wantMsg: "printable"},
		{name: "user too long", input: testRequest{UserID: strings.Repeat("x", 129)}, wantField: "user_id", wantMsg: "1-128"},
		{name: "limit too big", input: testRequest{UserID: "u", Limit: 101}, wantField: "limit", wantMsg: "limit must be at most 100"},
		{name: "weight out of range", input: testRequest{UserID: "u", Weight: &two}, wantField: "diversity_weight", wantMsg: "less than or equal to 1"},
		{name: "bad category", input: testRequest{UserID: "u", Categories: []string{"ok", ""}}, wantField: "categories[1]"},
		{name: "too many categories", input: testRequest{UserID: "u", Categories: []string{"a", "b", "c", "d"}}, wantField: "categories"},
		{name: "oneof", input: testRequest{UserID: "u", Mode: "slow"}, wantField: "mode", wantMsg: "mode must be one of: fast full"},
		{name: "json dash keeps go name", input: testRequest{UserID: "u", Internal: "long"}, wantField: "Internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() expected an error")
			}
			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %d: %v", len(errs), err)
			}
			if errs[0].Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", errs[0].Field(), tt.wantField)
			}
			if tt.wantMsg != "" && !strings.Contains(errs[0].Error(), tt.wantMsg) {
				t.Errorf("Error() = %q, want mention of %q", errs[0].Error(), tt.wantMsg)
			}
		})
	}
}

func TestValidateStruct_Interaction(t *testing.T) {
	t.Parallel()

	valid := recommend.Interaction{UserID: "u1", ArticleID: "a1", Type: recommend.InteractionLike}
	if err := ValidateStruct(&valid); err != nil {
		t.Fatalf("valid interaction rejected: %v", err)
	}

	invalid := recommend.Interaction{UserID: "u1", Type: "clap"}
	err := ValidateStruct(&invalid)
	if err == nil {
		t.Fatal("invalid interaction accepted")
	}
	fields := map[string]bool{}
	for _, e := range err.Errors() {
		fields[e.Field()] = true
	}
	if !fields["article_id"] || !fields["type"] {
		t.Errorf("expected article_id and type errors, got %v", err)
	}
}

func TestToAPIError(t *testing.T) {
	t.Parallel()

	single := ValidateStruct(&testRequest{})
	apiErr := single.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" || apiErr.Message != "user_id is required" {
		t.Errorf("single ToAPIError() = %+v", apiErr)
	}
	if apiErr.Details["field"] != "user_id" {
		t.Errorf("single details = %v", apiErr.Details)
	}

	multi := ValidateStruct(&testRequest{Limit: 500})
	apiErr = multi.ToAPIError()
	if !strings.Contains(apiErr.Message, "user_id:") || !strings.Contains(apiErr.Message, "limit:") {
		t.Errorf("multi ToAPIError() message = %q", apiErr.Message)
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Errorf("multi details = %v", apiErr.Details)
	}

	empty := &RequestValidationError{}
	if empty.Error() != "validation failed" || empty.ToAPIError().Message != "Validation failed" {
		t.Error("empty RequestValidationError should use the generic message")
	}
}
