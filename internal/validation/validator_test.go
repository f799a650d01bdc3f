// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/marquee/internal/models"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

func TestValidateStruct_SearchRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     SearchRequest
		wantField string
	}{
		{name: "empty request", input: SearchRequest{}},
		{name: "all filters", input: SearchRequest{TitleContains: "venom", Year: 2018, Cast: "Tom Hardy", Genre: "Action", Page: 2, PageSize: 50}},
		{name: "negative page", input: SearchRequest{Page: -1}, wantField: "page"},
		{name: "negative page size", input: SearchRequest{PageSize: -5}, wantField: "page_size"},
		{name: "negative year", input: SearchRequest{Year: -1}, wantField: "year"},
		{name: "huge title", input: SearchRequest{TitleContains: strings.Repeat("x", 257)}, wantField: "title_contains"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			verr := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if verr != nil {
					t.Errorf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatalf("ValidateStruct() = nil, want failure on %s", tt.wantField)
			}
			if got := verr.Errors()[0].Field(); got != tt.wantField {
				t.Errorf("Field() = %q, want %q", got, tt.wantField)
			}
		})
	}
}

func TestValidateStruct_TitleLookup(t *testing.T) {
	t.Parallel()

	verr := ValidateStruct(&TitleLookupRequest{})
	if verr == nil {
		t.Fatal("expected missing title to fail")
	}
	if verr.Error() != "title is required" {
		t.Errorf("Error() = %q, want %q", verr.Error(), "title is required")
	}

	if verr := ValidateStruct(&TitleLookupRequest{Title: "Venom"}); verr != nil {
		t.Errorf("unexpected error: %v", verr)
	}
}

func TestRequestValidationError_UnwrapsInvalidArgument(t *testing.T) {
	t.Parallel()

	verr := ValidateStruct(&SearchRequest{Page: -1})
	if verr == nil {
		t.Fatal("expected failure")
	}
	if !errors.Is(verr, models.ErrInvalidArgument) {
		t.Error("expected errors.Is(err, ErrInvalidArgument)")
	}
}

func TestToAPIError_SingleError(t *testing.T) {
	t.Parallel()

	verr := ValidateStruct(&SearchRequest{PageSize: -1})
	if verr == nil {
		t.Fatal("expected failure")
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Message != "page_size must be greater than or equal to 0" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "page_size" {
		t.Errorf("Details[field] = %v, want page_size", apiErr.Details["field"])
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	t.Parallel()

	verr := ValidateStruct(&SearchRequest{Page: -1, PageSize: -1})
	if verr == nil {
		t.Fatal("expected failure")
	}
	if len(verr.Errors()) != 2 {
		t.Fatalf("got %d errors, want 2", len(verr.Errors()))
	}

	apiErr := verr.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Fatalf("Details[fields] = %#v", apiErr.Details["fields"])
	}
	if !strings.Contains(apiErr.Message, "page must be") || !strings.Contains(apiErr.Message, "page_size must be") {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

type tagged struct {
	Backend string `koanf:"backend" validate:"oneof=memory badger nats"`
	Name    string `json:"name,omitempty" validate:"excludes=/"`
	Plain   int    `validate:"min=1"`
}

func TestFieldNames(t *testing.T) {
	t.Parallel()

	verr := ValidateStruct(&tagged{Backend: "s3", Name: "a/b", Plain: 0})
	if verr == nil {
		t.Fatal("expected failure")
	}

	want := map[string]string{
		"backend": "backend must be one of: memory badger nats",
		"name":    `name must not contain "/"`,
		"Plain":   "Plain must be at least 1",
	}
	for _, fe := range verr.Errors() {
		msg, ok := want[fe.Field()]
		if !ok {
			t.Errorf("unexpected field %q", fe.Field())
			continue
		}
		if fe.Error() != msg {
			t.Errorf("%s: message = %q, want %q", fe.Field(), fe.Error(), msg)
		}
	}
}

func TestTranslateMinMax_Strings(t *testing.T) {
	t.Parallel()

	verr := ValidateStruct(&SearchRequest{Genre: strings.Repeat("g", 129)})
	if verr == nil {
		t.Fatal("expected failure")
	}
	if got := verr.Error(); got != "genre must be at most 128 characters" {
		t.Errorf("Error() = %q", got)
	}
}
