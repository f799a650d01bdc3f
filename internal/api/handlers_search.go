// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/search"
	"github.com/tomtom215/marquee/internal/validation"
)

// parseSearchRequest reads and validates the search query parameters.
func (h *Handler) parseSearchRequest(r *http.Request) (search.Query, error) {
	var errs []error
	intOr := func(key string, def int) int {
		n, err := intParam(r, key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}

	q := r.URL.Query()
	req := validation.SearchRequest{
		TitleContains: q.Get("title_contains"),
		Year:          intOr("year", 0),
		Cast:          q.Get("cast"),
		Genre:         q.Get("genre"),
		Page:          intOr("page", 0),
		PageSize:      intOr("page_size", h.config.DefaultPageSize),
	}
	if len(errs) > 0 {
		return search.Query{}, errors.Join(errs...)
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		return search.Query{}, verr
	}
	if req.PageSize > h.config.MaxPageSize {
		return search.Query{}, fmt.Errorf("%w: page_size must not exceed %d, got %d",
			models.ErrInvalidArgument, h.config.MaxPageSize, req.PageSize)
	}

	return search.Query{
		TitleContains: req.TitleContains,
		Year:          req.Year,
		Cast:          req.Cast,
		Genre:         req.Genre,
		Page:          req.Page,
		PageSize:      req.PageSize,
	}, nil
}

// Search handles GET / and GET /api/v1/movies.
//
// All filters combine with AND; an empty or zero filter matches everything.
// The response is the bare SearchResponse, not the envelope.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseSearchRequest(r)
	if err != nil {
		respondFailure(w, r, err)
		return
	}

	result, err := h.catalog.Search(r.Context(), q)
	if err != nil {
		respondFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result.Response())
}

// FindByTitle handles GET /api/v1/movies/by-title?title=...
func (h *Handler) FindByTitle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := validation.TitleLookupRequest{Title: r.URL.Query().Get("title")}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondFailure(w, r, verr)
		return
	}

	movies := h.catalog.FindByTitle(req.Title)
	if movies == nil {
		movies = []models.Movie{}
	}
	respondSuccess(w, r, start, movies)
}
