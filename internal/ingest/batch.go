// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/blobstore"
)

// Item is one movie document with its fields kept as raw JSON, so fields
// this service does not model survive a merge untouched.
type Item map[string]json.RawMessage

// NaturalKey returns title immediately followed by the decimal year, with no
// separator. The item must contain a string title and an integer year.
func (it Item) NaturalKey() (string, error) {
	rawTitle, ok := it["title"]
	if !ok {
		return "", errors.New("missing title")
	}
	rawYear, ok := it["year"]
	if !ok {
		return "", errors.New("missing year")
	}

	if isNull(rawTitle) {
		return "", errors.New("title is null")
	}
	if isNull(rawYear) {
		return "", errors.New("year is null")
	}

	var title string
	if err := json.Unmarshal(rawTitle, &title); err != nil {
		return "", fmt.Errorf("title: %w", err)
	}
	var year int
	if err := json.Unmarshal(rawYear, &year); err != nil {
		return "", fmt.Errorf("year: %w", err)
	}
	return title + strconv.Itoa(year), nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// Batch is one pending inbox entry.
type Batch struct {
	Key          string
	LastModified time.Time
	Items        []Item
	keys         []string
	raw          []byte
}

// decodeItems parses a JSON array of movie objects and computes every
// natural key. Any malformed item fails the whole document.
func decodeItems(data []byte) ([]Item, []string, error) {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, nil, err
	}

	keys := make([]string, len(items))
	for i, item := range items {
		if item == nil {
			return nil, nil, fmt.Errorf("item %d: not an object", i)
		}
		key, err := item.NaturalKey()
		if err != nil {
			return nil, nil, fmt.Errorf("item %d: %w", i, err)
		}
		keys[i] = key
	}
	return items, keys, nil
}

// sortByArrival orders inbox entries by modification time, oldest first,
// breaking ties by key.
func sortByArrival(infos []blobstore.ObjectInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		a, b := infos[i], infos[j]
		if !a.LastModified.Equal(b.LastModified) {
			return a.LastModified.Before(b.LastModified)
		}
		return a.Key < b.Key
	})
}
