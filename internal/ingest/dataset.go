// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package ingest

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Dataset is the canonical record list being merged into.
type Dataset struct {
	items []Item
	slots map[string]int
}

// NewDataset indexes items by natural key. The first occurrence of a key
// owns its slot; later duplicates are kept but never updated.
func NewDataset(items []Item) (*Dataset, error) {
	d := &Dataset{
		items: items,
		slots: make(map[string]int, len(items)),
	}
	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("record %d: not an object", i)
		}
		key, err := item.NaturalKey()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if _, exists := d.slots[key]; !exists {
			d.slots[key] = i
		}
	}
	return d, nil
}

// DecodeDataset parses a stored dataset document.
func DecodeDataset(data []byte) (*Dataset, error) {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return NewDataset(items)
}

// Upsert replaces the item owning key in place, or appends item under key.
// Reports whether an existing record was replaced.
func (d *Dataset) Upsert(key string, item Item) bool {
	if pos, ok := d.slots[key]; ok {
		d.items[pos] = item
		return true
	}
	d.slots[key] = len(d.items)
	d.items = append(d.items, item)
	return false
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.items)
}

// Items returns the records in storage order.
func (d *Dataset) Items() []Item {
	return d.items
}

// Encode renders the dataset as a JSON array. Object keys are emitted in
// sorted order, so encoding the same records always yields the same bytes.
func (d *Dataset) Encode() ([]byte, error) {
	items := d.items
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(items)
}
