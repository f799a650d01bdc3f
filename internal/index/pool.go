// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package index

// internMaxLen is the exclusive upper bound on interned string length.
const internMaxLen = 80

// stringPool deduplicates short strings for the lifetime of one build. Cast
// names and genres repeat heavily across records, so sharing one backing
// array per distinct value keeps the snapshot small.
type stringPool struct {
	m map[string]string
}

func newStringPool() *stringPool {
	return &stringPool{m: make(map[string]string)}
}

func (p *stringPool) intern(s string) string {
	if len(s) >= internMaxLen {
		return s
	}
	if v, ok := p.m[s]; ok {
		return v
	}
	p.m[s] = s
	return s
}

func (p *stringPool) internAll(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, p.intern(s))
	}
	return out
}
