/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"sort"
	"strings"
)

// Vision output is noisy, so titles are matched loosely. Recall beats precision.
const matchPrefixLen = 5

// IDSet is a set of card ids.
type IDSet map[string]struct{}

func newIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type MatchResult struct {
	IDs       IDSet
	Unmatched []string
}

// MatchCards resolves free-text names to ids of cards in deck. For each name
// the first tier that hits wins: exact title, substring either way, then a
// prefix of up to five runes. Names that are empty after trimming never match.
func MatchCards(names []string, deck []Card) MatchResult {
	result := MatchResult{IDs: make(IDSet)}

	titles := make([]string, len(deck))
	for i, c := range deck {
		titles[i] = fold(c.Title)
	}

	for _, name := range names {
		idx := matchOne(fold(name), titles)
		if idx < 0 {
			result.Unmatched = append(result.Unmatched, name)
			continue
		}
		result.IDs[deck[idx].ID] = struct{}{}
	}

	return result
}

func matchOne(name string, titles []string) int {
	if name == "" {
		return -1
	}

	for i, t := range titles {
		if t == name {
			return i
		}
	}

	for i, t := range titles {
		if strings.Contains(t, name) || strings.Contains(name, t) {
			return i
		}
	}

	prefix := []rune(name)
	if len(prefix) > matchPrefixLen {
		prefix = prefix[:matchPrefixLen]
	}
	for i, t := range titles {
		if strings.HasPrefix(t, string(prefix)) {
			return i
		}
	}

	return -1
}
