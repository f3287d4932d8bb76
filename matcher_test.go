/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var matcherDeck = []Card{
	{ID: "a2_barracks", Title: "Казармы"},
	{ID: "a2_library", Title: "Библиотека"},
	{ID: "a1_workshop", Title: "Мастерская"},
	{ID: "a1_glassworks", Title: "Стекольная мастерская"},
	{ID: "a2_horse_breeders", Title: "Конный завод"},
}

func TestMatchCards(t *testing.T) {
	tests := []struct {
		name      string
		names     []string
		want      []string
		unmatched []string
	}{
		{"exact", []string{"Казармы"}, []string{"a2_barracks"}, nil},
		{"case and whitespace", []string{"казармы "}, []string{"a2_barracks"}, nil},
		{"short prefix", []string{"Каз"}, []string{"a2_barracks"}, nil},
		{"exact beats substring", []string{"мастерская"}, []string{"a1_workshop"}, nil},
		{"name contains title", []string{"Карта Библиотека (синяя)"}, []string{"a2_library"}, nil},
		{"five rune prefix", []string{"Библиотечный зал"}, []string{"a2_library"}, nil},
		{"no match", []string{"Пирамиды"}, nil, []string{"Пирамиды"}},
		{"empty", []string{""}, nil, []string{""}},
		{"blank", []string{"   "}, nil, []string{"   "}},
		{"duplicates collapse", []string{"Казармы", "КАЗАРМЫ", "Каз"}, []string{"a2_barracks"}, nil},
		{"several", []string{"Конный завод", "Стекольная мастерская"}, []string{"a1_glassworks", "a2_horse_breeders"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchCards(tt.names, matcherDeck)

			want := tt.want
			if want == nil {
				want = []string{}
			}
			assert.Equal(t, want, got.IDs.Sorted())
			assert.Equal(t, tt.unmatched, got.Unmatched)
		})
	}
}

func TestMatchCardsResultsComeFromDeck(t *testing.T) {
	names := []string{"Казармы", "Мавзолей", "библ", "x", "Конн", "Мастерская пирамиды"}

	got := MatchCards(names, matcherDeck)

	ids := make(map[string]bool)
	for _, c := range matcherDeck {
		ids[c.ID] = true
	}
	for id := range got.IDs {
		assert.True(t, ids[id], id)
	}
	assert.LessOrEqual(t, len(got.IDs), len(names))
}

func TestMatchCardsEmptyDeck(t *testing.T) {
	got := MatchCards([]string{"Казармы"}, nil)

	assert.Empty(t, got.IDs)
	assert.Equal(t, []string{"Казармы"}, got.Unmatched)
}

func TestMatchCardsAgainstCatalog(t *testing.T) {
	c := testCatalog(t)

	got := MatchCards([]string{"Казармы", "Лаборатория"}, c.Deck(2))
	assert.Equal(t, []string{"a2_barracks", "a2_laboratory"}, got.IDs.Sorted())

	got = MatchCards([]string{"Гильдия учёных"}, c.Deck(3))
	assert.Len(t, got.IDs, 1)
	assert.Empty(t, got.Unmatched)
}
