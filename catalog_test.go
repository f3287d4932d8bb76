/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedCatalog(t *testing.T) {
	c := testCatalog(t)

	assert.Len(t, c.Tokens, 10)
	assert.Len(t, c.Guilds, 7)
	assert.NotEmpty(t, c.Wonders)

	for i, deck := range [][]Card{c.Age1, c.Age2, c.Age3} {
		require.NotEmpty(t, deck)
		for _, card := range deck {
			assert.Equal(t, Age(i+1), card.Age, card.ID)
			assert.NotEqual(t, ColorToken, card.Color, card.ID)
			assert.NotEqual(t, ColorWonder, card.Color, card.ID)
		}
	}

	for _, g := range c.Guilds {
		assert.Equal(t, ColorPurple, g.Color)
	}
}

func TestDeckIDsUnique(t *testing.T) {
	c := testCatalog(t)

	for _, age := range []Age{1, 2, 3} {
		seen := make(map[string]bool)
		for _, card := range c.Deck(age) {
			assert.False(t, seen[card.ID], "duplicate id %s in age %s", card.ID, age)
			seen[card.ID] = true
		}
	}
}

func TestDeckMergesGuildsIntoAgeThree(t *testing.T) {
	c := testCatalog(t)

	deck := c.Deck(3)
	require.Len(t, deck, len(c.Age3)+len(c.Guilds))

	for i, g := range deck[len(c.Age3):] {
		assert.True(t, strings.HasPrefix(g.ID, "a3_guild_"))
		assert.Equal(t, c.Guilds[i].Title, g.Title)
		assert.Equal(t, Age(3), g.Age)
		assert.NotEmpty(t, g.Effect)
	}

	// merge must not leak into the catalog itself
	assert.Equal(t, "guild_merchants", c.Guilds[0].ID)

	assert.Len(t, c.Deck(1), len(c.Age1))
	assert.Len(t, c.Deck(2), len(c.Age2))
	assert.Nil(t, c.Deck(4))
}

func TestCategory(t *testing.T) {
	c := testCatalog(t)

	for _, tab := range []string{"tokens", "wonders", "guilds"} {
		cards, ok := c.Category(tab)
		assert.True(t, ok, tab)
		assert.NotEmpty(t, cards, tab)
	}

	_, ok := c.Category("age1")
	assert.False(t, ok)
}

func TestParseCatalogRejectsBadData(t *testing.T) {
	const decks = `
[[age1]]
id = "a"
title = "A"
color = "brown"

[[age2]]
id = "b"
title = "B"
color = "gray"

[[age3]]
id = "c"
title = "C"
color = "red"
`

	tests := []struct {
		name string
		data string
		want string
	}{
		{"valid", decks, ""},
		{"not toml", "[[age1", "decoding catalog"},
		{"missing id", decks + "\n[[tokens]]\ntitle = \"X\"\n", "has no id"},
		{"missing title", decks + "\n[[tokens]]\nid = \"x\"\n", "has no title"},
		{"duplicate id", decks + "\n[[tokens]]\nid = \"a\"\ntitle = \"X\"\n", "duplicate id"},
		{"unknown color", decks + "\n[[guilds]]\nid = \"g\"\ntitle = \"G\"\ncolor = \"pink\"\n", "unknown color"},
		{"empty age", "[[age1]]\nid = \"a\"\ntitle = \"A\"\ncolor = \"brown\"\n", "every age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := parseCatalog([]byte(tt.data))
			if tt.want == "" {
				require.NoError(t, err)
				assert.Equal(t, Age(2), c.Age2[0].Age)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	data, err := assets.ReadFile("assets/catalog.toml")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, testCatalog(t).Age1, c.Age1)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestParseAge(t *testing.T) {
	for _, in := range []string{"1", " 2", "3 "} {
		_, err := parseAge(in)
		assert.NoError(t, err, in)
	}

	for _, in := range []string{"", "0", "4", "III", "-1"} {
		_, err := parseAge(in)
		assert.ErrorIs(t, err, errInvalidAge, in)
	}

	assert.Equal(t, "III", Age(3).Label())
	assert.Equal(t, "2", Age(2).String())
}

func TestCostText(t *testing.T) {
	assert.Equal(t, "бесплатно", Card{}.CostText())
	assert.Equal(t, "1 дерево, 2 монеты", Card{Cost: []string{"1 дерево", "2 монеты"}}.CostText())
}

func TestColorRank(t *testing.T) {
	assert.Less(t, ColorBrown.rank(), ColorGray.rank())
	assert.Less(t, ColorGreen.rank(), ColorPurple.rank())
	assert.Equal(t, 99, Color("pink").rank())
	assert.Equal(t, "синяя", ColorBlue.russian())
	assert.Equal(t, "wonder", ColorWonder.russian())
}
