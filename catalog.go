/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Color string

const (
	ColorBrown  Color = "brown"
	ColorGray   Color = "gray"
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorPurple Color = "purple"
	ColorWonder Color = "wonder"
	ColorToken  Color = "token"
)

// Board order used by the predictor.
var colorOrder = []Color{
	ColorBrown, ColorGray, ColorYellow, ColorBlue, ColorGreen,
	ColorRed, ColorPurple, ColorWonder, ColorToken,
}

var colorNamesRu = map[Color]string{
	ColorBrown:  "коричневая",
	ColorGray:   "серая",
	ColorRed:    "красная",
	ColorBlue:   "синяя",
	ColorGreen:  "зелёная",
	ColorYellow: "жёлтая",
	ColorPurple: "фиолетовая",
}

func (c Color) valid() bool {
	for _, o := range colorOrder {
		if o == c {
			return true
		}
	}
	return false
}

func (c Color) rank() int {
	for i, o := range colorOrder {
		if o == c {
			return i
		}
	}
	return 99
}

func (c Color) russian() string {
	if name, ok := colorNamesRu[c]; ok {
		return name
	}
	return string(c)
}

type Age int

var errInvalidAge = errors.New("age must be 1, 2 or 3")

func parseAge(s string) (Age, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 3 {
		return 0, fmt.Errorf("%w: %q", errInvalidAge, s)
	}
	return Age(n), nil
}

func (a Age) String() string {
	return strconv.Itoa(int(a))
}

func (a Age) Label() string {
	switch a {
	case 1:
		return "I"
	case 2:
		return "II"
	case 3:
		return "III"
	}
	return strconv.Itoa(int(a))
}

// Card is immutable once the catalog is loaded; ID is its identity.
type Card struct {
	ID        string   `toml:"id" json:"id"`
	Title     string   `toml:"title" json:"title"`
	Color     Color    `toml:"color" json:"color"`
	Cost      []string `toml:"cost" json:"cost,omitempty"`
	Effect    string   `toml:"effect" json:"effect,omitempty"`
	Desc      string   `toml:"desc" json:"desc,omitempty"`
	Tags      []string `toml:"tags" json:"tags,omitempty"`
	Age       Age      `toml:"-" json:"age,omitempty"`
	Chain     string   `toml:"chain" json:"chain,omitempty"`
	Requires  string   `toml:"requires" json:"requires,omitempty"`
	Expansion string   `toml:"expansion" json:"expansion,omitempty"`
}

// CostText renders the cost for prompts and terminal output.
func (c Card) CostText() string {
	if len(c.Cost) == 0 {
		return "бесплатно"
	}
	return strings.Join(c.Cost, ", ")
}

// Catalog is the read-only reference data for the whole game.
type Catalog struct {
	Tokens  []Card `toml:"tokens"`
	Wonders []Card `toml:"wonders"`
	Guilds  []Card `toml:"guilds"`
	Age1    []Card `toml:"age1"`
	Age2    []Card `toml:"age2"`
	Age3    []Card `toml:"age3"`
}

// LoadCatalog reads the catalog from path, or the embedded copy when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	var (
		data []byte
		err  error
	)

	if path == "" {
		data, err = assets.ReadFile("assets/catalog.toml")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	return parseCatalog(data)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var c Catalog

	if _, err := toml.Decode(string(data), &c); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	c.normalize()

	if err := c.validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Catalog) normalize() {
	for i := range c.Tokens {
		if c.Tokens[i].Color == "" {
			c.Tokens[i].Color = ColorToken
		}
	}
	for i := range c.Wonders {
		if c.Wonders[i].Color == "" {
			c.Wonders[i].Color = ColorWonder
		}
	}
	for i := range c.Guilds {
		if c.Guilds[i].Color == "" {
			c.Guilds[i].Color = ColorPurple
		}
	}
	for age, deck := range [][]Card{c.Age1, c.Age2, c.Age3} {
		for i := range deck {
			deck[i].Age = Age(age + 1)
		}
	}
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool)

	groups := map[string][]Card{
		"tokens":  c.Tokens,
		"wonders": c.Wonders,
		"guilds":  c.Guilds,
		"age1":    c.Age1,
		"age2":    c.Age2,
		"age3":    c.Age3,
	}

	for group, cards := range groups {
		for _, card := range cards {
			switch {
			case card.ID == "":
				return fmt.Errorf("catalog: %s entry %q has no id", group, card.Title)
			case card.Title == "":
				return fmt.Errorf("catalog: %s entry %q has no title", group, card.ID)
			case seen[card.ID]:
				return fmt.Errorf("catalog: duplicate id %q", card.ID)
			case !card.Color.valid():
				return fmt.Errorf("catalog: %q has unknown color %q", card.ID, card.Color)
			}
			seen[card.ID] = true
		}
	}

	if len(c.Age1) == 0 || len(c.Age2) == 0 || len(c.Age3) == 0 {
		return errors.New("catalog: every age needs at least one card")
	}

	return nil
}

// Deck returns the cards of one age. Guilds are appended to age III with
// synthetic ids; the merge is never stored back into the catalog.
func (c *Catalog) Deck(age Age) []Card {
	var base []Card

	switch age {
	case 1:
		base = c.Age1
	case 2:
		base = c.Age2
	case 3:
		base = c.Age3
	default:
		return nil
	}

	deck := make([]Card, 0, len(base)+len(c.Guilds))
	deck = append(deck, base...)

	if age == 3 {
		for i, g := range c.Guilds {
			g.ID = fmt.Sprintf("a3_guild_%d", i)
			g.Age = 3
			if g.Effect == "" {
				g.Effect = g.Desc
			}
			deck = append(deck, g)
		}
	}

	return deck
}

// Category returns one of the wiki tabs.
func (c *Catalog) Category(tab string) ([]Card, bool) {
	switch tab {
	case "tokens":
		return c.Tokens, true
	case "wonders":
		return c.Wonders, true
	case "guilds":
		return c.Guilds, true
	}
	return nil, false
}

// fold lower-cases and trims s for case-insensitive comparisons.
func fold(s string) string {
	return cases.Lower(language.Russian).String(strings.TrimSpace(s))
}
