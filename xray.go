/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"math/rand/v2"
)

// Assignment is a guess of which hidden card lies at a detected spot. There
// is no inference behind it: the pool is shuffled and zipped with positions.
type Assignment struct {
	Card     Card     `json:"card"`
	Position Position `json:"position"`
}

// HiddenCards returns the cards of deck that are not revealed yet.
func HiddenCards(deck []Card, revealed RevealSet) []Card {
	hidden := make([]Card, 0, len(deck))
	for _, c := range deck {
		if !revealed.Has(c.ID) {
			hidden = append(hidden, c)
		}
	}
	return hidden
}

// AssignHidden shuffles a copy of pool and pairs the first min(N, M) cards
// with positions, in order.
func AssignHidden(pool []Card, positions []Position, rng *rand.Rand) []Assignment {
	shuffled := make([]Card, len(pool))
	copy(shuffled, pool)

	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := min(len(shuffled), len(positions))
	out := make([]Assignment, n)
	for i := range n {
		out[i] = Assignment{Card: shuffled[i], Position: positions[i]}
	}

	return out
}

type XrayPhase string

const (
	XrayIdle      XrayPhase = "idle"
	XrayCapturing XrayPhase = "capturing"
	XrayShowing   XrayPhase = "showing"
)

// XrayView is what the browser overlays on the frozen frame.
type XrayView struct {
	Phase       XrayPhase    `json:"phase"`
	AgeLabel    string       `json:"age_label"`
	Hidden      int          `json:"hidden"`
	OnTable     int          `json:"on_table"`
	InBox       int          `json:"in_box"`
	Assignments []Assignment `json:"assignments"`
}

func newXrayView(phase XrayPhase, age Age, pool []Card, positions []Position, assigned []Assignment) XrayView {
	if assigned == nil {
		assigned = []Assignment{}
	}
	return XrayView{
		Phase:       phase,
		AgeLabel:    age.Label(),
		Hidden:      len(pool),
		OnTable:     len(positions),
		InBox:       max(0, len(pool)-len(positions)),
		Assignments: assigned,
	}
}
