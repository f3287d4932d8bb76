/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"sort"
)

// BoardView is the predictor for one age, ready to be drawn by the client.
type BoardView struct {
	Age      int       `json:"age"`
	AgeLabel string    `json:"age_label"`
	Active   []Card    `json:"active"`
	Removed  []Card    `json:"removed"`
	Total    int       `json:"total"`
	Left     int       `json:"left"`
	Gone     int       `json:"removed_count"`
	Scanning bool      `json:"scanning"`
	Xray     XrayPhase `json:"xray"`
}

func buildBoard(age Age, deck []Card, revealed RevealSet) BoardView {
	sorted := make([]Card, len(deck))
	copy(sorted, deck)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Color.rank() < sorted[j].Color.rank()
	})

	board := BoardView{
		Age:      int(age),
		AgeLabel: age.Label(),
		Active:   []Card{},
		Removed:  []Card{},
		Total:    len(sorted),
		Xray:     XrayIdle,
	}

	for _, c := range sorted {
		if revealed.Has(c.ID) {
			board.Removed = append(board.Removed, c)
		} else {
			board.Active = append(board.Active, c)
		}
	}

	board.Gone = len(board.Removed)
	board.Left = board.Total - board.Gone

	return board
}
