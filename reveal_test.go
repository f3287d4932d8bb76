/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	deckOne = []Card{{ID: "a1_x"}, {ID: "a1_y"}, {ID: "a1_z"}}
	deckTwo = []Card{{ID: "a2_x"}, {ID: "a2_y"}}
)

func TestReconciledMatchesScanExactly(t *testing.T) {
	before := newRevealSet("a1_x", "a1_y", "a2_x")

	after := before.Reconciled(deckOne, newIDSet("a1_y", "a1_z"))

	assert.Equal(t, []string{"a1_y", "a1_z", "a2_x"}, after.IDs())
	assert.Equal(t, 2, after.CountIn(deckOne))
	assert.Equal(t, 1, after.CountIn(deckTwo))

	// the receiver is a snapshot and stays as it was
	assert.Equal(t, []string{"a1_x", "a1_y", "a2_x"}, before.IDs())
}

func TestReconciledLeavesOtherAgesAlone(t *testing.T) {
	before := newRevealSet("a2_x", "a2_y")

	after := before.Reconciled(deckOne, newIDSet())

	assert.Equal(t, before.IDs(), after.IDs())
}

func TestReconciledIgnoresIdsOutsideDeck(t *testing.T) {
	after := newRevealSet().Reconciled(deckOne, newIDSet("a1_x", "a2_y", "unknown"))

	assert.Equal(t, []string{"a1_x"}, after.IDs())
}

func TestReconciledIsIdempotent(t *testing.T) {
	matched := newIDSet("a1_x", "a1_z")
	start := newRevealSet("a1_y", "a2_y")

	once := start.Reconciled(deckOne, matched)
	twice := once.Reconciled(deckOne, matched)

	assert.Equal(t, once.IDs(), twice.IDs())
}

func TestReconciledEmptyScanClearsDeck(t *testing.T) {
	after := newRevealSet("a1_x", "a1_y", "a1_z").Reconciled(deckOne, newIDSet())

	assert.Equal(t, 0, after.Len())
}

func TestToggled(t *testing.T) {
	r := newRevealSet()

	on := r.Toggled("a1_x")
	assert.True(t, on.Has("a1_x"))
	assert.False(t, r.Has("a1_x"))

	off := on.Toggled("a1_x")
	assert.False(t, off.Has("a1_x"))
	assert.Equal(t, 0, off.Len())
}
