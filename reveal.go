/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

// RevealSet holds the ids of cards already seen on the table. It spans the
// whole session, not a single age. Values are never mutated in place: every
// operation returns a new set, so a snapshot handed out stays valid.
type RevealSet struct {
	ids IDSet
}

func newRevealSet(ids ...string) RevealSet {
	return RevealSet{ids: newIDSet(ids...)}
}

func (r RevealSet) Has(id string) bool {
	return r.ids.Has(id)
}

func (r RevealSet) Len() int {
	return len(r.ids)
}

func (r RevealSet) IDs() []string {
	return r.ids.Sorted()
}

func (r RevealSet) clone() RevealSet {
	ids := make(IDSet, len(r.ids))
	for id := range r.ids {
		ids[id] = struct{}{}
	}
	return RevealSet{ids: ids}
}

// Toggled flips a single id.
func (r RevealSet) Toggled(id string) RevealSet {
	next := r.clone()
	if next.ids.Has(id) {
		delete(next.ids, id)
	} else {
		next.ids[id] = struct{}{}
	}
	return next
}

// Reconciled treats matched as the ground truth for deck: every card of the
// deck is cleared, then the matched ones are put back. Ids outside the deck
// are left alone, whether they are already in the set or in matched.
func (r RevealSet) Reconciled(deck []Card, matched IDSet) RevealSet {
	next := r.clone()
	for _, c := range deck {
		delete(next.ids, c.ID)
	}
	for _, c := range deck {
		if matched.Has(c.ID) {
			next.ids[c.ID] = struct{}{}
		}
	}
	return next
}

// CountIn returns how many cards of deck are revealed.
func (r RevealSet) CountIn(deck []Card) int {
	n := 0
	for _, c := range deck {
		if r.Has(c.ID) {
			n++
		}
	}
	return n
}
