/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"time"
)

// Scanner runs the photo → model → recovery → matcher pipeline. It holds no
// per-session state; reconciliation is left to the caller.
type Scanner struct {
	cfg     *Config
	catalog *Catalog
	vision  *VisionClient
}

func newScanner(cfg *Config, catalog *Catalog) *Scanner {
	return &Scanner{
		cfg:     cfg,
		catalog: catalog,
		vision:  newVisionClient(cfg),
	}
}

type ScanResult struct {
	Age       Age
	Deck      []Card
	Names     []string
	Matched   IDSet
	Unmatched []string
}

// RecognizeCards asks the model which cards of the age deck lie face up.
func (s *Scanner) RecognizeCards(ctx context.Context, key string, age Age, photo *Photo) (*ScanResult, error) {
	startTime := time.Now()

	deck := s.catalog.Deck(age)

	debugf(s.cfg, "SCAN: Age %s, %d cards in prompt table, photo %dx%d (%s)",
		age.Label(), len(deck), photo.Width, photo.Height, humanReadableSize(int64(len(photo.Data))))

	text, err := s.vision.Generate(ctx, key, buildScanPrompt(age, deck), photo, s.cfg.scanMaxTokens)
	if err != nil {
		return nil, err
	}

	names, err := ExtractNames(text)
	if err != nil {
		debugf(s.cfg, "SCAN: Unusable model output: %q", text)
		return nil, err
	}

	matched := MatchCards(names, deck)
	for _, name := range matched.Unmatched {
		debugf(s.cfg, "SCAN: No card matches %q", name)
	}

	logf(s.cfg, "SCAN: Age %s, %d names, %d of %d cards matched in %s",
		age.Label(), len(names), len(matched.IDs), len(deck),
		time.Since(startTime).Round(time.Millisecond))

	return &ScanResult{
		Age:       age,
		Deck:      deck,
		Names:     names,
		Matched:   matched.IDs,
		Unmatched: matched.Unmatched,
	}, nil
}

// LocateFaceDown asks the model where the face-down cards are.
func (s *Scanner) LocateFaceDown(ctx context.Context, key string, photo *Photo) ([]Position, error) {
	startTime := time.Now()

	text, err := s.vision.Generate(ctx, key, xrayPrompt, photo, s.cfg.xrayMaxTokens)
	if err != nil {
		return nil, err
	}

	positions, err := ExtractPositions(text)
	if err != nil {
		debugf(s.cfg, "XRAY: Unusable model output: %q", text)
		return nil, err
	}

	logf(s.cfg, "XRAY: %d face-down cards located in %s",
		len(positions), time.Since(startTime).Round(time.Millisecond))

	return positions, nil
}

// ScanSummary is the found / not found breakdown shown after a scan.
type ScanSummary struct {
	AgeLabel  string   `json:"age_label"`
	Found     []Card   `json:"found"`
	Hidden    []Card   `json:"hidden"`
	Unmatched []string `json:"unmatched"`
	Total     int      `json:"total"`
}

func summarizeScan(res *ScanResult) ScanSummary {
	summary := ScanSummary{
		AgeLabel:  res.Age.Label(),
		Found:     []Card{},
		Hidden:    []Card{},
		Unmatched: res.Unmatched,
		Total:     len(res.Deck),
	}
	if summary.Unmatched == nil {
		summary.Unmatched = []string{}
	}

	for _, c := range res.Deck {
		if res.Matched.Has(c.ID) {
			summary.Found = append(summary.Found, c)
		} else {
			summary.Hidden = append(summary.Hidden, c)
		}
	}

	return summary
}
