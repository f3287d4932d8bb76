/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

var fenceMarkers = regexp.MustCompile("(?i)```(?:json)?\\s*")

// Position is the centre of a face-down card, in percent of the frame.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// recoverList pulls the outermost JSON array out of free model text. When
// the output was cut off mid-list, incomplete trailing elements are dropped
// and the closing bracket is synthesised. The bool reports such a repair.
func recoverList(raw string) (string, bool, error) {
	cleaned := strings.TrimSpace(fenceMarkers.ReplaceAllString(raw, ""))

	open := strings.Index(cleaned, "[")
	if open < 0 {
		return "", false, newError(KindMalformedResponse,
			"AI не вернул список. Попробуйте снова с более чётким фото.", nil)
	}

	if end := strings.LastIndex(cleaned, "]"); end > open {
		return cleaned[open : end+1], false, nil
	}

	return repairTruncated(cleaned[open:]), true, nil
}

// repairTruncated keeps only the top-level elements of a truncated list that
// were written out completely.
func repairTruncated(partial string) string {
	var (
		depth    int
		inString bool
		escaped  bool
		complete = 1 // just past the opening bracket
	)

	for i := 0; i < len(partial); i++ {
		ch := partial[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
				if depth == 1 {
					complete = i + 1
				}
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 1 {
				complete = i + 1
			}
		case ',':
			if depth == 1 {
				complete = i
			}
		}
	}

	kept := strings.TrimRight(partial[:complete], " \t\r\n,")

	return kept + "]"
}

func decodeList(raw string) ([]json.RawMessage, error) {
	text, _, err := recoverList(raw)
	if err != nil {
		return nil, err
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(text), &elems); err != nil {
		return nil, newError(KindParseFailure, "Не удалось разобрать ответ AI. Попробуйте снова.", err)
	}

	return elems, nil
}

// ExtractNames returns the card titles the model listed. Non-string
// elements are skipped.
func ExtractNames(raw string) ([]string, error) {
	elems, err := decodeList(raw)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(elems))
	for _, e := range elems {
		var name string
		if !bytes.HasPrefix(bytes.TrimSpace(e), []byte(`"`)) || json.Unmarshal(e, &name) != nil {
			continue
		}
		names = append(names, name)
	}

	return names, nil
}

// ExtractPositions returns the face-down card centres the model found.
// Elements without numeric x and y are dropped rather than failing the batch.
func ExtractPositions(raw string) ([]Position, error) {
	elems, err := decodeList(raw)
	if err != nil {
		return nil, err
	}

	positions := make([]Position, 0, len(elems))
	for _, e := range elems {
		var p struct {
			X *float64 `json:"x"`
			Y *float64 `json:"y"`
		}
		if json.Unmarshal(e, &p) != nil || p.X == nil || p.Y == nil {
			continue
		}
		positions = append(positions, Position{X: clampPercent(*p.X), Y: clampPercent(*p.Y)})
	}

	return positions, nil
}

func clampPercent(v float64) float64 {
	return min(max(v, 0), 100)
}
