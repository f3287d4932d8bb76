/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var categoryLabels = map[string]string{
	"tokens":  "Жетон развития",
	"wonders": "Чудо света",
	"guilds":  "Гильдия",
	"age1":    "I Эпоха",
	"age2":    "II Эпоха",
	"age3":    "III Эпоха",
}

// CatalogItem is a card as listed in the wiki, tagged with where it came from.
type CatalogItem struct {
	Card
	Category      string `json:"category"`
	CategoryLabel string `json:"category_label"`
}

func newCatalogItem(c Card, category string) CatalogItem {
	return CatalogItem{Card: c, Category: category, CategoryLabel: categoryLabels[category]}
}

func containsFolded(haystack, needle string) bool {
	return haystack != "" && strings.Contains(fold(haystack), needle)
}

// searchCatalog lists one wiki tab, or with a non-empty query searches all
// tabs by title, description and tags, plus the age decks by title and
// effect. Results are sorted by title in Russian collation order.
func searchCatalog(c *Catalog, tab, query string) ([]CatalogItem, bool) {
	q := fold(query)

	var items []CatalogItem

	if q == "" {
		cards, ok := c.Category(tab)
		if !ok {
			return nil, false
		}
		for _, card := range cards {
			items = append(items, newCatalogItem(card, tab))
		}
	} else {
		for _, category := range []string{"tokens", "wonders", "guilds"} {
			cards, _ := c.Category(category)
			for _, card := range cards {
				if containsFolded(card.Title, q) || containsFolded(card.Desc, q) || anyContainsFolded(card.Tags, q) {
					items = append(items, newCatalogItem(card, category))
				}
			}
		}

		for i, deck := range [][]Card{c.Age1, c.Age2, c.Age3} {
			category := "age" + Age(i+1).String()
			for _, card := range deck {
				if containsFolded(card.Title, q) || containsFolded(card.Effect, q) {
					items = append(items, newCatalogItem(card, category))
				}
			}
		}
	}

	col := collate.New(language.Russian)
	sort.SliceStable(items, func(i, j int) bool {
		return col.CompareString(items[i].Title, items[j].Title) < 0
	})

	if items == nil {
		items = []CatalogItem{}
	}

	return items, true
}

func anyContainsFolded(values []string, needle string) bool {
	for _, v := range values {
		if containsFolded(v, needle) {
			return true
		}
	}
	return false
}

func serveCatalog(cfg *Config, catalog *Catalog, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		tab := r.URL.Query().Get("tab")
		if tab == "" {
			tab = "tokens"
		}
		query := r.URL.Query().Get("q")

		items, ok := searchCatalog(catalog, tab, query)
		if !ok {
			writeJSON(cfg, w, http.StatusBadRequest, map[string]string{"error": "unknown tab: " + tab}, errs)
			return
		}

		written := writeJSON(cfg, w, http.StatusOK, items, errs)

		logf(cfg, "SERVE: Catalog tab=%q q=%q (%d items, %s) to %s in %s",
			tab, query, len(items),
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// writeJSON encodes v and reports the number of bytes written.
func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any, errs chan<- error) int {
	data, err := json.Marshal(v)
	if err != nil {
		errs <- err
		w.WriteHeader(http.StatusInternalServerError)
		return 0
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	written, err := w.Write(data)
	if err != nil {
		errs <- err
	}

	return written
}
