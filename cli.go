/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var cardColors = map[Color]*colorize.Color{
	ColorBrown:  colorize.New(colorize.FgYellow, colorize.Faint),
	ColorGray:   colorize.New(colorize.FgHiBlack),
	ColorRed:    colorize.New(colorize.FgRed),
	ColorBlue:   colorize.New(colorize.FgBlue),
	ColorGreen:  colorize.New(colorize.FgGreen),
	ColorYellow: colorize.New(colorize.FgHiYellow),
	ColorPurple: colorize.New(colorize.FgMagenta),
	ColorWonder: colorize.New(colorize.FgCyan),
	ColorToken:  colorize.New(colorize.FgHiGreen),
}

func paint(c Color, s string) string {
	if p, ok := cardColors[c]; ok {
		return p.Sprint(s)
	}
	return s
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// wrapText splits text into lines of at most width runes.
func wrapText(text string, width int) []string {
	if width < 20 {
		width = 20
	}

	var (
		lines   []string
		current string
	)

	for _, word := range strings.Fields(text) {
		switch {
		case current == "":
			current = word
		case utf8.RuneCountInString(current)+1+utf8.RuneCountInString(word) <= width:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}

	if current != "" {
		lines = append(lines, current)
	}

	return lines
}

func printCard(w io.Writer, c Card, label string, width int) {
	header := paint(c.Color, "■ "+c.Title)
	if label != "" {
		header += colorize.HiBlackString("  · %s", label)
	}
	fmt.Fprintln(w, header)

	if len(c.Cost) > 0 || c.Age != 0 {
		fmt.Fprintln(w, "    "+colorize.CyanString("Стоимость: ")+c.CostText())
	}

	text := c.Effect
	if text == "" {
		text = c.Desc
	}
	for _, line := range wrapText(text, width-4) {
		fmt.Fprintln(w, "    "+line)
	}

	if c.Chain != "" {
		fmt.Fprintln(w, "    "+colorize.CyanString("Цепочка: ")+c.Chain)
	}
}

func newCardsCmd(cfg *Config) *cobra.Command {
	var (
		age int
		tab string
	)

	cmd := &cobra.Command{
		Use:   "cards [query]",
		Short: "Search the card catalog, or list one age deck with --age",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := LoadCatalog(cfg.catalog)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			width := terminalWidth()

			if age != 0 {
				a, err := parseAge(fmt.Sprint(age))
				if err != nil {
					return err
				}

				board := buildBoard(a, catalog.Deck(a), newRevealSet())
				fmt.Fprintln(out, colorize.HiWhiteString("Эпоха %s: %d карт", board.AgeLabel, board.Total))
				for _, c := range board.Active {
					printCard(out, c, c.Color.russian(), width)
				}

				return nil
			}

			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			items, ok := searchCatalog(catalog, tab, query)
			if !ok {
				return fmt.Errorf("unknown tab %q (tokens, wonders, guilds)", tab)
			}

			if len(items) == 0 {
				fmt.Fprintln(out, "Ничего не найдено")
				return nil
			}

			for _, item := range items {
				printCard(out, item.Card, item.CategoryLabel, width)
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&age, "age", "a", 0, "list the deck of one age (1, 2 or 3)")
	cmd.Flags().StringVarP(&tab, "tab", "t", "tokens", "category to list when no query is given")

	return cmd
}

func newScanCmd(cfg *Config) *cobra.Command {
	var (
		age  int
		xray bool
	)

	cmd := &cobra.Command{
		Use:   "scan <photo>",
		Short: "Recognise face-up cards in a photo, or locate face-down ones with --xray",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validateVision(); err != nil {
				return err
			}

			a, err := parseAge(fmt.Sprint(age))
			if err != nil {
				return err
			}

			catalog, err := LoadCatalog(cfg.catalog)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			photo, err := preparePhoto(f, cfg.photoMaxSide)
			if err != nil {
				return err
			}

			scanner := newScanner(cfg, catalog)
			out := cmd.OutOrStdout()
			width := terminalWidth()

			res, err := scanner.RecognizeCards(cmd.Context(), cfg.apiKey, a, photo)
			if err != nil {
				return err
			}

			summary := summarizeScan(res)

			fmt.Fprintln(out, colorize.GreenString("✅ На столе: %d из %d", len(summary.Found), summary.Total))
			for _, c := range summary.Found {
				printCard(out, c, "", width)
			}

			fmt.Fprintln(out, colorize.YellowString("❓ Не найдено: %d", len(summary.Hidden)))
			for _, c := range summary.Hidden {
				fmt.Fprintln(out, "    "+paint(c.Color, c.Title))
			}

			for _, name := range summary.Unmatched {
				fmt.Fprintln(out, colorize.HiBlackString("    нет в каталоге: %s", name))
			}

			if !xray {
				return nil
			}

			positions, err := scanner.LocateFaceDown(cmd.Context(), cfg.apiKey, photo)
			if err != nil {
				return err
			}

			revealed := newRevealSet().Reconciled(res.Deck, res.Matched)
			pool := HiddenCards(res.Deck, revealed)
			view := newXrayView(XrayShowing, a, pool, positions, AssignHidden(pool, positions, nil))

			fmt.Fprintln(out, colorize.MagentaString("🔍 X-Ray: %d скрыто, %d на столе, %d в коробке",
				view.Hidden, view.OnTable, view.InBox))
			for _, as := range view.Assignments {
				fmt.Fprintf(out, "    (%5.1f%%, %5.1f%%)  %s\n", as.Position.X, as.Position.Y, paint(as.Card.Color, as.Card.Title))
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&age, "age", "a", 1, "age shown in the photo (1, 2 or 3)")
	cmd.Flags().BoolVar(&xray, "xray", false, "also locate face-down cards and guess what they are")

	return cmd
}
