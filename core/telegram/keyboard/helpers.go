// Package keyboard builds reply keyboards for the establishment menu.
package keyboard

import (
	"slices"

	tele "gopkg.in/telebot.v4"
)

// RemoveKeyboard hides whatever reply keyboard the client shows.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// Menu is a resized one-time reply keyboard with at most perRow buttons per
// row. Button order follows options.
func Menu(options []string, perRow int) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	rows := make([]tele.Row, 0, len(options))
	for _, labels := range ChunkLabels(options, perRow) {
		row := make(tele.Row, len(labels))
		for i, label := range labels {
			row[i] = markup.Text(label)
		}
		rows = append(rows, row)
	}
	markup.Reply(rows...)
	return markup
}

// ChunkLabels groups labels into rows of n; n < 1 means one per row.
func ChunkLabels(labels []string, n int) [][]string {
	return slices.Collect(slices.Chunk(labels, max(n, 1)))
}

// Labels reads the button texts back out of a reply keyboard.
func Labels(markup *tele.ReplyMarkup) []string {
	if markup == nil {
		return nil
	}
	var out []string
	for _, row := range markup.ReplyKeyboard {
		for _, btn := range row {
			out = append(out, btn.Text)
		}
	}
	return out
}
