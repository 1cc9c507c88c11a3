// Package commands describes slash commands kept in the bot registry.
package commands

import tele "gopkg.in/telebot.v4"

// Command is a slash command. Hidden commands work but are not published
// to the Telegram menu. Aliases may be given with or without the slash.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	Hidden      bool
	Aliases     []string
}
