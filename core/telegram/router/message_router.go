package router

import (
	"strings"

	tg "github.com/m3rciful/reviewbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// Conversation routes a message by the sender's current phase.
type Conversation interface {
	Handle(c tele.Context) error
}

// MessageOptions answers updates the conversation does not take.
type MessageOptions struct {
	// UnknownCommand answers slash text that is not registered.
	UnknownCommand tele.HandlerFunc
	// UnknownDocument answers files sent as documents instead of photos.
	UnknownDocument tele.HandlerFunc
}

// MessageRoutes builds the text, photo and document handlers. Text naming a
// registered command or alias runs that command; other text and every
// photo go to conv.
func MessageRoutes(conv Conversation, reg *tg.Registry, opts MessageOptions) []tg.Route {
	toConv := func(name string) tele.HandlerFunc {
		return func(c tele.Context) error {
			if conv == nil {
				skipped(c, name)
				return nil
			}
			return observe(c, name, conv.Handle)
		}
	}
	convText, convPhoto := toConv("conversation.text"), toConv("conversation.photo")

	text := func(c tele.Context) error {
		if reg != nil && strings.HasPrefix(c.Text(), "/") {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
				return observe(c, normalizeHandlerName(key), cmd.Handler)
			}
			if opts.UnknownCommand != nil {
				return observe(c, "unknown_command", opts.UnknownCommand)
			}
		}
		return convText(c)
	}

	document := func(c tele.Context) error {
		if opts.UnknownDocument == nil {
			skipped(c, "unexpected_document")
			return nil
		}
		return observe(c, "unexpected_document", opts.UnknownDocument)
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(text)},
		{Endpoint: tele.OnPhoto, Handler: wrap(convPhoto)},
		{Endpoint: tele.OnDocument, Handler: wrap(document)},
	}
}
