// Package teletest provides an in-memory tele.Context for handler tests.
package teletest

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

// Sent captures one outbound call made through the context.
type Sent struct {
	What any
	Opts []any
}

// Context implements the subset of tele.Context used by handlers and
// middlewares. Calling any other method panics via the nil embedded interface.
type Context struct {
	tele.Context

	UpdateValue tele.Update
	SendErr     error

	mu     sync.Mutex
	values map[string]any
	sent   []Sent
}

// New builds a context around the given message.
func New(updateID int, msg *tele.Message) *Context {
	return &Context{
		UpdateValue: tele.Update{ID: updateID, Message: msg},
		values:      make(map[string]any),
	}
}

// Text builds a private-chat text message from userID.
func Text(userID int64, text string) *Context {
	return New(int(userID), &tele.Message{
		ID:     1,
		Sender: &tele.User{ID: userID, Username: "tester"},
		Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		Text:   text,
	})
}

// Photo builds a private-chat photo message with an optional caption.
func Photo(userID int64, fileID, caption string) *Context {
	return New(int(userID), &tele.Message{
		ID:      1,
		Sender:  &tele.User{ID: userID, Username: "tester"},
		Chat:    &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		Caption: caption,
		Photo:   &tele.Photo{File: tele.File{FileID: fileID}},
	})
}

func (c *Context) Update() tele.Update    { return c.UpdateValue }
func (c *Context) Message() *tele.Message { return c.UpdateValue.Message }

func (c *Context) Sender() *tele.User {
	if m := c.UpdateValue.Message; m != nil {
		return m.Sender
	}
	return nil
}

func (c *Context) Chat() *tele.Chat {
	if m := c.UpdateValue.Message; m != nil {
		return m.Chat
	}
	return nil
}

func (c *Context) Recipient() tele.Recipient { return c.Chat() }

// Text mirrors telebot: the caption wins over text when present.
func (c *Context) Text() string {
	m := c.UpdateValue.Message
	if m == nil {
		return ""
	}
	if m.Caption != "" {
		return m.Caption
	}
	return m.Text
}

func (c *Context) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key]
}

func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = val
}

func (c *Context) Send(what any, opts ...any) error {
	if c.SendErr != nil {
		return c.SendErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, Sent{What: what, Opts: opts})
	return nil
}

func (c *Context) Reply(what any, opts ...any) error { return c.Send(what, opts...) }

// Sent returns a copy of every message sent so far.
func (c *Context) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// LastText returns the last sent string message, or "".
func (c *Context) LastText() string {
	sent := c.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if s, ok := sent[i].What.(string); ok {
			return s
		}
	}
	return ""
}

// LastMarkup returns the reply markup attached to the last sent message.
func (c *Context) LastMarkup() *tele.ReplyMarkup {
	sent := c.Sent()
	if len(sent) == 0 {
		return nil
	}
	for _, o := range sent[len(sent)-1].Opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			return v
		case *tele.SendOptions:
			if v != nil {
				return v.ReplyMarkup
			}
		}
	}
	return nil
}
