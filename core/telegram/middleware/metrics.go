package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "send_counters"

type sendCounters struct {
	messages atomic.Int32
	keyboard atomic.Bool
}

// countingContext counts successful Send and Reply calls. Sends may
// complete on dispatcher workers, hence the atomics.
type countingContext struct {
	tele.Context
	counters *sendCounters
}

func (c countingContext) note(err error, opts []any) error {
	if err != nil {
		return err
	}
	c.counters.messages.Add(1)
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				c.counters.keyboard.Store(true)
			}
		case *tele.ReplyMarkup:
			if v != nil {
				c.counters.keyboard.Store(true)
			}
		}
	}
	return nil
}

func (c countingContext) Send(what any, opts ...any) error {
	return c.note(c.Context.Send(what, opts...), opts)
}

func (c countingContext) Reply(what any, opts ...any) error {
	return c.note(c.Context.Reply(what, opts...), opts)
}

// MessageMetricsMiddleware counts the replies each handler sends.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		counters := &sendCounters{}
		c.Set(countersKey, counters)
		return next(countingContext{Context: c, counters: counters})
	}
}

// GetCounters returns the number of replies sent so far and whether any of
// them carried a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	counters, ok := c.Get(countersKey).(*sendCounters)
	if !ok {
		return 0, false
	}
	return int(counters.messages.Load()), counters.keyboard.Load()
}
