package bot

import (
	"errors"
	"log/slog"

	"github.com/m3rciful/reviewbot/core/logger"
	tg "github.com/m3rciful/reviewbot/core/telegram"
	"github.com/m3rciful/reviewbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/reviewbot/core/telegram/helpers"
	"github.com/m3rciful/reviewbot/core/telegram/keyboard"
	"github.com/m3rciful/reviewbot/core/telegram/state"
	"github.com/m3rciful/reviewbot/internal/config"
	"github.com/m3rciful/reviewbot/internal/feedback"
	"github.com/m3rciful/reviewbot/internal/session"

	tele "gopkg.in/telebot.v4"
)

const component = "tg.feedback"

// Handlers answers commands and conversation messages. Errors from the
// session or tabular store are turned into replies here and never reach
// telebot.
type Handlers struct {
	tracker  *session.Tracker
	recorder *feedback.Recorder
	msgs     config.Messages
	columns  int
}

// NewHandlers builds the conversation surface.
func NewHandlers(tracker *session.Tracker, recorder *feedback.Recorder, msgs config.Messages, menuColumns int) *Handlers {
	return &Handlers{tracker: tracker, recorder: recorder, msgs: msgs, columns: menuColumns}
}

// RegisterCommands adds /start, /cancel and /help to reg.
func (h *Handlers) RegisterCommands(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.Start,
		Description: "Leave feedback",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     h.Cancel,
		Description: "Cancel the current feedback",
		Aliases:     []string{"stop"},
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     h.Help,
		Description: "Show help",
	})
}

// RegisterPhases binds one handler per conversation phase.
func (h *Handlers) RegisterPhases(d *state.Dispatcher) {
	d.Register(session.PhaseIdle, h.Idle)
	d.Register(session.PhaseAwaitingEstablishment, h.AwaitingEstablishment)
	d.Register(session.PhaseAwaitingFeedback, h.AwaitingFeedback)
	d.SetFallback(h.storeUnavailable)
}

// Start resets the conversation and shows the establishment menu.
func (h *Handlers) Start(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	menu, err := h.tracker.Start(ctx, user.ID)
	if err != nil {
		logger.Error(ctx, component, "start.failed",
			slog.Int64("user_id", user.ID),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, h.msgs.TryAgain)
	}
	return tghelpers.SendKeyboard(c, h.msgs.ChooseEstablishment, keyboard.Menu(menu, h.columns))
}

// Cancel drops the conversation and hides the menu.
func (h *Handlers) Cancel(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.tracker.Cancel(ctx, user.ID); err != nil {
		logger.Error(ctx, component, "cancel.failed",
			slog.Int64("user_id", user.ID),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, h.msgs.TryAgain)
	}
	return tghelpers.SendKeyboard(c, h.msgs.Cancelled, keyboard.RemoveKeyboard())
}

// Help lists the commands.
func (h *Handlers) Help(c tele.Context) error {
	return tghelpers.SendText(c, h.msgs.Help)
}

// UnknownCommand answers unregistered slash commands.
func (h *Handlers) UnknownCommand(c tele.Context) error {
	return tghelpers.SendText(c, h.msgs.UnknownCommand)
}

// Document asks the user to resend a file as a photo.
func (h *Handlers) Document(c tele.Context) error {
	return tghelpers.SendText(c, h.msgs.DocumentUnsupported)
}

// RateLimited is the rate limiter's reply.
func (h *Handlers) RateLimited(c tele.Context) error {
	return tghelpers.SendText(c, h.msgs.RateLimited)
}

// Idle accepts a menu name as a shortcut for /start plus selection and
// re-prompts for anything else.
func (h *Handlers) Idle(c tele.Context) error {
	msg := c.Message()
	if msg != nil && msg.Photo == nil && h.tracker.IsEstablishment(c.Text()) {
		return h.selectEstablishment(c)
	}
	logger.Info(tghelpers.BuildContext(c), component, "feedback.rejected",
		slog.String("status", "skip"),
		slog.String("outcome", "reprompt"),
		slog.String("phase", string(session.PhaseIdle)),
	)
	return tghelpers.SendText(c, h.msgs.StartFirst)
}

// AwaitingEstablishment matches text against the menu. Photos and unknown
// names re-prompt with the menu and keep the phase.
func (h *Handlers) AwaitingEstablishment(c tele.Context) error {
	if msg := c.Message(); msg != nil && msg.Photo != nil {
		return h.reprompt(c)
	}
	return h.selectEstablishment(c)
}

// AwaitingFeedback records the text or photo and ends the conversation.
func (h *Handlers) AwaitingFeedback(c tele.Context) error {
	user := c.Sender()
	msg := c.Message()
	if user == nil || msg == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	var (
		rec feedback.Receipt
		err error
	)
	if msg.Photo != nil {
		rec, err = h.recorder.RecordPhoto(ctx, user.ID, photoOf(msg.Photo), msg.Caption)
	} else {
		rec, err = h.recorder.RecordText(ctx, user.ID, msg.Text)
	}

	switch {
	case errors.Is(err, feedback.ErrNoEstablishmentSelected):
		return tghelpers.SendText(c, h.msgs.StartFirst)
	case err != nil:
		logger.Warn(ctx, component, "feedback.dropped",
			slog.String("status", "fail"),
			slog.Int64("user_id", user.ID),
			slog.String("err", logger.RedactSecrets(err.Error())),
		)
		return tghelpers.SendKeyboard(c, h.msgs.TryAgain, keyboard.RemoveKeyboard())
	}

	// Sent as one message so the photo notice always comes first.
	reply := h.msgs.ThankYou
	if rec.PhotoDropped {
		reply = h.msgs.PhotoNotSaved + "\n\n" + reply
	}
	return tghelpers.SendKeyboard(c, reply, keyboard.RemoveKeyboard())
}

func (h *Handlers) selectEstablishment(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	sel, err := h.tracker.SelectEstablishment(ctx, user.ID, c.Text())
	if err != nil {
		logger.Error(ctx, component, "select.failed",
			slog.Int64("user_id", user.ID),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, h.msgs.TryAgain)
	}
	if !sel.Matched {
		return h.reprompt(c)
	}
	return tghelpers.SendKeyboard(c, h.msgs.SelectedFor(sel.Establishment), keyboard.RemoveKeyboard())
}

func (h *Handlers) reprompt(c tele.Context) error {
	return tghelpers.SendKeyboard(c, h.msgs.NotInMenu, keyboard.Menu(h.tracker.Establishments(), h.columns))
}

// storeUnavailable runs when the session store cannot be read.
func (h *Handlers) storeUnavailable(c tele.Context) error {
	return tghelpers.SendText(c, h.msgs.TryAgain)
}

func photoOf(p *tele.Photo) feedback.Photo {
	return feedback.Photo{
		FileID:   p.FileID,
		UniqueID: p.UniqueID,
		Size:     p.FileSize,
	}
}
