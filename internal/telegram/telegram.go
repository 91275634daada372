// internal/telegram/telegram.go
package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"calorie-bot/internal/bot"
)

// Handler answers bot events.
type Handler interface {
	Handle(ctx context.Context, ev bot.Event) bot.Reply
}

// Poller receives Telegram updates by long polling and answers them through
// the handler. Each update is handled on its own goroutine.
type Poller struct {
	api     *tgbotapi.BotAPI
	handler Handler
	log     logrus.FieldLogger
	timeout int
}

func NewPoller(token string, handler Handler, log logrus.FieldLogger, pollTimeout int) (*Poller, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	if pollTimeout <= 0 {
		pollTimeout = 60
	}
	return &Poller{api: api, handler: handler, log: log, timeout: pollTimeout}, nil
}

// Run polls until ctx is cancelled, then waits for in-flight updates.
func (p *Poller) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = p.timeout
	updates := p.api.GetUpdatesChan(u)

	p.log.WithField("bot", p.api.Self.UserName).Info("telegram polling started")

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			p.api.StopReceivingUpdates()
			p.log.Info("telegram polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func(update tgbotapi.Update) {
				defer wg.Done()
				p.handleUpdate(ctx, update)
			}(update)
		}
	}
}

func (p *Poller) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	ev, ok := EventFromUpdate(update)
	if !ok {
		return
	}

	if update.CallbackQuery != nil {
		if _, err := p.api.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, "")); err != nil {
			p.log.WithError(err).Warn("failed to answer callback query")
		}
	}

	reply := p.handler.Handle(ctx, ev)

	msg, err := Render(update, reply)
	if err != nil {
		p.log.WithError(err).Error("failed to render reply")
		return
	}
	if _, err := p.api.Send(msg); err != nil {
		p.log.WithError(err).WithField("user_id", ev.UserID).Error("failed to send reply")
	}
}

// EventFromUpdate maps an update to a bot event. Updates the bot does not
// react to (edits, non-text messages, unknown commands) yield false.
func EventFromUpdate(update tgbotapi.Update) (bot.Event, bool) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.From == nil {
			return bot.Event{}, false
		}
		entryID, err := bot.ParseRemoveCallback(cq.Data)
		if err != nil {
			return bot.Event{}, false
		}
		ev := bot.Event{Kind: bot.RemoveCallback, UserID: cq.From.ID, EntryID: entryID}
		if cq.Message != nil && cq.Message.Chat != nil {
			ev.ConversationID = cq.Message.Chat.ID
		}
		return ev, true
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return bot.Event{}, false
	}
	ev := bot.Event{UserID: msg.From.ID, ConversationID: msg.Chat.ID}

	if !msg.IsCommand() {
		ev.Kind = bot.Text
		ev.Text = msg.Text
		return ev, true
	}

	switch strings.ToLower(msg.Command()) {
	case "start":
		ev.Kind = bot.OnboardingStart
	case "today":
		ev.Kind = bot.TodayQuery
	case "add":
		ev.Kind = bot.AddCustomText
		ev.Text = msg.CommandArguments()
	default:
		return bot.Event{}, false
	}
	return ev, true
}

// Render builds the outgoing Telegram message for a reply. Replies to
// callbacks edit the message that carried the button.
func Render(update tgbotapi.Update, reply bot.Reply) (tgbotapi.Chattable, error) {
	if cq := update.CallbackQuery; cq != nil && reply.Edit && cq.Message != nil && cq.Message.Chat != nil {
		edit := tgbotapi.NewEditMessageText(cq.Message.Chat.ID, cq.Message.MessageID, reply.Text)
		if reply.HTML {
			edit.ParseMode = tgbotapi.ModeHTML
		}
		return edit, nil
	}

	var chatID int64
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		chatID = update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		chatID = update.CallbackQuery.Message.Chat.ID
	default:
		return nil, fmt.Errorf("update %d has no chat to reply to", update.UpdateID)
	}

	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if reply.HTML {
		msg.ParseMode = tgbotapi.ModeHTML
	}
	if reply.CancelEntryID != 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Cancel", bot.RemoveCallbackData(reply.CancelEntryID)),
			),
		)
	}
	return msg, nil
}
