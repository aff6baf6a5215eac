package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agenda/internal/domain"
	"agenda/internal/events"
	"agenda/internal/models"
	"agenda/internal/schedule"
	"agenda/internal/share"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// ShowLister reads the shows of one date.
type ShowLister interface {
	ListShowsByDate(ctx context.Context, date string) ([]models.Show, error)
}

// Notifier delivers reminders, shared agendas and show events to one Telegram chat.
type Notifier struct {
	sender       domain.TelegramSender
	chatID       int64
	shows        ShowLister
	clock        schedule.Clock
	loc          *time.Location
	reminderHour int
	reminderMin  int
	logger       zerolog.Logger
}

type Options struct {
	ChatID       int64
	ReminderTime string
	Location     *time.Location
	Clock        schedule.Clock
}

func NewNotifier(sender domain.TelegramSender, shows ShowLister, opts Options, logger *zerolog.Logger) (*Notifier, error) {
	hour, minute := models.ReminderHour, 0
	if opts.ReminderTime != "" {
		t, err := time.Parse(models.TimeLayout, opts.ReminderTime)
		if err != nil {
			return nil, fmt.Errorf("invalid reminder time %q: %w", opts.ReminderTime, err)
		}
		hour, minute = t.Hour(), t.Minute()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = schedule.RealClock{}
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "telegram").Logger()
	}
	return &Notifier{
		sender:       sender,
		chatID:       opts.ChatID,
		shows:        shows,
		clock:        opts.Clock,
		loc:          opts.Location,
		reminderHour: hour,
		reminderMin:  minute,
		logger:       l,
	}, nil
}

// StartReminders sends the next-day reminders every day at the reminder time
// until ctx is done.
func (n *Notifier) StartReminders(ctx context.Context) {
	timer := time.NewTimer(n.untilNextReminder())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := n.SendTomorrowReminders(ctx); err != nil {
				n.logger.Error().Err(err).Msg("reminder: send failed")
			}
			timer.Reset(n.untilNextReminder())
		}
	}
}

func (n *Notifier) untilNextReminder() time.Duration {
	now := n.clock.Now().In(n.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), n.reminderHour, n.reminderMin, 0, 0, n.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// SendTomorrowReminders sends one message per non-cancelled show booked for
// tomorrow and returns how many were sent.
func (n *Notifier) SendTomorrowReminders(ctx context.Context) (int, error) {
	tomorrow := n.clock.Now().In(n.loc).AddDate(0, 0, 1).Format(models.DateLayout)
	shows, err := n.shows.ListShowsByDate(ctx, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("reminder: load shows for %s: %w", tomorrow, err)
	}
	schedule.Sort(shows)

	sent := 0
	for _, show := range shows {
		if show.Status == models.ShowCancelled {
			continue
		}
		if err := n.send(ReminderText(show)); err != nil {
			n.logger.Error().Err(err).Int64("show_id", show.ID).Msg("reminder: send error")
			continue
		}
		sent++
	}
	if sent > 0 {
		n.logger.Info().Int("count", sent).Str("date", tomorrow).Msg("reminders sent")
	}
	return sent, nil
}

// SendAgenda shares the formatted agenda in the chat.
func (n *Notifier) SendAgenda(artist models.ArtistInfo, shows []models.Show) error {
	return n.send(share.AgendaMarkup(artist, shows, markdown))
}

// HandleEvent announces show changes in the chat. It is meant to be
// subscribed to the event bus.
func (n *Notifier) HandleEvent(event *events.Event) error {
	var payload events.ShowEventPayload
	if err := event.Decode(&payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}

	var text string
	switch event.Type {
	case events.EventShowCreated:
		if payload.Show == nil {
			return nil
		}
		text = "Novo show agendado:\n" + describe(*payload.Show)
	case events.EventShowDeleted:
		text = fmt.Sprintf("Show #%d removido da agenda.", payload.ShowID)
	case events.EventShowConflict:
		if payload.Show == nil {
			return nil
		}
		text = fmt.Sprintf("Conflito de horário com o show #%d:\n%s", payload.ConflictID, describe(*payload.Show))
	default:
		return nil
	}
	return n.send(text)
}

// ReminderText is the reminder message for show.
func ReminderText(show models.Show) string {
	return "Lembrete: amanhã tem show!\n" + describe(show)
}

func describe(show models.Show) string {
	var b strings.Builder
	b.WriteString("*" + markdown(share.Upper(show.Location)) + "*\n")
	if day, err := time.Parse(models.DateLayout, show.Date); err == nil {
		b.WriteString(share.LongDate(day))
	} else {
		b.WriteString(markdown(show.Date))
	}
	switch {
	case show.StartTime != "" && show.EndTime != "":
		b.WriteString(", das " + show.StartTime + " às " + show.EndTime)
	case show.StartTime != "":
		b.WriteString(", às " + show.StartTime)
	}
	if show.Fee > 0 {
		b.WriteString("\nCachê: " + share.FormatBRL(show.Fee))
	}
	return b.String()
}

// markdown escapes user text for legacy Markdown messages.
func markdown(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func (n *Notifier) send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := n.sender.Send(msg)
	return err
}
