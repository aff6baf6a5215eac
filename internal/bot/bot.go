package bot

import (
	"context"
	"strings"
	"time"

	"agenda/internal/domain"
	"agenda/internal/models"
	"agenda/internal/schedule"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TelegramClient adapts *tgbotapi.BotAPI to domain.TelegramService.
type TelegramClient struct {
	*tgbotapi.BotAPI
}

func NewTelegramClient(api *tgbotapi.BotAPI) *TelegramClient {
	return &TelegramClient{BotAPI: api}
}

func (c *TelegramClient) GetSelf() tgbotapi.User {
	return c.Self
}

// ShowReader is the read side of the agenda the bot answers from.
type ShowReader interface {
	ListShows(ctx context.Context, filter schedule.Filter) ([]models.Show, error)
	ShowsOn(ctx context.Context, date string) ([]models.Show, error)
	GetShow(ctx context.Context, id int64) (*models.Show, error)
	Stats(ctx context.Context, year int) (models.Stats, error)
}

type ArtistReader interface {
	Get(ctx context.Context) (models.ArtistInfo, error)
}

type Options struct {
	// ChatID restricts the bot to one chat; zero answers any chat.
	ChatID       int64
	RateLimitRPS float64
	Location     *time.Location
	Clock        schedule.Clock
	Metrics      *Metrics
}

// Bot answers read-only agenda commands in Telegram.
type Bot struct {
	tg      domain.TelegramService
	shows   ShowReader
	artist  ArtistReader
	chatID  int64
	limiter *chatLimiter
	loc     *time.Location
	clock   schedule.Clock
	metrics *Metrics
	logger  *zerolog.Logger
}

func NewBot(tg domain.TelegramService, shows ShowReader, artist ArtistReader, opts Options, logger *zerolog.Logger) *Bot {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = schedule.RealClock{}
	}
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	l := logger.With().Str("component", "bot").Logger()
	return &Bot{
		tg:      tg,
		shows:   shows,
		artist:  artist,
		chatID:  opts.ChatID,
		limiter: newChatLimiter(opts.RateLimitRPS, 5),
		loc:     opts.Location,
		clock:   opts.Clock,
		metrics: opts.Metrics,
		logger:  &l,
	}
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tg.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

// Stop stops receiving Telegram updates (best-effort).
func (b *Bot) Stop() {
	if b == nil || b.tg == nil {
		return
	}
	b.tg.StopReceivingUpdates()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	if b.chatID != 0 && msg.Chat.ID != b.chatID {
		b.logger.Warn().Int64("chat_id", msg.Chat.ID).Msg("command from unknown chat ignored")
		return
	}

	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	l := b.logger.With().Str("request_id", uuid.NewString()).Str("command", msg.Command()).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		if !b.limiter.allow(msg.Chat.ID) {
			l.Warn().Int64("chat_id", msg.Chat.ID).Msg("Rate limit exceeded")
			b.reply(msg.Chat.ID, "⚠️ Muitas mensagens. Aguarde um pouco.", false)
			return
		}
		b.handleCommand(updateCtx, msg.Chat.ID, msg.Command(), strings.TrimSpace(msg.CommandArguments()))
	})
}

func (b *Bot) reply(chatID int64, text string, markdown bool) {
	m := tgbotapi.NewMessage(chatID, text)
	if markdown {
		m.ParseMode = tgbotapi.ModeMarkdown
	}
	if _, err := b.tg.Send(m); err != nil {
		if b.metrics != nil {
			b.metrics.ErrorsTotal.Inc()
		}
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("telegram send failed")
	}
}
