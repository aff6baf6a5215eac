package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"agenda/internal/database"
	"agenda/internal/models"
	"agenda/internal/schedule"
	"agenda/internal/share"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	cmdStart    = "start"
	cmdHelp     = "ajuda"
	cmdAgenda   = "agenda"
	cmdToday    = "hoje"
	cmdTomorrow = "amanha"
	cmdShow     = "show"
	cmdSummary  = "resumo"
)

const helpText = `Comandos:
/agenda - próximos shows
/hoje - shows de hoje
/amanha - shows de amanhã
/show <id> - detalhes de um show
/resumo [ano] - resumo financeiro`

const errText = "❌ Não foi possível consultar a agenda."

func (b *Bot) handleCommand(ctx context.Context, chatID int64, command, args string) {
	if b.metrics != nil {
		b.metrics.CommandsProcessed.WithLabelValues(command).Inc()
	}

	var (
		text     string
		err      error
		markdown = true
	)
	switch command {
	case cmdStart, cmdHelp:
		text, markdown = helpText, false
	case cmdAgenda:
		text, err = b.agendaText(ctx)
	case cmdToday:
		text, err = b.dayText(ctx, 0)
	case cmdTomorrow:
		text, err = b.dayText(ctx, 1)
	case cmdShow:
		text, err = b.showText(ctx, args)
	case cmdSummary:
		text, err = b.summaryText(ctx, args)
	default:
		text, markdown = "Comando desconhecido.\n\n"+helpText, false
	}

	if err != nil {
		if b.metrics != nil {
			b.metrics.ErrorsTotal.Inc()
		}
		zerolog.Ctx(ctx).Error().Err(err).Msg("command failed")
		text, markdown = errText, false
	}
	b.reply(chatID, text, markdown)
}

// escape makes user text safe inside legacy Markdown replies.
func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func (b *Bot) agendaText(ctx context.Context) (string, error) {
	artist, err := b.artist.Get(ctx)
	if err != nil {
		return "", err
	}
	shows, err := b.shows.ListShows(ctx, schedule.Filter{Period: schedule.PeriodUpcoming})
	if err != nil {
		return "", err
	}
	return share.AgendaMarkup(artist, shows, escape), nil
}

func (b *Bot) dayText(ctx context.Context, offsetDays int) (string, error) {
	now := b.clock.Now().In(b.loc)
	day := now.AddDate(0, 0, offsetDays)
	shows, err := b.shows.ShowsOn(ctx, day.Format(models.DateLayout))
	if err != nil {
		return "", err
	}
	schedule.Sort(shows)

	var sb strings.Builder
	sb.WriteString("*" + share.LongDate(day) + "*\n")
	if len(shows) == 0 {
		sb.WriteString("Nenhum show.")
		return sb.String(), nil
	}
	for _, show := range shows {
		sb.WriteString("\n" + showLine(show, now))
	}
	return sb.String(), nil
}

func (b *Bot) showText(ctx context.Context, args string) (string, error) {
	id, err := strconv.ParseInt(args, 10, 64)
	if err != nil || id <= 0 {
		return escape("Uso: /show <id>"), nil
	}
	show, err := b.shows.GetShow(ctx, id)
	if errors.Is(err, database.ErrShowNotFound) {
		return fmt.Sprintf("Show %d não encontrado.", id), nil
	}
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(showLine(*show, b.clock.Now().In(b.loc)) + "\n")
	sb.WriteString("Data: " + escape(show.Date) + "\n")
	if show.Duration > 0 {
		sb.WriteString("Duração: " + share.FormatDuration(show.Duration) + "\n")
	}
	sb.WriteString("Cachê: " + share.FormatBRL(show.Fee) + "\n")
	sb.WriteString("Adiantamento: " + share.FormatBRL(show.Advance) + "\n")
	sb.WriteString("A receber: " + share.FormatBRL(show.BalanceDue()))
	if show.Notes != "" {
		sb.WriteString("\n" + escape(show.Notes))
	}
	return sb.String(), nil
}

func (b *Bot) summaryText(ctx context.Context, args string) (string, error) {
	year := 0
	if args != "" {
		y, err := strconv.Atoi(args)
		if err != nil {
			return escape("Uso: /resumo [ano]"), nil
		}
		year = y
	}
	stats, err := b.shows.Stats(ctx, year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("*Resumo %d*\nShows: %d\nReceita: %s\nAdiantado: %s\nA receber: %s",
		stats.Year, stats.TotalShows,
		share.FormatBRL(stats.TotalRevenue),
		share.FormatBRL(stats.TotalAdvance),
		share.FormatBRL(stats.Balance)), nil
}

func showLine(show models.Show, now time.Time) string {
	info := schedule.Classify(show, now)
	line := "*" + escape(show.Location) + "*"
	if show.StartTime != "" {
		line += " " + show.StartTime
		if show.EndTime != "" {
			line += "–" + show.EndTime
		}
	}
	return fmt.Sprintf("%s (%s) #%d", line, info.Text, show.ID)
}
