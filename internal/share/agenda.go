package share

import (
	"strings"
	"time"

	"agenda/internal/models"
	"agenda/internal/schedule"
)

const (
	artistSeparator = "___________________________"
	showSeparator   = "----------------------------"
	emptyAgenda     = "Nenhum show na agenda por enquanto."
)

// AgendaText builds the plain-text agenda the artist pastes into chats.
// Shows are listed chronologically; the input slice is not modified.
func AgendaText(artist models.ArtistInfo, shows []models.Show) string {
	return AgendaMarkup(artist, shows, func(s string) string { return s })
}

// AgendaMarkup is AgendaText for chats that parse the * markers: escape is
// applied to names, locations and the separator lines.
func AgendaMarkup(artist models.ArtistInfo, shows []models.Show, escape func(string) string) string {
	sorted := make([]models.Show, len(shows))
	copy(sorted, shows)
	schedule.Sort(sorted)

	var b strings.Builder
	if name := strings.TrimSpace(artist.Name); name != "" {
		b.WriteString("*" + escape(Upper(name)) + "*\n")
		b.WriteString(escape(artistSeparator) + "\n")
	}
	b.WriteString("\n*PRÓXIMOS SHOWS*:\n")

	if len(sorted) == 0 {
		b.WriteString(emptyAgenda)
		return b.String()
	}

	for _, show := range sorted {
		if day, err := time.Parse(models.DateLayout, show.Date); err == nil {
			b.WriteString(LongDate(day) + "\n")
		} else {
			b.WriteString(escape(show.Date) + "\n")
		}
		b.WriteString("*" + escape(Upper(show.Location)) + "*\n")
		if line := timeLine(show); line != "" {
			b.WriteString(line + "\n")
		}
		b.WriteString(escape(showSeparator) + "\n")
	}
	return b.String()
}

func timeLine(show models.Show) string {
	switch {
	case show.StartTime != "" && show.EndTime != "" && show.Duration > 0:
		return "*Das* " + show.StartTime + " *às* " + show.EndTime
	case show.StartTime != "":
		return "*Das* " + show.StartTime
	}
	return ""
}
