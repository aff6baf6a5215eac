package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"agenda/internal/models"
	"agenda/internal/schedule"
	"agenda/internal/share"

	"github.com/xuri/excelize/v2"
)

const (
	agendaSheet  = "Agenda"
	summarySheet = "Resumo"
	brlFormat    = `"R$" #,##0.00`
)

var agendaHeaders = []string{
	"Data", "Dia", "Local", "Início", "Término", "Duração",
	"Cachê", "Adiantamento", "Saldo", "Situação", "Observações",
}

// statusFill maps the presentation color of a status to a row fill.
var statusFill = map[string]string{
	"gray":   "#E7E6E6",
	"green":  "#E2EFDA",
	"yellow": "#FFF2CC",
	"blue":   "#DDEBF7",
	"purple": "#E4DFEC",
}

// Workbook builds a spreadsheet with one row per show and a monthly summary.
// Statuses are derived at now.
func Workbook(artist models.ArtistInfo, shows []models.Show, now time.Time) (*excelize.File, error) {
	sorted := append([]models.Show(nil), shows...)
	schedule.Sort(sorted)

	f := excelize.NewFile()
	index, err := f.NewSheet(agendaSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := writeAgenda(f, artist, sorted, now); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSummary(f, sorted); err != nil {
		f.Close()
		return nil, err
	}

	// drop the default sheet
	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

func writeAgenda(f *excelize.File, artist models.ArtistInfo, shows []models.Show, now time.Time) error {
	lastCol, _ := excelize.ColumnNumberToName(len(agendaHeaders))

	_ = f.SetCellValue(agendaSheet, "A1", fmt.Sprintf("Agenda de Shows - %s", artist.Name))
	_ = f.MergeCell(agendaSheet, "A1", lastCol+"1")
	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	_ = f.SetCellStyle(agendaSheet, "A1", "A1", titleStyle)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#BDD7EE"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	for i, h := range agendaHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(agendaSheet, cell, h)
	}
	_ = f.SetCellStyle(agendaSheet, "A2", lastCol+"2", headerStyle)

	rowStyles := make(map[string]int, len(statusFill))
	for color, fill := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		rowStyles[color] = id
	}
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(brlFormat)})
	if err != nil {
		return err
	}

	row := 3
	for _, show := range shows {
		info := schedule.Classify(show, now)
		values := []interface{}{
			show.Date,
			weekday(show.Date),
			show.Location,
			show.StartTime,
			show.EndTime,
			share.FormatDuration(show.Duration),
			show.Fee,
			show.Advance,
			show.BalanceDue(),
			info.Text,
			show.Notes,
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(agendaSheet, start, &values); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
		if style, ok := rowStyles[info.Color]; ok {
			_ = f.SetCellStyle(agendaSheet, start, fmt.Sprintf("%s%d", lastCol, row), style)
		}
		_ = f.SetCellStyle(agendaSheet, fmt.Sprintf("G%d", row), fmt.Sprintf("I%d", row), money)
		row++
	}

	totalStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true},
		CustomNumFmt: strPtr(brlFormat),
	})
	if err != nil {
		return err
	}
	_ = f.SetCellValue(agendaSheet, fmt.Sprintf("A%d", row), "Total")
	if len(shows) > 0 {
		for _, col := range []string{"G", "H", "I"} {
			_ = f.SetCellFormula(agendaSheet, fmt.Sprintf("%s%d", col, row), fmt.Sprintf("SUM(%s3:%s%d)", col, col, row-1))
		}
	}
	_ = f.SetCellStyle(agendaSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("I%d", row), totalStyle)

	_ = f.SetColWidth(agendaSheet, "A", "B", 14)
	_ = f.SetColWidth(agendaSheet, "C", "C", 28)
	_ = f.SetColWidth(agendaSheet, "D", "E", 10)
	_ = f.SetColWidth(agendaSheet, "F", "F", 26)
	_ = f.SetColWidth(agendaSheet, "G", "J", 16)
	_ = f.SetColWidth(agendaSheet, "K", "K", 40)
	return nil
}

func writeSummary(f *excelize.File, shows []models.Show) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	header := []interface{}{"Mês", "Shows", "Cachê", "Adiantamento", "Saldo"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	_ = f.SetCellStyle(summarySheet, "A1", "E1", bold)
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(brlFormat)})
	if err != nil {
		return err
	}

	row := 2
	for _, group := range schedule.GroupByMonth(shows) {
		stats := schedule.Summarize(group.Shows, group.Year)
		values := []interface{}{
			fmt.Sprintf("%s %d", share.MonthName(group.Month), group.Year),
			stats.TotalShows,
			stats.TotalRevenue,
			stats.TotalAdvance,
			stats.Balance,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return err
		}
		_ = f.SetCellStyle(summarySheet, fmt.Sprintf("C%d", row), fmt.Sprintf("E%d", row), money)
		row++
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 20)
	_ = f.SetColWidth(summarySheet, "B", "E", 16)
	return nil
}

// Write renders the workbook of shows as xlsx into w.
func Write(w io.Writer, artist models.ArtistInfo, shows []models.Show, now time.Time) error {
	f, err := Workbook(artist, shows, now)
	if err != nil {
		return err
	}
	defer f.Close()
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return fmt.Errorf("error rendering workbook: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// FileName is the export file name for a workbook rendered at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("agenda_%s.xlsx", now.Format("2006-01-02_150405"))
}

// SaveFile stores the workbook under dir and returns its path.
func SaveFile(dir string, artist models.ArtistInfo, shows []models.Show, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}
	f, err := Workbook(artist, shows, now)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(dir, FileName(now))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

func weekday(date string) string {
	day, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return ""
	}
	return share.WeekdayName(day.Weekday())
}

func strPtr(s string) *string { return &s }
