package share

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer = message.NewPrinter(language.BrazilianPortuguese)
	upper   = cases.Upper(language.BrazilianPortuguese)
)

var weekdays = [...]string{
	time.Sunday:    "domingo",
	time.Monday:    "segunda-feira",
	time.Tuesday:   "terça-feira",
	time.Wednesday: "quarta-feira",
	time.Thursday:  "quinta-feira",
	time.Friday:    "sexta-feira",
	time.Saturday:  "sábado",
}

var months = [...]string{
	"", "janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// Upper uppercases text with Portuguese casing rules.
func Upper(s string) string {
	return upper.String(s)
}

// LongDate renders "quarta-feira, 12 de novembro".
func LongDate(t time.Time) string {
	return fmt.Sprintf("%s, %d de %s", weekdays[t.Weekday()], t.Day(), months[t.Month()])
}

func WeekdayName(d time.Weekday) string {
	if d < time.Sunday || d > time.Saturday {
		return ""
	}
	return weekdays[d]
}

// MonthName returns the Portuguese month name.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return months[m]
}

// FormatBRL renders a value as Brazilian reais, e.g. "R$ 1.500,00".
func FormatBRL(value float64) string {
	if value < 0 {
		return "-R$ " + printer.Sprintf("%.2f", -value)
	}
	return "R$ " + printer.Sprintf("%.2f", value)
}

// ParseBRL reads "R$ 1.500,00" (or "1500,5") back into a number. Invalid input yields 0.
func ParseBRL(value string) float64 {
	value = strings.TrimSpace(strings.Replace(value, "R$", "", 1))
	if value == "" {
		return 0
	}
	value = strings.ReplaceAll(value, ".", "")
	value = strings.Replace(value, ",", ".", 1)
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return f
}

// FormatDuration renders minutes as "2 horas e 30 minutos".
func FormatDuration(totalMinutes int) string {
	if totalMinutes <= 0 {
		return "Tempo não Fornecido"
	}
	hours := totalMinutes / 60
	minutes := totalMinutes % 60

	var parts []string
	if hours > 0 {
		parts = append(parts, plural(hours, "hora"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minuto"))
	}
	return strings.Join(parts, " e ")
}

func plural(n int, word string) string {
	if n > 1 {
		return fmt.Sprintf("%d %ss", n, word)
	}
	return fmt.Sprintf("%d %s", n, word)
}

// FormatCPF applies the XXX.XXX.XXX-XX mask to the digits of value.
// Partial input is masked as far as it goes.
func FormatCPF(value string) string {
	digits := Digits(value)
	if len(digits) > 11 {
		digits = digits[:11]
	}
	switch {
	case len(digits) > 9:
		return digits[:3] + "." + digits[3:6] + "." + digits[6:9] + "-" + digits[9:]
	case len(digits) > 6:
		return digits[:3] + "." + digits[3:6] + "." + digits[6:]
	case len(digits) > 3:
		return digits[:3] + "." + digits[3:]
	}
	return digits
}

// Digits strips everything but ASCII digits.
func Digits(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
