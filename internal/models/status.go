package models

import "fmt"

// StatusLabel is the presentation status derived from a show and the current time.
type StatusLabel int

const (
	LabelScheduled StatusLabel = iota
	LabelConfirmed
	LabelInProgress
	LabelCompleted
	LabelCancelled
)

var labelCodes = [...]string{
	LabelScheduled:  "scheduled",
	LabelConfirmed:  "confirmed",
	LabelInProgress: "in_progress",
	LabelCompleted:  "completed",
	LabelCancelled:  "cancelled",
}

func (l StatusLabel) String() string {
	if l < 0 || int(l) >= len(labelCodes) {
		return "unknown"
	}
	return labelCodes[l]
}

func (l StatusLabel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *StatusLabel) UnmarshalText(text []byte) error {
	for i, code := range labelCodes {
		if code == string(text) {
			*l = StatusLabel(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status label %q", text)
}

// Terminal labels never change again as time passes.
func (l StatusLabel) Terminal() bool {
	return l == LabelCancelled || l == LabelCompleted
}

// StatusInfo is a derived label together with its display metadata.
type StatusInfo struct {
	Label      StatusLabel `json:"label"`
	IsTerminal bool        `json:"isTerminal"`
	Text       string      `json:"text"`
	Icon       string      `json:"icon"`
	Color      string      `json:"color"`
}

type labelPresentation struct {
	text  string
	icon  string
	color string
}

var presentations = map[StatusLabel]labelPresentation{
	LabelCancelled:  {"Cancelado", "fa-times-circle", "gray"},
	LabelCompleted:  {"Concluído", "fa-check-circle", "green"},
	LabelInProgress: {"Em Andamento", "fa-compact-disc animate-spin", "yellow"},
	LabelConfirmed:  {"Confirmado", "fa-calendar-check", "blue"},
	LabelScheduled:  {"Agendado", "fa-calendar-alt", "purple"},
}

func NewStatusInfo(label StatusLabel) StatusInfo {
	p, ok := presentations[label]
	if !ok {
		p = presentations[LabelScheduled]
	}
	return StatusInfo{
		Label:      label,
		IsTerminal: label.Terminal(),
		Text:       p.text,
		Icon:       p.icon,
		Color:      p.color,
	}
}
