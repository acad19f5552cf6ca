package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var toastStyles = map[Severity]lipgloss.Style{
	SeveritySuccess: toastBase.Background(lipgloss.Color("#44a08d")),
	SeverityError:   toastBase.Background(lipgloss.Color("#ee5a52")),
	SeverityInfo:    toastBase.Background(lipgloss.Color("#667eea")),
	SeverityLoading: toastBase.Background(lipgloss.Color("#6b7280")),
}

var toastBase = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#ffffff")).
	Padding(0, 2).
	MarginBottom(1)

var toastIcons = map[Severity]string{
	SeveritySuccess: "✔",
	SeverityError:   "✖",
	SeverityInfo:    "ℹ",
	SeverityLoading: "…",
}

// Terminal renders notifications as coloured one-line toasts
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
}

func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

func (t *Terminal) Notify(message string, opts Options) {
	style, ok := toastStyles[opts.Severity]
	if !ok {
		style = toastStyles[SeverityInfo]
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, style.Render(toastIcons[opts.Severity]+" "+message))
}
