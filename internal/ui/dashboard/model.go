// Package dashboard renders one day of tracked time in the terminal.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	statsdto "analyzeit/internal/modules/stats/dto"
	"analyzeit/internal/ui/theme"
)

const (
	dateLayout      = "2006-01-02"
	refreshInterval = 30 * time.Second
	barWidth        = 30
	topSites        = 15
)

type StatsPort interface {
	Today(ctx context.Context, date string) (statsdto.DaySummaryOutput, error)
}

type SummaryLoadedMsg struct {
	Date    string
	Summary statsdto.DaySummaryOutput
	Err     error
}

type refreshMsg struct{}

type keyMap struct {
	Prev    key.Binding
	Next    key.Binding
	Today   key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Prev:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous day")),
		Next:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next day")),
		Today:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "today")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q", "esc"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Today, k.Refresh, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

type Model struct {
	port    StatsPort
	date    string
	today   func() string
	summary statsdto.DaySummaryOutput
	err     error
	loading bool

	keys    keyMap
	help    help.Model
	body    viewport.Model
	spinner spinner.Model
	width   int
	height  int
}

// NewModel opens the dashboard on date, or on the local today when date is empty.
func NewModel(port StatsPort, date string) Model {
	today := func() string { return time.Now().Format(dateLayout) }
	if strings.TrimSpace(date) == "" {
		date = today()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().Foreground(theme.Text)

	return Model{
		port:    port,
		date:    date,
		today:   today,
		loading: true,
		keys:    defaultKeys(),
		help:    help.New(),
		body:    vp,
		spinner: sp,
	}
}

func (m Model) Date() string { return m.date }

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(m.date), m.spinner.Tick, refreshCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.body.Width = msg.Width
		m.body.Height = max(msg.Height-4, 1)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Prev):
			return m.moveTo(ShiftDate(m.date, -1))
		case key.Matches(msg, m.keys.Next):
			return m.moveTo(ShiftDate(m.date, 1))
		case key.Matches(msg, m.keys.Today):
			return m.moveTo(m.today())
		case key.Matches(msg, m.keys.Refresh):
			return m, m.loadCmd(m.date)
		}

	case SummaryLoadedMsg:
		// Drop answers for a day the user already navigated away from.
		if msg.Date != m.date {
			return m, nil
		}
		m.loading = false
		m.summary = msg.Summary
		m.err = msg.Err
		m.body.SetContent(RenderSummary(msg.Summary, m.width))

	case refreshMsg:
		return m, tea.Batch(m.loadCmd(m.date), refreshCmd())

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.body, cmd = m.body.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	header := theme.Title.Render("analyzeit") + "  " + theme.Hot.Render(m.date)
	if m.summary.Date == m.date && !m.loading {
		header += "  " + theme.Muted.Render("total "+FormatDuration(m.summary.TotalSeconds))
	}
	var body string
	switch {
	case m.loading:
		body = m.spinner.View() + " Loading…"
	case m.err != nil:
		body = theme.Error.Render(m.err.Error())
	default:
		body = m.body.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, m.help.View(m.keys))
}

func (m Model) moveTo(date string) (tea.Model, tea.Cmd) {
	if date == "" || date == m.date {
		return m, nil
	}
	m.date = date
	m.loading = true
	return m, tea.Batch(m.loadCmd(date), m.spinner.Tick)
}

func (m Model) loadCmd(date string) tea.Cmd {
	return func() tea.Msg {
		summary, err := m.port.Today(context.Background(), date)
		return SummaryLoadedMsg{Date: date, Summary: summary, Err: err}
	}
}

func refreshCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshMsg{} })
}

// ShiftDate moves a YYYY-MM-DD date by days. It returns "" for a malformed date.
func ShiftDate(date string, days int) string {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, days).Format(dateLayout)
}

// FormatDuration renders seconds as "1h 05m", "12m 30s" or "45s".
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// RenderSummary draws the category bars followed by the busiest sites.
func RenderSummary(summary statsdto.DaySummaryOutput, width int) string {
	if summary.TotalSeconds <= 0 {
		return theme.Muted.Render("Nothing tracked for this day yet.")
	}
	nameWidth := 0
	for _, cat := range summary.Categories {
		nameWidth = max(nameWidth, lipgloss.Width(cat.Name))
	}

	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Categories") + "\n")
	for _, cat := range summary.Categories {
		filled := int(cat.Seconds * barWidth / summary.TotalSeconds)
		if filled == 0 && cat.Seconds > 0 {
			filled = 1
		}
		bar := lipgloss.NewStyle().Foreground(theme.CategoryColor(cat.Name)).Render(strings.Repeat("█", filled)) +
			theme.Muted.Render(strings.Repeat("░", barWidth-filled))
		pct := float64(cat.Seconds) * 100 / float64(summary.TotalSeconds)
		fmt.Fprintf(&sb, "%-*s %s %5.1f%%  %s\n", nameWidth, cat.Name, bar, pct, FormatDuration(cat.Seconds))
	}

	sb.WriteString("\n" + theme.Title.Render("Top sites") + "\n")
	limit := min(len(summary.Sites), topSites)
	for _, site := range summary.Sites[:limit] {
		label := site.Domain
		if site.Title != "" && site.Title != site.Domain {
			label += theme.Muted.Render("  " + site.Title)
		}
		line := fmt.Sprintf("%9s  %s  %s", FormatDuration(site.Seconds),
			lipgloss.NewStyle().Foreground(theme.CategoryColor(site.Category)).Render("●"), label)
		if width > 0 {
			line = lipgloss.NewStyle().MaxWidth(width).Render(line)
		}
		sb.WriteString(line + "\n")
	}
	if rest := len(summary.Sites) - limit; rest > 0 {
		sb.WriteString(theme.Muted.Render(fmt.Sprintf("… and %d more", rest)) + "\n")
	}
	return sb.String()
}
