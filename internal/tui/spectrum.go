// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"spectra/internal/display"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	spectrumStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	gapStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	axisStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5F5F87"))
)

var (
	sparkRunes = []rune(" ▁▂▃▄▅▆▇█")
	shadeRunes = []rune(" ░▒▓█")
)

const minSpectrumHz = 20.0

// tickMsg drives the periodic refresh of both consumers.
type tickMsg time.Time

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// SpectrumModel is the Bubble Tea model rendering a live spectrum line above
// a scrolling spectrogram. Both views pull from their own consumers, so each
// keeps its own read position and gap bookkeeping.
type SpectrumModel struct {
	live *display.Consumer
	gram *display.Consumer

	binWidth float64
	floorDB  float64
	interval time.Duration

	scaler *display.FreqScaler
	maxHz  float64
	width  int
	height int
	ready  bool
	err    error
}

// NewSpectrumModel creates the spectrum view. live and gram must be distinct
// consumers; binWidth is the frequency step between row bins.
func NewSpectrumModel(live, gram *display.Consumer, binWidth, floorDB float64, interval time.Duration) SpectrumModel {
	return SpectrumModel{
		live:     live,
		gram:     gram,
		binWidth: binWidth,
		floorDB:  floorDB,
		interval: interval,
	}
}

func (m SpectrumModel) Init() tea.Cmd {
	return tickCmd(m.interval)
}

func (m SpectrumModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		if err := m.relayout(); err != nil {
			m.err = err
		}

	case tickMsg:
		m.live.Refresh()
		m.gram.Refresh()
		return m, tickCmd(m.interval)

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"))) {
			return m, tea.Quit
		}
	}

	return m, nil
}

// relayout rebuilds the frequency scaler for the current width and resizes
// the spectrogram span to the rows that fit the current height.
func (m *SpectrumModel) relayout() error {
	cols := m.width - 2
	if cols < 8 {
		cols = 8
	}
	// The top bin sits at (binCount-1)*binWidth; the scaler cannot reach
	// past it.
	maxHz := float64(m.gram.BinCount()-1) * m.binWidth
	if maxHz > 20000 {
		maxHz = 20000
	}
	scaler, err := display.NewFreqScaler(m.gram.BinCount(), m.binWidth, cols, minSpectrumHz, maxHz, true)
	if err != nil {
		return err
	}
	m.scaler = scaler
	m.maxHz = maxHz

	rows := m.height - 6
	if rows < 1 {
		rows = 1
	}
	return m.gram.Resize(rows)
}

func (m SpectrumModel) View() string {
	if !m.ready || m.scaler == nil {
		return "Initializing..."
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Live Spectrum"))
	sb.WriteString("\n")
	sb.WriteString(m.renderLive())
	sb.WriteString("\n")
	sb.WriteString(axisStyle.Render(fmt.Sprintf("%.0f Hz → %.0f Hz (log)", minSpectrumHz, m.maxHz)))
	sb.WriteString("\n")
	sb.WriteString(m.renderSpectrogram())
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("q: Quit"))
	return sb.String()
}

// renderLive draws the most recent live row as one sparkline.
func (m SpectrumModel) renderLive() string {
	row := m.live.Latest()
	if row == nil || !row.Valid {
		return gapStyle.Render(strings.Repeat("·", m.scaler.OutputLen()))
	}
	out := m.scaler.Resample(row.Bins)
	runes := make([]rune, len(out))
	for i, db := range out {
		runes[i] = levelRune(db, m.floorDB, sparkRunes)
	}
	return spectrumStyle.Render(string(runes))
}

// renderSpectrogram draws retained rows oldest at the top, newest at the
// bottom. Gap rows show as dotted lines.
func (m SpectrumModel) renderSpectrogram() string {
	var sb strings.Builder
	span := m.gram.Span()
	n := m.gram.Len()

	// Pad with blank lines so the newest row stays pinned at the bottom.
	for i := 0; i < span-n; i++ {
		sb.WriteString("\n")
	}

	for i := 0; i < n; i++ {
		row := m.gram.At(i)
		if !row.Valid {
			sb.WriteString(gapStyle.Render(strings.Repeat("·", m.scaler.OutputLen())))
			sb.WriteString("\n")
			continue
		}
		out := m.scaler.Resample(row.Bins)
		runes := make([]rune, len(out))
		for j, db := range out {
			runes[j] = levelRune(db, m.floorDB, shadeRunes)
		}
		sb.WriteString(string(runes))
		sb.WriteString("\n")
	}
	return sb.String()
}

// levelRune maps a dB value in [floorDB, 0] onto the given rune ramp.
func levelRune(db, floorDB float64, ramp []rune) rune {
	if math.IsInf(db, -1) || db <= floorDB {
		return ramp[0]
	}
	x := (db - floorDB) / -floorDB
	if x >= 1 {
		return ramp[len(ramp)-1]
	}
	return ramp[int(x*float64(len(ramp)))]
}

// StartSpectrumUI launches the Bubble Tea spectrum view and blocks until the
// user quits.
func StartSpectrumUI(live, gram *display.Consumer, binWidth, floorDB float64, interval time.Duration) error {
	p := tea.NewProgram(
		NewSpectrumModel(live, gram, binWidth, floorDB, interval),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
