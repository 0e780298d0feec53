package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer provides a rich terminal UI using bubbletea.
type TUIRenderer struct {
	mu       sync.Mutex
	cfg      Config
	program  *tea.Program
	model    *cacheModel
	activity *ActivityLog
	cancel   context.CancelFunc
	started  bool
	done     chan struct{}
}

// NewTUIRenderer creates a TUI renderer. It fails for non-TTY output.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	activity := NewActivityLog(8)
	model := newCacheModel(activity, cfg.ProjectDir, cfg.Watch)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:      cfg,
		model:    model,
		activity: activity,
		done:     make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	ctx, r.cancel = context.WithCancel(ctx)

	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

func (r *TUIRenderer) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.send(progressMsg(event))
}

// UpdateStats implements Renderer.
func (r *TUIRenderer) UpdateStats(stats CacheStats) {
	r.send(statsMsg(stats))
}

// AddActivity implements Renderer.
func (r *TUIRenderer) AddActivity(event ActivityEvent) {
	r.activity.Add(event)
	r.send(activityMsg{})
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.send(errorMsg(event))
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.send(completeMsg(stats))
}

// Done implements Renderer.
func (r *TUIRenderer) Done() <-chan struct{} {
	return r.done
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	p := r.program
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	if p == nil {
		return nil
	}
	p.Quit()

	// An unresponsive terminal must not hang shutdown.
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	return nil
}

type (
	progressMsg ProgressEvent
	statsMsg    CacheStats
	errorMsg    ErrorEvent
	completeMsg CompletionStats
	activityMsg struct{}
	tickMsg     time.Time
)

// cacheModel is the bubbletea model for initialization and watching.
type cacheModel struct {
	activity   *ActivityLog
	projectDir string
	watch      bool

	progress ProgressEvent
	stats    CacheStats
	summary  CompletionStats
	errors   int
	warnings int
	lastErr  string
	complete bool
	quitting bool

	width       int
	spinner     spinner.Model
	progressBar progress.Model
	styles      Styles
}

func newCacheModel(activity *ActivityLog, projectDir string, watch bool) *cacheModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	p := progress.New(
		progress.WithSolidFill(ColorAccent),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	return &cacheModel{
		activity:    activity,
		projectDir:  projectDir,
		watch:       watch,
		width:       80,
		spinner:     s,
		progressBar: p,
		styles:      DefaultStyles(),
	}
}

// Init implements tea.Model.
func (m *cacheModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *cacheModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progressBar.Width = max(msg.Width-20, 20)

	case progressMsg:
		m.progress = ProgressEvent(msg)

	case statsMsg:
		m.stats = CacheStats(msg)

	case errorMsg:
		if msg.IsWarn {
			m.warnings++
		} else {
			m.errors++
		}
		if msg.Err != nil {
			m.lastErr = msg.Err.Error()
		}

	case completeMsg:
		m.complete = true
		m.summary = CompletionStats(msg)
		if m.stats.Classes == 0 {
			m.stats.Documents = m.summary.Files
			m.stats.Classes = m.summary.Classes
			m.stats.OpenDocuments = m.summary.OpenDocuments
		}
		if !m.watch {
			return m, tea.Quit
		}

	case tickMsg:
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *cacheModel) View() string {
	if m.quitting {
		return "Stopped.\n"
	}
	if m.complete && !m.watch {
		return m.renderSummary()
	}

	width := max(m.width-4, 40)
	sections := []string{
		m.renderStages(),
		m.renderDivider(width),
	}
	if m.complete {
		sections = append(sections, m.renderStats())
		sections = append(sections, m.renderDivider(width))
		sections = append(sections, m.renderActivity(width))
	} else {
		sections = append(sections, m.renderProgress())
	}

	title := "classcache"
	if m.projectDir != "" {
		title = "classcache • " + m.projectDir
	}
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorDarkGray)).
		Padding(0, 1).
		Width(width)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(title),
		panel.Render(strings.Join(sections, "\n")),
	) + "\n" + m.renderStatusBar()
}

func (m *cacheModel) currentStage() Stage {
	if m.complete {
		return StageWatching
	}
	return m.progress.Stage
}

func (m *cacheModel) renderStages() string {
	stages := []Stage{StageListing, StageReading, StageOpenDocuments}
	if m.watch {
		stages = append(stages, StageWatching)
	}
	current := m.currentStage()

	parts := make([]string, 0, len(stages))
	for _, s := range stages {
		switch {
		case s < current:
			parts = append(parts, m.styles.Success.Render("● "+s.String()))
		case s == current:
			parts = append(parts, m.styles.Active.Render(m.spinner.View()+" "+s.String()))
		default:
			parts = append(parts, m.styles.Dim.Render("○ "+s.String()))
		}
	}
	return strings.Join(parts, m.styles.Dim.Render(" → "))
}

func (m *cacheModel) renderProgress() string {
	p := m.progress
	if p.Total == 0 {
		return fmt.Sprintf("%s %s...", m.spinner.View(), p.Stage)
	}

	pct := float64(p.Current) / float64(p.Total)
	if pct > 1 {
		pct = 1
	}
	bar := m.progressBar.ViewAs(pct)
	pctStr := m.styles.Active.Render(fmt.Sprintf("%3.0f%%", pct*100))
	count := fmt.Sprintf("%d / %d files", p.Current, p.Total)
	if p.Failures > 0 {
		count += m.styles.Warning.Render(fmt.Sprintf("  (%d unreadable)", p.Failures))
	}
	return fmt.Sprintf("%s  %s\n%s", bar, pctStr, m.styles.Label.Render(count))
}

func (m *cacheModel) renderStats() string {
	row := func(label string, value any) string {
		return fmt.Sprintf("%s %s", m.styles.Label.Render(fmt.Sprintf("%-15s", label)), m.styles.Active.Render(fmt.Sprint(value)))
	}
	return strings.Join([]string{
		row("Documents:", m.stats.Documents),
		row("Classes:", m.stats.Classes),
		row("Open in editor:", m.stats.OpenDocuments),
		row("Events applied:", m.stats.Applied),
	}, "\n")
}

func (m *cacheModel) renderActivity(width int) string {
	spark := m.styles.Rate.Render(m.activity.Sparkline(width-12)) + " " + m.styles.Dim.Render("events/s")

	recent := m.activity.Recent()
	if len(recent) == 0 {
		return spark + "\n" + m.styles.Dim.Render("waiting for changes...")
	}

	lines := []string{spark}
	for i := len(recent) - 1; i >= 0; i-- {
		ev := recent[i]
		line := fmt.Sprintf("%s %-12s %s", ev.Time.Format("15:04:05"), ev.Kind, truncatePath(ev.Path, width-23))
		lines = append(lines, m.styles.Label.Render(line))
	}
	return strings.Join(lines, "\n")
}

func (m *cacheModel) renderDivider(width int) string {
	return m.styles.Border.Render(strings.Repeat("─", width))
}

func (m *cacheModel) renderStatusBar() string {
	var parts []string
	if m.warnings > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", m.warnings)))
	}
	if m.errors > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", m.errors)))
	}
	if m.lastErr != "" {
		parts = append(parts, m.styles.Dim.Render(truncatePath(m.lastErr, 60)))
	}
	parts = append(parts, m.styles.Dim.Render("q to quit"))
	return strings.Join(parts, m.styles.Dim.Render("  │  "))
}

func (m *cacheModel) renderSummary() string {
	s := m.summary
	lines := []string{
		m.styles.Success.Render("✓ Cache ready"),
		"",
		fmt.Sprintf("%s  %s", m.styles.Label.Render("Files:   "), m.styles.Active.Render(fmt.Sprint(s.Files))),
		fmt.Sprintf("%s  %s", m.styles.Label.Render("Classes: "), m.styles.Active.Render(fmt.Sprint(s.Classes))),
		fmt.Sprintf("%s  %s", m.styles.Label.Render("Duration:"), m.styles.Active.Render(formatDuration(s.Duration))),
	}
	if s.ReadFailures > 0 {
		lines = append(lines, "", m.styles.Warning.Render(fmt.Sprintf("⚠ %d files could not be read", s.ReadFailures)))
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccent)).
		Padding(1, 2).
		Width(max(m.width-4, 40))
	return panel.Render(strings.Join(lines, "\n")) + "\n"
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	d = d.Round(100 * time.Millisecond)
	if d < time.Minute {
		return d.String()
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	if s == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dm %ds", m, s)
}

// truncatePath shortens path to maxLen, keeping the end.
func truncatePath(path string, maxLen int) string {
	if maxLen < 4 {
		maxLen = 4
	}
	r := []rune(path)
	if len(r) <= maxLen {
		return path
	}
	return "..." + string(r[len(r)-maxLen+3:])
}

var _ Renderer = (*TUIRenderer)(nil)
