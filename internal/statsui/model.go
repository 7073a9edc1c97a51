// Package statsui provides the Bubble Tea dashboard interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typedash/internal/dashboard"
	"github.com/verte-zerg/typedash/internal/loader"
	"github.com/verte-zerg/typedash/internal/model"
	"github.com/verte-zerg/typedash/internal/stats"
)

const (
	tabOverall = iota
	tabPersonal
	tabAnalytics
	tabMisses
)

const (
	plotHeight   = 8
	rankingLimit = 10
	missRowLimit = 50
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Config selects the data and the initial view.
type Config struct {
	Source      loader.Source
	Cohort      loader.Cohort
	Clock       stats.Clock
	Period      dashboard.Period
	UserID      int64
	HasUser     bool
	CurveWindow int
}

// Model implements the Bubble Tea dashboard.
type Model struct {
	cfg Config

	tables   model.Tables
	report   stats.Report
	personal stats.PersonalReport
	users    []int64
	errMsg   string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	missTable table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs the dashboard model and loads the first snapshot.
func NewModel(cfg Config) *Model {
	if cfg.Period == "" {
		cfg.Period = dashboard.PeriodAll
	}
	if cfg.CurveWindow < 1 {
		cfg.CurveWindow = 5
	}
	m := &Model{
		cfg:  cfg,
		tabs: []string{"Overall", "Personal", "Analytics", "Misses"},
	}
	m.initInputs()
	m.missTable = buildMissTable(nil, 0, 1)
	m.initViewports()
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.filterMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "p":
			m.cfg.Period = nextPeriod(m.cfg.Period)
			m.refreshReport()
			return m, nil
		case "[":
			m.cycleUser(-1)
			return m, nil
		case "]":
			m.cycleUser(1)
			return m, nil
		case "=":
			m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
			m.renderTabContents()
			return m, nil
		case "-":
			m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
			m.renderTabContents()
			return m, nil
		case "r":
			m.refreshReport()
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			if m.activeTab == tabMisses {
				m.missTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabMisses {
				m.missTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabMisses {
				var cmd tea.Cmd
				m.missTable, cmd = m.missTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("User id: "),
		newFilterInput("Period (all/7d/30d/90d): "),
		newFilterInput("Curve window: "),
	}
	m.setInputsFromConfig()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	if m.cfg.HasUser {
		m.filterInputs[0].SetValue(strconv.FormatInt(m.cfg.UserID, 10))
	} else {
		m.filterInputs[0].SetValue("")
	}
	m.filterInputs[1].SetValue(string(m.cfg.Period))
	m.filterInputs[2].SetValue(strconv.Itoa(m.cfg.CurveWindow))
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.missTable.SetWidth(m.width)
	m.missTable.SetHeight(maxInt(1, vpHeight-1))
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := (m.activeTab + delta + count) % count
	m.activeTab = next
	if m.activeTab == tabMisses {
		m.missTable.Focus()
	} else {
		m.missTable.Blur()
	}
}

func (m *Model) cycleUser(delta int) {
	if len(m.users) == 0 {
		return
	}
	idx := 0
	for i, id := range m.users {
		if id == m.personal.UserID {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(m.users)) % len(m.users)
	m.cfg.UserID = m.users[idx]
	m.cfg.HasUser = true
	m.personal = stats.NewPersonalReport(m.tables, m.cfg.UserID)
	m.renderTabContents()
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	user := "first"
	if len(m.users) > 0 {
		user = fmt.Sprintf("%s (#%d)", m.personal.Username.Display(), m.personal.UserID)
	}
	summary := fmt.Sprintf("Settings: period=%s  user=%s  window=%d", m.cfg.Period, user, m.cfg.CurveWindow)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Period: p  Window: -/=  Settings: /  Reload: r  Quit: q"
	if m.activeTab == tabPersonal {
		help = "Nav: left/right  User: [/]  Period: p  Window: -/=  Settings: /  Reload: r  Quit: q"
	}
	return headerStyle.Render(help)
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabMisses && m.errMsg == "" {
		if len(m.report.Misses) == 0 {
			return fitLines(stats.NoDataMessage, m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.missTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	tables, err := loader.Load(context.Background(), m.cfg.Source, m.cfg.Cohort)
	if err != nil {
		m.errMsg = err.Error()
		m.tables = model.Tables{}
		m.report = stats.Report{}
		m.users = nil
		m.renderTabContents()
		return
	}
	m.errMsg = ""
	m.tables = dashboard.FilterPeriod(tables, m.cfg.Period)
	m.report = stats.NewReport(m.tables, m.cfg.Clock)
	m.users = userIDs(m.tables)

	userID := int64(0)
	if len(m.users) > 0 {
		userID = m.users[0]
	}
	if m.cfg.HasUser {
		for _, id := range m.users {
			if id == m.cfg.UserID {
				userID = id
				break
			}
		}
	}
	m.personal = stats.NewPersonalReport(m.tables, userID)

	m.missTable.SetRows(missRows(m.report.Misses, m.report.MissSummary.Total))
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load data.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverall].SetContent(renderOverall(m.report, width))
	m.viewports[tabPersonal].SetContent(m.renderPersonal(width))
	m.viewports[tabAnalytics].SetContent(render(func(buf *bytes.Buffer) error {
		return stats.RenderAnalytics(buf, m.report)
	}))
}

func renderOverall(r stats.Report, width int) string {
	if r.Tables.Empty() {
		return stats.NoDataMessage
	}
	cards := summaryCards(r.Summary, width)
	body := render(func(buf *bytes.Buffer) error {
		if err := stats.RenderGrowthRanking(buf, r.Growth, rankingLimit); err != nil {
			return err
		}
		return stats.RenderAverageRanking(buf, r.Averages, rankingLimit)
	})
	return strings.TrimRight(cards+"\n\n"+body, "\n")
}

func (m *Model) renderPersonal(width int) string {
	if len(m.users) == 0 {
		return stats.NoDataMessage
	}
	p := m.personal
	title := cardValueStyle.Render(fmt.Sprintf("%s  total growth %.1f%%", p.Username.Display(), p.TotalGrowth))
	cards := summaryCards(p.Summary, width)
	body := render(func(buf *bytes.Buffer) error {
		if err := stats.RenderModeCurvesWithSize(buf, p.Modes, m.cfg.CurveWindow, width, plotHeight, true); err != nil {
			return err
		}
		if err := stats.RenderMisses(buf, "Most Missed Characters", p.Misses, stats.TopShareSize); err != nil {
			return err
		}
		return stats.RenderCrossTab(buf, p.CrossTab)
	})
	if len(p.WeakModes) > 0 {
		labels := make([]string, 0, len(p.WeakModes))
		for _, mode := range p.WeakModes {
			labels = append(labels, mode.Label())
		}
		body += "\n" + headerStyle.Render("Weakest modes by accuracy: "+strings.Join(labels, ", "))
	}
	return strings.TrimRight(title+"\n"+cards+"\n\n"+body, "\n")
}

func render(fn func(*bytes.Buffer) error) string {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return fmt.Sprintf("Failed to render: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func summaryCards(s stats.Summary, width int) string {
	cards := []string{
		metricCard("Plays", fmt.Sprintf("%d", s.Plays)),
		metricCard("Avg Score", fmt.Sprintf("%.1f", s.MeanScore)),
		metricCard("Avg Acc", fmt.Sprintf("%.1f%%", s.MeanAccuracy*100)),
		metricCard("Avg Typing", fmt.Sprintf("%.1f", s.MeanTypingCount)),
		metricCard("Misses", fmt.Sprintf("%d", s.TotalMisses)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func missColumns() []table.Column {
	return []table.Column{
		{Title: "Char", Width: 8},
		{Title: "Count", Width: 8},
		{Title: "Share", Width: 8},
	}
}

func missRows(freq []stats.MissCount, total int) []table.Row {
	top := stats.TopMisses(freq, missRowLimit)
	rows := make([]table.Row, 0, len(top))
	for _, mc := range top {
		share := 0.0
		if total > 0 {
			share = float64(mc.Count) / float64(total) * 100
		}
		rows = append(rows, table.Row{
			stats.MissCharLabel(mc.Char),
			fmt.Sprintf("%d", mc.Count),
			fmt.Sprintf("%.1f%%", share),
		})
	}
	return rows
}

func buildMissTable(rows []table.Row, width, height int) table.Model {
	t := table.New(
		table.WithColumns(missColumns()),
		table.WithRows(rows),
		table.WithHeight(maxInt(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(missTableStyles())
	return t
}

func missTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	userInput := strings.TrimSpace(m.filterInputs[0].Value())
	hasUser := false
	var userID int64
	if userInput != "" {
		parsed, err := strconv.ParseInt(userInput, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id (use integer)")
		}
		userID = parsed
		hasUser = true
	}

	periodInput := strings.ToLower(strings.TrimSpace(m.filterInputs[1].Value()))
	period := dashboard.ParsePeriod(periodInput)
	if periodInput != "" && string(period) != periodInput {
		return fmt.Errorf("invalid period (use all, 7d, 30d or 90d)")
	}

	windowInput := strings.TrimSpace(m.filterInputs[2].Value())
	window := m.cfg.CurveWindow
	if windowInput != "" {
		parsed, err := strconv.Atoi(windowInput)
		if err != nil {
			return fmt.Errorf("invalid curve window (use integer)")
		}
		if parsed < 1 {
			return fmt.Errorf("invalid curve window (use integer >= 1)")
		}
		window = parsed
	}

	m.cfg.UserID = userID
	m.cfg.HasUser = hasUser
	m.cfg.Period = period
	m.cfg.CurveWindow = window
	return nil
}

// userIDs lists users with data, roster order first.
func userIDs(tables model.Tables) []int64 {
	seen := make(map[int64]bool)
	var out []int64
	add := func(id int64) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, u := range tables.Users {
		add(u.UserID)
	}
	for _, a := range tables.Attempts {
		add(a.UserID)
	}
	return out
}

func nextPeriod(p dashboard.Period) dashboard.Period {
	for i, known := range dashboard.Periods {
		if known == p {
			return dashboard.Periods[(i+1)%len(dashboard.Periods)]
		}
	}
	return dashboard.PeriodAll
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	if n%5 == 0 {
		return n + 5
	}
	return ((n / 5) + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
