package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/internal/worker"
	"github.com/jwebster45206/campaign-engine/pkg/catalog"
	"github.com/jwebster45206/campaign-engine/pkg/narrative"
	"github.com/jwebster45206/campaign-engine/pkg/objective"
	"github.com/jwebster45206/campaign-engine/pkg/queue"
	"github.com/jwebster45206/campaign-engine/pkg/state"
	"github.com/jwebster45206/campaign-engine/pkg/storage"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	PlaceHolderText = "Type a command, e.g. /advance 24"
	pulseInterval   = 250 * time.Millisecond
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config    *ConsoleConfig
	processor *worker.Processor
	store     storage.Storage
	catalog   *catalog.Catalog

	campaignID uuid.UUID
	snapshot   *state.Snapshot
	story      []string
	awaiting   []narrative.Entry
	busy       bool

	logViewport  viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error

	// Level selection state
	showLevelModal bool
	selectedLevel  int

	// Quit confirmation state
	showQuitModal bool
}

type resultMsg struct {
	label    string
	req      *queue.Request
	result   *worker.Result
	snapshot *state.Snapshot
	err      error
}

type pulseTickMsg struct{}

var titleCaser = cases.Title(language.English)

var (
	logPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, processor *worker.Processor, store storage.Storage, cat *catalog.Catalog) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 300
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	logVp := viewport.New(50, 20)
	logVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:         cfg,
		processor:      processor,
		store:          store,
		catalog:        cat,
		textarea:       ta,
		logViewport:    logVp,
		metaViewport:   metaVp,
		showLevelModal: true,
	}
}

// resumed returns the model bound to an already stored campaign
func (m ConsoleUI) resumed(id uuid.UUID, res *worker.Result) ConsoleUI {
	m.campaignID = id
	m.showLevelModal = false
	m.ready = true
	m.story = append(m.story, successStyle.Render(fmt.Sprintf("Resumed campaign %s at hour %d.", id.String()[:8], res.GameHour)))
	if snap, err := m.store.LoadCampaign(context.Background(), id); err == nil {
		m.snapshot = snap
	}
	return m
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, pulseTick())
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Results and pulses arrive regardless of which screen is showing
	switch msg := msg.(type) {
	case resultMsg:
		if msg.label == "pulse" && msg.result == nil && msg.err == nil {
			return m, nil
		}
		if msg.label != "pulse" {
			m.busy = false
		}
		m.applyResult(msg)
		m.refresh()
		return m, nil
	case pulseTickMsg:
		if m.campaignID == uuid.Nil || m.busy {
			return m, pulseTick()
		}
		return m, tea.Batch(m.pulse(), pulseTick())
	}

	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showLevelModal {
		return m.updateLevelModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.logViewport, vpCmd = m.logViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" || m.busy {
				return m, nil
			}
			return m.handleInput(input)
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.logViewport, vpCmd = m.logViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// layout sizes the panels: the story log takes three quarters of the width
func (m *ConsoleUI) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	logWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - logWidth - 6

	m.logViewport.Width = logWidth - 2
	m.logViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(logWidth - 4)
	m.refresh()
}

func (m *ConsoleUI) refresh() {
	m.logViewport.SetContent(m.writeStory())
	m.logViewport.GotoBottom()
	m.metaViewport.SetContent(m.writeMetadata())
}

func (m ConsoleUI) handleInput(input string) (tea.Model, tea.Cmd) {
	m.appendStory(commandStyle.Render("> " + input))

	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/help":
		m.appendStory(titleStyle.Render("Help:") + helpText)
		m.refresh()
		return m, nil
	case "/copy":
		if err := clipboard.WriteAll(m.campaignID.String()); err != nil {
			m.appendStory(errorStyle.Render("Clipboard unavailable: " + err.Error()))
		} else {
			m.appendStory(successStyle.Render("Campaign id copied to clipboard."))
		}
		m.refresh()
		return m, nil
	}

	req, err := parseCommand(input)
	if err != nil {
		m.appendStory(errorStyle.Render(err.Error()))
		m.refresh()
		return m, nil
	}
	req.CampaignID = m.campaignID
	req.RequestID = uuid.New().String()
	req.EnqueuedAt = time.Now()

	m.busy = true
	m.refresh()
	return m, m.process(string(req.Type), req)
}

func (m ConsoleUI) process(label string, req *queue.Request) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		res, err := m.processor.Process(ctx, req)
		if err != nil {
			return resultMsg{label: label, req: req, err: err}
		}
		snap, err := m.store.LoadCampaign(ctx, req.CampaignID)
		return resultMsg{label: label, req: req, result: res, snapshot: snap, err: err}
	}
}

func (m ConsoleUI) pulse() tea.Cmd {
	id := m.campaignID
	return func() tea.Msg {
		ctx := context.Background()
		res, err := m.processor.Pulse(ctx, id)
		if err != nil || res == nil {
			return resultMsg{label: "pulse", result: res, err: err}
		}
		snap, err := m.store.LoadCampaign(ctx, id)
		return resultMsg{label: "pulse", result: res, snapshot: snap, err: err}
	}
}

func (m *ConsoleUI) applyResult(msg resultMsg) {
	if msg.err != nil {
		m.appendStory(errorStyle.Render(fmt.Sprintf("%s failed: %v", msg.label, msg.err)))
		return
	}
	if msg.result == nil {
		return
	}
	if msg.req != nil {
		switch msg.req.Type {
		case queue.RequestTypeStart:
			m.campaignID = msg.result.CampaignID
		case queue.RequestTypeNarrativeComplete:
			m.dropAwaiting(msg.req.NarrativeID)
		case queue.RequestTypeReset:
			m.awaiting = nil
		}
	}
	if msg.snapshot != nil {
		m.snapshot = msg.snapshot
	}

	for _, ch := range msg.result.Changes {
		m.appendStory(formatChange(ch))
	}
	for _, e := range msg.result.Narrative {
		m.appendStory(formatEntry(e))
		if e.AwaitsCompletion {
			m.awaiting = append(m.awaiting, e)
		}
	}
	if msg.label != "pulse" {
		m.appendStory(promptStyle.Render(fmt.Sprintf("Hour %d, level %d.", msg.result.GameHour, msg.result.Level)))
	}
}

func (m *ConsoleUI) dropAwaiting(id string) {
	out := m.awaiting[:0]
	for _, e := range m.awaiting {
		if e.ID != id {
			out = append(out, e)
		}
	}
	m.awaiting = out
}

func (m *ConsoleUI) appendStory(line string) {
	m.story = append(m.story, line)
}

func formatEntry(e narrative.Entry) string {
	kind := titleCaser.String(strings.ReplaceAll(string(e.Kind), "_", " "))
	line := fmt.Sprintf("[h%d] %s", e.GameHour, kindStyle.Render(kind))
	if e.ID != "" {
		line += " " + e.ID
	}
	if e.AwaitsCompletion {
		line += pendingStyle.Render("  (use /done " + e.ID + " " + string(e.Kind) + ")")
	}
	return line
}

func formatChange(ch objective.Change) string {
	if ch.From == ch.To {
		verb := "hidden"
		if ch.Visible {
			verb = "shown"
		}
		return fmt.Sprintf("[h%d] Objective %s %s", ch.GameHour, ch.ID, verb)
	}
	return fmt.Sprintf("[h%d] Objective %s: %s → %s", ch.GameHour, ch.ID,
		titleCaser.String(string(ch.From)), stateStyle(ch.To).Render(titleCaser.String(string(ch.To))))
}

func stateStyle(s objective.State) lipgloss.Style {
	switch s {
	case objective.StateSuccess:
		return successStyle
	case objective.StateFailure:
		return errorStyle
	case objective.StateLocked:
		return promptStyle
	default:
		return pendingStyle
	}
}

func (m ConsoleUI) writeStory() string {
	width := m.logViewport.Width - 6
	if width < 20 {
		width = 20
	}
	var content strings.Builder
	content.WriteString(titleStyle.Render("CAMPAIGN ENGINE") + "\n\n")
	content.WriteString("Drive the campaign with commands. Type /help for the list.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")
	for _, line := range m.story {
		content.WriteString(wordwrap.String(line, width) + "\n")
	}
	if m.busy {
		content.WriteString(pendingStyle.Render("...") + "\n")
	}
	return content.String()
}

func (m ConsoleUI) writeMetadata() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("CAMPAIGN") + "\n\n")
	if m.snapshot == nil {
		content.WriteString("No campaign loaded\n")
		return content.String()
	}
	s := m.snapshot

	content.WriteString("Campaign ID:\n")
	content.WriteString(s.ID.String()[:8] + "...\n\n")

	status := "Running"
	switch {
	case s.Outcome.Won:
		status = successStyle.Render("Victory")
	case s.Outcome.GameOver:
		status = errorStyle.Render("Game Over")
	}
	content.WriteString(fmt.Sprintf("Level %d, %s\n", s.Level, status))
	content.WriteString(fmt.Sprintf("Day %d, %02d:00\n\n", s.GameHour/24+1, s.GameHour%24))

	content.WriteString("Objectives:\n")
	shown := 0
	for _, o := range s.Objectives {
		if !o.Visible {
			continue
		}
		title := o.ID
		if def, ok := m.catalog.Objective(o.ID); ok {
			title = def.Title
		}
		content.WriteString(fmt.Sprintf("• %s: %s\n", title, stateStyle(o.State).Render(titleCaser.String(string(o.State)))))
		shown++
	}
	if shown == 0 {
		content.WriteString("None yet\n")
	}

	if len(s.Timers.Missions) > 0 {
		content.WriteString("\nScheduled:\n")
		for _, e := range s.Timers.Missions {
			content.WriteString(fmt.Sprintf("• %s @ h%d\n", e.ID, e.FireAt))
		}
	}

	if len(m.awaiting) > 0 {
		content.WriteString("\nAwaiting:\n")
		for _, e := range m.awaiting {
			content.WriteString(pendingStyle.Render(fmt.Sprintf("• %s %s", e.Kind, e.ID)) + "\n")
		}
	}

	if s.World != nil && len(s.World.Fleets) > 0 {
		content.WriteString("\nFleets:\n")
		for _, f := range s.World.Fleets {
			content.WriteString(fmt.Sprintf("• %d %s (%s)\n", f.ID, f.Name, f.Owner))
		}
	}
	return content.String()
}

func (m ConsoleUI) updateLevelModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyUp:
			if m.selectedLevel > 0 {
				m.selectedLevel--
			}
		case tea.KeyDown:
			if m.selectedLevel < len(m.catalog.Levels)-1 {
				m.selectedLevel++
			}
		case tea.KeyEnter:
			if len(m.catalog.Levels) == 0 {
				return m, nil
			}
			req := &queue.Request{
				RequestID:  uuid.New().String(),
				Type:       queue.RequestTypeStart,
				CampaignID: uuid.New(),
				Level:      m.catalog.Levels[m.selectedLevel],
				EnqueuedAt: time.Now(),
			}
			m.showLevelModal = false
			m.busy = true
			m.layout()
			m.ready = true
			m.textarea.Focus()
			return m, tea.Batch(m.process("start", req), textarea.Blink)
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				if m.showLevelModal {
					return m, nil
				}
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Campaign?"))
	content.WriteString("\n\n")
	content.WriteString("Progress is saved after every command.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderLevelModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render(titleCaser.String(m.catalog.Name)))
	content.WriteString("\n\n")
	content.WriteString("Select a starting level")
	content.WriteString("\n\n")

	for i, level := range m.catalog.Levels {
		label := fmt.Sprintf("Level %d (%d objectives)", level, len(m.catalog.ObjectivesForLevel(level)))
		if i == m.selectedLevel {
			content.WriteString(modalSelectedItemStyle.Render("▶ " + label))
		} else {
			content.WriteString(modalItemStyle.Render("  " + label))
		}
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showLevelModal {
		return m.renderLevelModal()
	}
	if !m.ready || m.width == 0 {
		return "\n  Initializing..."
	}

	logWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - logWidth - 6

	logPanel := logPanelStyle.Width(logWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.logViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", logWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, logPanel, metaPanel)
}

// pulseTick lets wall-clock timeouts fire while the player is idle
func pulseTick() tea.Cmd {
	return tea.Tick(pulseInterval, func(time.Time) tea.Msg {
		return pulseTickMsg{}
	})
}
