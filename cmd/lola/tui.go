package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	orchestration "github.com/koscakluka/lola/core"
	"github.com/koscakluka/lola/core/events"
	"github.com/koscakluka/lola/core/platform"
	"github.com/muesli/reflow/wordwrap"
)

const (
	maxToasts      = 6
	defaultWidth   = 72
	observedBuffer = 64
)

var (
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	stateStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	toastStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	actionStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	notificationStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Padding(0, 1)
)

type toastMsg struct {
	text string
	at   time.Time
}

type notificationMsg struct {
	notification platform.Notification
	actions      []platform.Action
}

type cancelAllMsg struct{}

type stateMsg struct{ state string }

// tuiNotifier shows notifications in a terminal UI. Actions of the visible
// notification are bound to keys.
type tuiNotifier struct {
	program  *tea.Program
	observed chan events.Event

	mu          sync.Mutex
	actionTypes map[string]platform.ActionType
	onAction    func(platform.ActionPerformed)
}

func newTUINotifier(quit func()) *tuiNotifier {
	n := &tuiNotifier{
		observed:    make(chan events.Event, observedBuffer),
		actionTypes: map[string]platform.ActionType{},
	}
	n.program = tea.NewProgram(newModel(n.perform, quit))
	return n
}

func (n *tuiNotifier) RegisterActionType(_ context.Context, actionType platform.ActionType) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.actionTypes[actionType.ID] = actionType
	return nil
}

func (n *tuiNotifier) Schedule(_ context.Context, notification platform.Notification) error {
	n.mu.Lock()
	actions := n.actionTypes[notification.ActionTypeID].Actions
	n.mu.Unlock()

	n.program.Send(notificationMsg{notification: notification, actions: actions})
	return nil
}

func (n *tuiNotifier) CancelAll(context.Context) error {
	n.program.Send(cancelAllMsg{})
	return nil
}

func (n *tuiNotifier) Toast(_ context.Context, text string) error {
	n.program.Send(toastMsg{text: text, at: time.Now()})
	return nil
}

func (n *tuiNotifier) OnAction(callback func(platform.ActionPerformed)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onAction = callback
}

func (n *tuiNotifier) perform(action platform.ActionPerformed) {
	n.mu.Lock()
	callback := n.onAction
	n.mu.Unlock()

	if callback != nil {
		callback(action)
	}
}

// observe queues orchestrator events for the UI. It never blocks; events
// are dropped when the UI falls behind.
func (n *tuiNotifier) observe(event events.Event) {
	select {
	case n.observed <- event:
	default:
	}
}

// forward hands observed events to the program until ctx is done.
func (n *tuiNotifier) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-n.observed:
			if changed, ok := event.(events.StateChanged); ok {
				n.program.Send(stateMsg{state: changed.To})
			}
		}
	}
}

type keyMap struct {
	Interrupt key.Binding
	Quit      key.Binding
}

func (k keyMap) ShortHelp() []key.Binding  { return []key.Binding{k.Interrupt, k.Quit} }
func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

var keys = keyMap{
	Interrupt: key.NewBinding(key.WithKeys("i", "s"), key.WithHelp("i", "stop talking")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type notificationView struct {
	notification platform.Notification
	actions      []platform.Action
}

type model struct {
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	state        string
	notification *notificationView
	toasts       []toastMsg
	width        int

	perform func(platform.ActionPerformed)
	quit    func()
}

func newModel(perform func(platform.ActionPerformed), quit func()) model {
	return model{
		keys:    keys,
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		state:   string(orchestration.StateIdle),
		width:   defaultWidth,
		perform: perform,
		quit:    quit,
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(msg.Width-4, 20)
		m.help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quit()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Interrupt):
			m.interrupt()
		}
	case toastMsg:
		m.toasts = append(m.toasts, msg)
		if len(m.toasts) > maxToasts {
			m.toasts = m.toasts[len(m.toasts)-maxToasts:]
		}
	case notificationMsg:
		m.notification = &notificationView{notification: msg.notification, actions: msg.actions}
	case cancelAllMsg:
		m.notification = nil
	case stateMsg:
		m.state = msg.state
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// interrupt performs the first action of the visible notification, or a
// bare interrupt when nothing is visible.
func (m model) interrupt() {
	action := platform.ActionPerformed{ActionID: orchestration.InterruptActionID}
	if m.notification != nil {
		action.NotificationID = m.notification.notification.ID
		if len(m.notification.actions) > 0 {
			action.ActionID = m.notification.actions[0].ID
		}
	}
	// The orchestrator may be busy, never block the UI on it.
	go m.perform(action)
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Lola"))
	b.WriteString(" ")
	switch orchestration.State(m.state) {
	case orchestration.StateIdle, orchestration.StateListening:
		b.WriteString(stateStyle.Render(m.state))
	default:
		b.WriteString(m.spinner.View() + stateStyle.Render(m.state))
	}
	b.WriteString("\n\n")

	if m.notification != nil {
		body := m.notification.notification.Body
		if actions := m.notification.actions; len(actions) > 0 {
			body += "\n" + actionStyle.Render("["+m.keys.Interrupt.Help().Key+"] "+actions[0].Title)
		}
		b.WriteString(notificationStyle.Width(m.width).Render(wordwrap.String(body, m.width-4)))
		b.WriteString("\n\n")
	}

	for _, toast := range m.toasts {
		line := toast.at.Format(time.TimeOnly) + " " + toast.text
		b.WriteString(toastStyle.Render(wordwrap.String(line, m.width)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}
