// Package tui is a terminal viewer for the dialog and notification queues.
// It renders the active dialog as a modal and open notifications as toasts
// grouped by position, and feeds key presses back to the managers.
package tui

import (
	"slices"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"

	"github.com/colonyops/bflex/internal/core/dialog"
	"github.com/colonyops/bflex/internal/core/drawer"
	"github.com/colonyops/bflex/internal/core/logging"
	"github.com/colonyops/bflex/internal/core/notify"
	"github.com/colonyops/bflex/internal/core/styles"
)

// Dialogs is the part of the dialog manager the viewer drives.
type Dialogs interface {
	Snapshot() dialog.Snapshot
	Resolve(result any)
	Cancel()
	Submit(value string) error
	Subscribe(fn dialog.Listener) func()
}

// Notifications is the part of the notification manager the viewer drives.
type Notifications interface {
	Grouped() map[notify.Position][]notify.Notification
	Close(id int64)
	Act(id int64) bool
	Subscribe(fn notify.Listener) func()
}

// Drawers is the part of the drawer navigator the viewer shows.
type Drawers interface {
	Active() *drawer.Drawer
	Depth() int
	NavigateBack() bool
	Subscribe(fn func(drawer.State)) func()
}

// Options configures the viewer.
type Options struct {
	// Markdown renders dialog messages with glamour.
	Markdown bool
	// Drawer, when set, is shown in the header and b navigates back.
	Drawer Drawers
}

// stateChangedMsg tells the model to re-read the managers.
type stateChangedMsg struct{}

// Model is the bubbletea model of the viewer.
type Model struct {
	dialogs       Dialogs
	notifications Notifications
	opts          Options
	log           zerolog.Logger

	changes chan struct{}
	unsubs  []func()

	width  int
	height int

	snapshot dialog.Snapshot
	toasts   map[notify.Position][]notify.Notification
	drawer   *drawer.Drawer
	depth    int

	activeID        int64
	confirmSelected bool
	input           textinput.Model
	inputErr        string

	renderer *glamour.TermRenderer
	rendered map[int64]string

	quitting bool
}

// New subscribes to both managers. Call Close when the program exits.
func New(dialogs Dialogs, notifications Notifications, opts Options) Model {
	ti := textinput.New()
	ti.SetWidth(40)

	m := Model{
		dialogs:         dialogs,
		notifications:   notifications,
		opts:            opts,
		log:             logging.Component("tui"),
		changes:         make(chan struct{}, 1),
		input:           ti,
		confirmSelected: true,
		rendered:        map[int64]string{},
	}

	if opts.Markdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithStyles(styles.GlamourStyle()),
			glamour.WithWordWrap(modalWidth-6),
		)
		if err != nil {
			m.log.Warn().Err(err).Msg("markdown renderer unavailable, showing plain text")
		} else {
			m.renderer = r
		}
	}

	m.unsubs = append(m.unsubs,
		dialogs.Subscribe(func(dialog.Event) { m.signal() }),
		notifications.Subscribe(func(notify.Event) { m.signal() }),
	)
	if opts.Drawer != nil {
		m.unsubs = append(m.unsubs, opts.Drawer.Subscribe(func(drawer.State) { m.signal() }))
	}
	m.refresh()
	return m
}

// Close stops listening to the managers.
func (m Model) Close() {
	for _, unsubscribe := range m.unsubs {
		unsubscribe()
	}
}

// signal coalesces change notifications into a single pending message.
func (m Model) signal() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return stateChangedMsg{}
	}
}

// Init starts listening for manager changes.
func (m Model) Init() tea.Cmd {
	return waitForChange(m.changes)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case stateChangedMsg:
		cmd := m.refresh()
		return m, tea.Batch(cmd, waitForChange(m.changes))
	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	if d := m.activeDialog(); d != nil && d.Kind == dialog.KindPrompt {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// refresh re-reads the managers and resets the dialog controls when a new
// dialog became active.
func (m *Model) refresh() tea.Cmd {
	m.snapshot = m.dialogs.Snapshot()
	m.toasts = m.notifications.Grouped()
	if m.opts.Drawer != nil {
		m.drawer, m.depth = m.opts.Drawer.Active(), m.opts.Drawer.Depth()
	}

	d := m.activeDialog()
	if d == nil {
		m.activeID = 0
		m.input.Blur()
		return nil
	}
	if d.ID == m.activeID {
		return nil
	}

	m.activeID = d.ID
	m.confirmSelected = true
	m.inputErr = ""
	if d.Kind != dialog.KindPrompt {
		m.input.Blur()
		return nil
	}
	m.input.Reset()
	m.input.Placeholder = d.InputPlaceholder
	m.input.SetValue(d.InputValue)
	return m.input.Focus()
}

// activeDialog returns the dialog awaiting input, or nil while none is
// open or the queue is between dialogs.
func (m Model) activeDialog() *dialog.Dialog {
	if d := m.snapshot.Active; d != nil && d.Open {
		return d
	}
	return nil
}

func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	d := m.activeDialog()
	if d == nil {
		switch key {
		case "q":
			m.quitting = true
			return m, tea.Quit
		case "x":
			if t, ok := m.newestToast(); ok {
				m.notifications.Close(t.ID)
			}
		case "a":
			if t, ok := m.newestToast(); ok {
				m.notifications.Act(t.ID)
			}
		case "b":
			if m.opts.Drawer != nil {
				m.opts.Drawer.NavigateBack()
			}
		}
		cmd := m.refresh()
		return m, cmd
	}

	switch key {
	case "esc":
		if d.ShowCancel || d.CloseOnOverlay {
			m.dialogs.Cancel()
		}
		cmd := m.refresh()
		return m, cmd
	case "tab":
		m.toggle(d)
		return m, nil
	case "left", "right":
		if d.Kind != dialog.KindPrompt {
			m.toggle(d)
			return m, nil
		}
	case "enter":
		m.confirm(d)
		cmd := m.refresh()
		return m, cmd
	}

	if d.Kind == dialog.KindPrompt {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.inputErr = ""
		return m, cmd
	}
	return m, nil
}

func (m *Model) toggle(d *dialog.Dialog) {
	if d.ShowCancel {
		m.confirmSelected = !m.confirmSelected
	}
}

func (m *Model) confirm(d *dialog.Dialog) {
	if !m.confirmSelected {
		m.dialogs.Cancel()
		return
	}

	switch d.Kind {
	case dialog.KindPrompt:
		if err := m.dialogs.Submit(m.input.Value()); err != nil {
			m.inputErr = err.Error()
		}
	default:
		m.dialogs.Resolve(true)
	}
}

// newestToast is the most recently admitted open notification.
func (m Model) newestToast() (notify.Notification, bool) {
	var (
		newest notify.Notification
		found  bool
	)
	for _, group := range m.toasts {
		for _, n := range group {
			if n.Open && (!found || n.ID > newest.ID) {
				newest, found = n, true
			}
		}
	}
	return newest, found
}

// openToasts returns the open notifications of position p, oldest first.
func (m Model) openToasts(p notify.Position) []notify.Notification {
	return slices.DeleteFunc(slices.Clone(m.toasts[p]), func(n notify.Notification) bool {
		return !n.Open
	})
}
