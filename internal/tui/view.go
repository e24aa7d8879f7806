package tui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"

	"github.com/colonyops/bflex/internal/core/dialog"
	"github.com/colonyops/bflex/internal/core/drawer"
	"github.com/colonyops/bflex/internal/core/notify"
	"github.com/colonyops/bflex/internal/core/styles"
)

const (
	toastWidth = 40

	defaultWidth  = 80
	defaultHeight = 24
)

// modalWidths is the outer width of each dialog size.
var modalWidths = map[dialog.Size]int{
	dialog.SizeSmall:  48,
	dialog.SizeMedium: 64,
	dialog.SizeLarge:  80,
}

const modalWidth = 48

// View renders the viewer.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

func (m Model) render() string {
	if m.quitting {
		return ""
	}

	w, h := m.width, m.height
	if w == 0 {
		w = defaultWidth
	}
	if h == 0 {
		h = defaultHeight
	}

	content := m.renderBase(w, h)
	content = m.overlayToasts(content, w, h)
	if d := m.activeDialog(); d != nil {
		content = m.overlayDialog(*d, w, h)
	}
	return content
}

func (m Model) renderBase(w, h int) string {
	open := 0
	for _, group := range m.toasts {
		for _, n := range group {
			if n.Open {
				open++
			}
		}
	}

	status := fmt.Sprintf("%d queued · %d notifications", len(m.snapshot.Queue), open)
	help := "x dismiss  a action  q quit"
	if m.opts.Drawer != nil {
		help = "x dismiss  a action  b back  q quit"
	}

	lines := []string{
		styles.HeaderStyle.Render("bflex"),
		styles.MutedStyle.Render(" " + status),
		styles.MutedStyle.Render(" " + help),
	}
	if m.drawer != nil {
		lines = append(lines, " "+renderDrawer(*m.drawer, m.depth))
	}
	return lipgloss.NewStyle().Width(w).Height(h).Render(strings.Join(lines, "\n"))
}

// renderDrawer is the header line of the open drawer.
func renderDrawer(d drawer.Drawer, depth int) string {
	line := "drawer " + d.Component
	if depth > 0 {
		line += fmt.Sprintf(" (%d back)", depth)
	}
	return styles.ToastTitleStyle.Render(line)
}

func (m Model) overlayToasts(background string, w, h int) string {
	layers := []*lipgloss.Layer{lipgloss.NewLayer(background)}

	for _, p := range notify.Positions {
		toasts := m.openToasts(p)
		if len(toasts) == 0 {
			continue
		}

		rendered := make([]string, 0, len(toasts))
		for _, n := range toasts {
			rendered = append(rendered, renderToast(n))
		}
		stack := strings.Join(rendered, "\n")

		x, y := toastOrigin(p, lipgloss.Width(stack), lipgloss.Height(stack), w, h)
		layers = append(layers, lipgloss.NewLayer(stack).X(x).Y(y).Z(2))
	}

	if len(layers) == 1 {
		return background
	}
	return lipgloss.NewCompositor(layers...).Render()
}

// toastOrigin places a toast stack of size sw x sh at position p.
func toastOrigin(p notify.Position, sw, sh, w, h int) (int, int) {
	x := 1
	switch p {
	case notify.PositionTopCenter, notify.PositionBottomCenter:
		x = max((w-sw)/2, 0)
	case notify.PositionTopRight, notify.PositionBottomRight:
		x = max(w-sw-1, 0)
	}

	y := 0
	switch p {
	case notify.PositionBottomLeft, notify.PositionBottomCenter, notify.PositionBottomRight:
		y = max(h-sh, 0)
	}
	return x, y
}

func renderToast(n notify.Notification) string {
	var b strings.Builder
	if n.ShowIcon && n.Icon != "" {
		b.WriteString(styles.Icon(n.Icon))
		b.WriteString(" ")
	}
	if n.Title != "" {
		b.WriteString(styles.ToastTitleStyle.Render(n.Title))
		b.WriteString("\n")
	}
	b.WriteString(n.Message)
	if n.Action != nil && n.Action.Label != "" {
		b.WriteString("\n")
		b.WriteString(styles.MutedStyle.Render("[a] " + n.Action.Label))
	}
	return styles.Toast(string(n.Type)).Width(toastWidth).Render(b.String())
}

func (m Model) overlayDialog(d dialog.Dialog, w, h int) string {
	width := modalWidths[d.Size]
	if width == 0 {
		width = modalWidth
	}
	width = min(width, w)

	parts := []string{}
	if d.Title != "" {
		parts = append(parts, styles.ModalTitleStyle.Render(d.Title), "")
	}
	parts = append(parts, m.renderMessage(d))

	switch d.Kind {
	case dialog.KindPrompt:
		parts = append(parts, "", m.input.View())
		if m.inputErr != "" {
			parts = append(parts, styles.ErrorTextStyle.Render(m.inputErr))
		}
	case dialog.KindCustom:
		if d.Component != "" {
			parts = append(parts, "", styles.MutedStyle.Render("["+d.Component+"]"))
		}
	}

	parts = append(parts, lipgloss.NewStyle().MarginTop(1).Render(m.renderButtons(d)))
	parts = append(parts, styles.ModalHelpStyle.Render(m.helpText(d)))

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)
	modal := styles.ModalStyle.
		BorderForeground(styles.AccentColor(string(d.Variant))).
		Width(width).
		Render(content)

	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, modal)
}

func (m Model) renderMessage(d dialog.Dialog) string {
	if m.renderer == nil {
		return d.Message
	}
	if s, ok := m.rendered[d.ID]; ok {
		return s
	}
	out, err := m.renderer.Render(d.Message)
	if err != nil {
		m.log.Debug().Err(err).Int64("dialog_id", d.ID).Msg("markdown render failed")
		return d.Message
	}
	out = strings.TrimSpace(out)
	m.rendered[d.ID] = out
	return out
}

func (m Model) renderButtons(d dialog.Dialog) string {
	confirm := styles.ModalButtonStyle.Render(d.ConfirmText)
	if m.confirmSelected {
		confirm = styles.SelectedButton(string(d.Variant)).Render(d.ConfirmText)
	}
	if !d.ShowCancel {
		return confirm
	}

	cancel := styles.ModalButtonSelectedStyle.Render(d.CancelText)
	if m.confirmSelected {
		cancel = styles.ModalButtonStyle.Render(d.CancelText)
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, confirm, "  ", cancel)
}

func (m Model) helpText(d dialog.Dialog) string {
	switch {
	case d.Kind == dialog.KindPrompt:
		return "enter submit  tab select  esc cancel"
	case d.ShowCancel:
		return "←/→ select  enter confirm  esc cancel"
	default:
		return "enter close"
	}
}
