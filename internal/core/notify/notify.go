// Package notify implements the toast notification queue. Notifications
// are admitted immediately, auto-close after their duration, and are
// removed once the close animation delay has elapsed.
package notify

import (
	"time"
)

// InvalidID is returned by Show when a notification is rejected.
const InvalidID int64 = 0

// Type is the severity style of a notification.
type Type string

const (
	TypePrimary Type = "primary"
	TypeSuccess Type = "success"
	TypeNeutral Type = "neutral"
	TypeWarning Type = "warning"
	TypeDanger  Type = "danger"
)

// IsValid reports whether t is a known notification type.
func (t Type) IsValid() bool {
	_, ok := icons[t]
	return ok
}

var icons = map[Type]string{
	TypePrimary: "info-circle",
	TypeSuccess: "check-circle",
	TypeNeutral: "info-circle",
	TypeWarning: "exclamation-triangle",
	TypeDanger:  "exclamation-octagon",
}

// Icon returns the built-in icon name for t.
func (t Type) Icon() string {
	return icons[t]
}

// Position is the screen area a notification is rendered in. It has no
// effect on ordering or lifecycle.
type Position string

const (
	PositionTopLeft      Position = "top-left"
	PositionTopCenter    Position = "top-center"
	PositionTopRight     Position = "top-right"
	PositionBottomLeft   Position = "bottom-left"
	PositionBottomCenter Position = "bottom-center"
	PositionBottomRight  Position = "bottom-right"
)

// Positions lists every position in display order.
var Positions = []Position{
	PositionTopLeft,
	PositionTopCenter,
	PositionTopRight,
	PositionBottomLeft,
	PositionBottomCenter,
	PositionBottomRight,
}

// IsValid reports whether p is a known position.
func (p Position) IsValid() bool {
	for _, v := range Positions {
		if v == p {
			return true
		}
	}
	return false
}

// State is the lifecycle position of a notification.
type State string

const (
	StateActive   State = "active"
	StateResolved State = "resolved"
	StateRemoved  State = "removed"
)

// Action is a caller-supplied button. The manager never inspects it.
type Action struct {
	Label   string `json:"label"`
	Handler func() `json:"-"`
}

// Options describes a notification. Message is required. Duration nil
// uses the manager default and a zero duration never auto-closes.
type Options struct {
	Message  string
	Type     Type
	Title    string
	Duration *time.Duration
	Closable *bool
	Icon     string
	ShowIcon *bool
	Position Position
	OnClose  func()
	Action   *Action
}

// Duration returns a pointer to d for Options.Duration.
func Duration(d time.Duration) *time.Duration {
	return &d
}

// Bool returns a pointer to v for the optional fields of Options.
func Bool(v bool) *bool {
	return &v
}

// Defaults are applied to unset Options fields.
type Defaults struct {
	Position Position      `yaml:"position"`
	Duration time.Duration `yaml:"duration"`
	Closable bool          `yaml:"closable"`
	ShowIcon bool          `yaml:"show_icon"`
}

// DefaultDefaults returns the built-in notification defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Position: PositionBottomLeft,
		Duration: 5 * time.Second,
		Closable: true,
		ShowIcon: true,
	}
}

// DefaultsPatch updates only its non-nil fields.
type DefaultsPatch struct {
	Position *Position
	Duration *time.Duration
	Closable *bool
	ShowIcon *bool
}

// PatchFrom builds a patch that sets every field of d.
func PatchFrom(d Defaults) DefaultsPatch {
	return DefaultsPatch{
		Position: &d.Position,
		Duration: &d.Duration,
		Closable: &d.Closable,
		ShowIcon: &d.ShowIcon,
	}
}

func (p DefaultsPatch) apply(d *Defaults) {
	if p.Position != nil {
		d.Position = *p.Position
	}
	if p.Duration != nil {
		d.Duration = *p.Duration
	}
	if p.Closable != nil {
		d.Closable = *p.Closable
	}
	if p.ShowIcon != nil {
		d.ShowIcon = *p.ShowIcon
	}
}

// Notification is an admitted notification with every option resolved.
type Notification struct {
	ID        int64         `json:"id"`
	Type      Type          `json:"type"`
	Message   string        `json:"message"`
	Title     string        `json:"title,omitempty"`
	Duration  time.Duration `json:"duration"`
	Closable  bool          `json:"closable"`
	Icon      string        `json:"icon,omitempty"`
	ShowIcon  bool          `json:"showIcon"`
	Position  Position      `json:"position"`
	Action    *Action       `json:"action,omitempty"`
	Open      bool          `json:"open"`
	State     State         `json:"state"`
	CreatedAt time.Time     `json:"createdAt"`
	ClosedAt  time.Time     `json:"closedAt,omitzero"`
}
