// Package dialog implements the modal dialog queue: at most one dialog is
// active at a time, the rest wait in FIFO order until the active one is
// resolved or cancelled.
package dialog

import (
	"errors"
	"time"
)

// Kind selects the dialog behaviour and its cancel result.
type Kind string

const (
	KindConfirm Kind = "confirm"
	KindAlert   Kind = "alert"
	KindPrompt  Kind = "prompt"
	KindCustom  Kind = "custom"
)

// IsValid reports whether k is a known dialog kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindConfirm, KindAlert, KindPrompt, KindCustom:
		return true
	}
	return false
}

// Variant is the button style of the dialog.
type Variant string

const (
	VariantPrimary Variant = "primary"
	VariantSuccess Variant = "success"
	VariantNeutral Variant = "neutral"
	VariantWarning Variant = "warning"
	VariantDanger  Variant = "danger"
)

// IsValid reports whether v is a known variant.
func (v Variant) IsValid() bool {
	switch v {
	case VariantPrimary, VariantSuccess, VariantNeutral, VariantWarning, VariantDanger:
		return true
	}
	return false
}

// Size is the rendered width class of the dialog.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// IsValid reports whether s is a known size.
func (s Size) IsValid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// State is the lifecycle position of a dialog request.
type State string

const (
	StatePending  State = "pending"
	StateActive   State = "active"
	StateResolved State = "resolved"
	StateRemoved  State = "removed"
)

// ErrClosed is returned by Pending.Wait when the manager shut down before
// the dialog was resolved.
var ErrClosed = errors.New("dialog manager closed")

// Options describes a dialog request. Zero values fall back to the
// manager defaults; ShowCancel and CloseOnOverlay use nil for "unset".
type Options struct {
	Title            string         `json:"title,omitempty"`
	Message          string         `json:"message,omitempty"`
	Kind             Kind           `json:"type,omitempty"`
	Variant          Variant        `json:"variant,omitempty"`
	ConfirmText      string         `json:"confirmText,omitempty"`
	CancelText       string         `json:"cancelText,omitempty"`
	ShowCancel       *bool          `json:"showCancel,omitempty"`
	Size             Size           `json:"size,omitempty"`
	CloseOnOverlay   *bool          `json:"closeOnOverlay,omitempty"`
	InputValue       string         `json:"inputValue,omitempty"`
	InputPlaceholder string         `json:"inputPlaceholder,omitempty"`
	Component        string         `json:"component,omitempty"`
	ComponentProps   map[string]any `json:"componentProps,omitempty"`

	// Validator checks prompt input before Submit resolves the dialog.
	Validator func(string) error `json:"-"`
}

// Defaults are applied to every Options field left empty.
type Defaults struct {
	Kind           Kind    `yaml:"type"`
	Variant        Variant `yaml:"variant"`
	ConfirmText    string  `yaml:"confirm_text"`
	CancelText     string  `yaml:"cancel_text"`
	ShowCancel     bool    `yaml:"show_cancel"`
	CloseOnOverlay bool    `yaml:"close_on_overlay"`
	Size           Size    `yaml:"size"`
}

// DefaultDefaults returns the built-in dialog defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Kind:           KindConfirm,
		Variant:        VariantPrimary,
		ConfirmText:    "Confirm",
		CancelText:     "Cancel",
		ShowCancel:     true,
		CloseOnOverlay: true,
		Size:           SizeSmall,
	}
}

// DefaultsPatch updates only its non-nil fields.
type DefaultsPatch struct {
	Kind           *Kind
	Variant        *Variant
	ConfirmText    *string
	CancelText     *string
	ShowCancel     *bool
	CloseOnOverlay *bool
	Size           *Size
}

// PatchFrom builds a patch that sets every field of d.
func PatchFrom(d Defaults) DefaultsPatch {
	return DefaultsPatch{
		Kind:           &d.Kind,
		Variant:        &d.Variant,
		ConfirmText:    &d.ConfirmText,
		CancelText:     &d.CancelText,
		ShowCancel:     &d.ShowCancel,
		CloseOnOverlay: &d.CloseOnOverlay,
		Size:           &d.Size,
	}
}

func (p DefaultsPatch) apply(d *Defaults) {
	if p.Kind != nil {
		d.Kind = *p.Kind
	}
	if p.Variant != nil {
		d.Variant = *p.Variant
	}
	if p.ConfirmText != nil {
		d.ConfirmText = *p.ConfirmText
	}
	if p.CancelText != nil {
		d.CancelText = *p.CancelText
	}
	if p.ShowCancel != nil {
		d.ShowCancel = *p.ShowCancel
	}
	if p.CloseOnOverlay != nil {
		d.CloseOnOverlay = *p.CloseOnOverlay
	}
	if p.Size != nil {
		d.Size = *p.Size
	}
}

// Dialog is an admitted request with every option resolved.
type Dialog struct {
	ID               int64          `json:"id"`
	Title            string         `json:"title"`
	Message          string         `json:"message"`
	Kind             Kind           `json:"type"`
	Variant          Variant        `json:"variant"`
	ConfirmText      string         `json:"confirmText"`
	CancelText       string         `json:"cancelText"`
	ShowCancel       bool           `json:"showCancel"`
	Size             Size           `json:"size"`
	CloseOnOverlay   bool           `json:"closeOnOverlay"`
	InputValue       string         `json:"inputValue"`
	InputPlaceholder string         `json:"inputPlaceholder"`
	Component        string         `json:"component,omitempty"`
	ComponentProps   map[string]any `json:"componentProps"`
	State            State          `json:"state"`
	Open             bool           `json:"open"`
	CreatedAt        time.Time      `json:"createdAt"`
	ResolvedAt       time.Time      `json:"resolvedAt,omitzero"`

	Validator func(string) error `json:"-"`
}

// CancelValue is the result a cancelled dialog of kind k settles with.
func CancelValue(k Kind) any {
	if k == KindConfirm {
		return false
	}
	return nil
}

// Bool returns a pointer to v, for the optional fields of Options.
func Bool(v bool) *bool {
	return &v
}
