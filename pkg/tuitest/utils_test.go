package tuitest

import (
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
)

func TestStripANSI(t *testing.T) {
	in := "\x1b[1mbold\x1b[0m   \nplain  \n\n"
	assert.Equal(t, "bold\nplain", StripANSI(in))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "enter", Key(tea.KeyEnter).String())
	assert.Equal(t, "x", Char('x').String())

	msgs := Type("ab")
	if assert.Len(t, msgs, 2) {
		assert.Equal(t, "b", msgs[1].(tea.KeyPressMsg).String())
	}
	assert.Equal(t, tea.WindowSizeMsg{Width: 80, Height: 24}, WindowSize(80, 24))
}
