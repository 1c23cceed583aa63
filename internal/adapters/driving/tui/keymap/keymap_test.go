package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()

	assert.True(t, Matches("q", km.Quit))
	assert.True(t, Matches("ctrl+c", km.Quit))
	assert.True(t, Matches("j", km.Down))
	assert.True(t, Matches("up", km.Up))
	assert.True(t, Matches("t", km.Text))
	assert.False(t, Matches("x", km.Quit))
}

func TestKeyMap_HelpLine(t *testing.T) {
	km := DefaultKeyMap()

	assert.Equal(t, "↑/k up • ↓/j down • t text • q quit", km.HelpLine())
	assert.Len(t, km.ShortHelp(), 4)
}
