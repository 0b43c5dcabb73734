package tui

import "charm.land/bubbles/v2/key"

// keyMap holds the board bindings.
type keyMap struct {
	quit       key.Binding
	toggleHelp key.Binding
	nextTab    key.Binding
	prevTab    key.Binding
	nextBubble key.Binding
	prevBubble key.Binding
	nudgeLeft  key.Binding
	nudgeRight key.Binding
	nudgeUp    key.Binding
	nudgeDown  key.Binding
	reset      key.Binding
	add        key.Binding
	rename     key.Binding
	remove     key.Binding
	setImage   key.Binding
	pasteImage key.Binding
	clearImage key.Binding
	details    key.Binding
}

// newKeyMap constructs the default bindings.
func newKeyMap() keyMap {
	return keyMap{
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		nextTab:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next category")),
		prevTab:    key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev category")),
		nextBubble: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next bubble")),
		prevBubble: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev bubble")),
		nudgeLeft:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "nudge left")),
		nudgeRight: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "nudge right")),
		nudgeUp:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "nudge up")),
		nudgeDown:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "nudge down")),
		reset:      key.NewBinding(key.WithKeys("space", "enter"), key.WithHelp("space", "reset timer")),
		add:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new activity")),
		rename:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "rename")),
		remove:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		setImage:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "set image")),
		pasteImage: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "paste image")),
		clearImage: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear image")),
		details:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "details")),
	}
}

// ShortHelp returns the footer bindings.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.add, k.reset, k.rename, k.remove, k.nextTab, k.details, k.toggleHelp, k.quit,
	}
}

// FullHelp returns every binding grouped for the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.add, k.rename, k.remove, k.reset, k.details},
		{k.nextTab, k.prevTab, k.nextBubble, k.prevBubble},
		{k.nudgeLeft, k.nudgeRight, k.nudgeUp, k.nudgeDown},
		{k.setImage, k.pasteImage, k.clearImage, k.toggleHelp, k.quit},
	}
}
