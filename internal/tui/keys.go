package tui

// Keybinding constants
const (
	KeyQuit  = "q"
	KeyCtrlC = "ctrl+c"
	KeyUp    = "up"
	KeyDown  = "down"
	KeyJ     = "j"
	KeyK     = "k"
)

// HelpView returns a one-line help bar.
func HelpView() string {
	return StyleHelp.Render("j/k: select task | q: quit")
}
