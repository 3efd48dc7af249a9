package tui

import tea "github.com/charmbracelet/bubbletea"

// Run starts the chat front-end on the alternate screen and blocks until the
// user quits.
func Run(opts Options) error {
	sink := &programSink{}
	p := tea.NewProgram(NewModel(opts, sink), tea.WithAltScreen())
	sink.attach(p)
	_, err := p.Run()
	return err
}
