package views

import "linkcal/internal/adapters/tui/styles"

// statusLine is the one-line notice under a view
type statusLine struct {
	text  string
	isErr bool
}

func (s *statusLine) set(text string, isErr bool) {
	s.text, s.isErr = text, isErr
}

func (s *statusLine) clear() {
	s.text, s.isErr = "", false
}

func (s statusLine) render() string {
	switch {
	case s.text == "":
		return ""
	case s.isErr:
		return styles.ErrorMsg.Render(s.text)
	default:
		return styles.Success.Render(s.text)
	}
}
