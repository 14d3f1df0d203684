package transcript

import "strings"

// Separator is written between consecutive turns
const Separator = "\n---\n"

// Message is a user or assistant message with its non-empty text parts in order
type Message struct {
	Role  Role
	Parts []string
}

// Turn is one rendered unit of transcript output
type Turn struct {
	Label string
	Text  string
}

// Turn converts the message into a turn. It reports false when the
// message has no text to show.
func (m Message) Turn() (Turn, bool) {
	if len(m.Parts) == 0 {
		return Turn{}, false
	}
	return Turn{
		Label: strings.ToUpper(string(m.Role)),
		Text:  strings.Join(m.Parts, "\n"),
	}, true
}

// Render formats the turn as "LABEL:\ntext\n"
func (t Turn) Render() string {
	var b strings.Builder
	b.Grow(len(t.Label) + len(t.Text) + 3)
	b.WriteString(t.Label)
	b.WriteString(":\n")
	b.WriteString(t.Text)
	b.WriteString("\n")
	return b.String()
}
