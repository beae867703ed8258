package keyboard

import "fmt"

// Button is either a callback button (Unique + Data) or a link button (URL).
type Button struct {
	Label  string
	Unique string
	Data   string
	URL    string
}

// CallbackData returns the encoded callback payload, or "" for link buttons.
func (b Button) CallbackData() (string, error) {
	if b.URL != "" {
		return "", nil
	}
	return EncodeCallback(b.Unique, b.Data)
}

// Markup is rows of buttons attached to a reply.
type Markup struct {
	Rows [][]Button
}

// NewMarkup creates an empty markup.
func NewMarkup() *Markup {
	return &Markup{Rows: make([][]Button, 0)}
}

// AddRow appends a row; empty rows are ignored.
func (m *Markup) AddRow(buttons ...Button) *Markup {
	if len(buttons) == 0 {
		return m
	}

	row := make([]Button, len(buttons))
	copy(row, buttons)
	m.Rows = append(m.Rows, row)
	return m
}

// Empty reports whether there is nothing to render.
func (m *Markup) Empty() bool {
	return m == nil || len(m.Rows) == 0
}

// Buttons returns every button in row order.
func (m *Markup) Buttons() []Button {
	if m == nil {
		return nil
	}

	var out []Button
	for _, row := range m.Rows {
		out = append(out, row...)
	}
	return out
}

// Validate checks every callback button against the transport limits.
func (m *Markup) Validate() error {
	for i, row := range m.Rows {
		for j, btn := range row {
			if btn.Label == "" {
				return fmt.Errorf("button %d/%d has no label", i, j)
			}
			if _, err := btn.CallbackData(); err != nil {
				return fmt.Errorf("button %q: %w", btn.Label, err)
			}
		}
	}
	return nil
}
