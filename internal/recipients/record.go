// Package recipients loads campaign recipients from spreadsheet files.
package recipients

import "strings"

// Record is one recipient row. Records are immutable once loaded.
type Record struct {
	// Index is the position in the loaded sequence; resume offsets refer to it.
	Index int
	// Row is the 1-based spreadsheet row, for operator-facing messages.
	Row         int
	Identifier  string
	RawContact  string
	DisplayName string
	Message     string
	ImagePath   string
}

// EffectiveMessage returns the text actually delivered: a salutation-prefixed
// body when a display name is present, the body verbatim otherwise.
func (r Record) EffectiveMessage() string {
	name := strings.TrimSpace(r.DisplayName)
	if name == "" {
		return r.Message
	}
	return "Dear " + name + ",\n\n" + r.Message
}
