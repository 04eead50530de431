package resolver

import "fmt"

// Location is a span in a compile unit's source. Pos and EndPos are byte
// offsets; Line and Column are 1-based and only used for messages.
type Location struct {
	File   string
	Line   int
	Column int
	Pos    int
	EndPos int
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

func (l Location) prefix() string {
	if l.File == "" && l.Line == 0 {
		return ""
	}
	return l.String() + ": "
}
