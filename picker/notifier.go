package picker

import (
	"fmt"
	"io"
	"strings"
)

// WriterNotifier prints one line per outcome, e.g. "Status updated".
type WriterNotifier struct {
	Out io.Writer
}

func (n WriterNotifier) Success(field string) {
	fmt.Fprintf(n.Out, "%s updated\n", label(field))
}

func (n WriterNotifier) Error(field string, err error) {
	fmt.Fprintf(n.Out, "Failed to update %s: %v\n", strings.ToLower(label(field)), err)
}

func label(field string) string {
	switch field {
	case "assignedUserId":
		return "Assignee"
	case "targetDate":
		return "Target date"
	}
	if field == "" {
		return "Field"
	}
	return strings.ToUpper(field[:1]) + field[1:]
}
