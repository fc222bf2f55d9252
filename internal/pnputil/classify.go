package pnputil

import (
	"strconv"
	"strings"
)

// Outcome classifies tool output.
type Outcome int

const (
	Ambiguous Outcome = iota
	Succeeded
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "ambiguous"
	}
}

// Phrases are the English strings the tool prints. On other display
// languages they will not match and delete results come back Ambiguous.
const (
	deleteFailedPhrase    = "Deleting the driver package failed"
	deleteSucceededPhrase = "Driver package deleted successfully"
)

// ClassifyDelete inspects delete output. The failure phrase wins over the
// success phrase; output with neither is Ambiguous.
func ClassifyDelete(output string) Outcome {
	switch {
	case strings.Contains(output, deleteFailedPhrase):
		return Failed
	case strings.Contains(output, deleteSucceededPhrase):
		return Succeeded
	default:
		return Ambiguous
	}
}

// ClassifyAdd inspects add output. The run ends with a two-line summary,
// "<label>: attempted" then "<label>: added"; it succeeded when both counts
// parse, are equal and are non-zero. A missing summary is Ambiguous.
func ClassifyAdd(output string) Outcome {
	attempted, added, ok := addSummary(output)
	if !ok {
		return Ambiguous
	}
	if attempted == added && attempted > 0 {
		return Succeeded
	}
	return Failed
}

func addSummary(output string) (attempted, added int, ok bool) {
	var tail []string
	lines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
	for i := len(lines) - 1; i >= 0 && len(tail) < 2; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			tail = append(tail, line)
		}
	}
	if len(tail) < 2 {
		return 0, 0, false
	}

	added, ok = trailingCount(tail[0])
	if !ok {
		return 0, 0, false
	}
	attempted, ok = trailingCount(tail[1])
	if !ok {
		return 0, 0, false
	}
	return attempted, added, true
}

func trailingCount(line string) (int, bool) {
	idx := strings.LastIndex(line, keyDelimiter)
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(line[idx+1:]))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
