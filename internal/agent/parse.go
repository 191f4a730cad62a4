package agent

import (
	"fmt"
	"strings"
)

// parseKind classifies one model completion.
type parseKind int

const (
	parseFormatError parseKind = iota
	parseAction
	parseFinal
)

// parsed is the structured view of a model completion in the
// reasoning grammar: an optional Thought, then either an Action with
// its Action Input, or a Final Answer.
type parsed struct {
	kind    parseKind
	thought string
	action  string
	input   string
	answer  string
	reason  string // set for parseFormatError
}

// parseCompletion interprets a raw model completion. A Final Answer
// takes precedence over any Action lines in the same completion; a
// completion with neither is a format error, reported with a reason
// the model can act on next iteration.
func parseCompletion(text string) parsed {
	thought := extractThought(text)

	if answer, ok := extractFinal(text); ok {
		return parsed{kind: parseFinal, thought: thought, answer: answer}
	}

	action, input, found, reason := extractAction(text)
	if found {
		return parsed{kind: parseAction, thought: thought, action: action, input: input}
	}
	if reason == "" {
		reason = "completion contained neither an Action nor a Final Answer"
	}
	return parsed{kind: parseFormatError, thought: thought, reason: reason}
}

// extractThought returns the text after the first "Thought:" marker up
// to the next grammar marker, trimmed. Missing thoughts are fine.
func extractThought(text string) string {
	idx := strings.Index(text, "Thought:")
	if idx < 0 {
		return ""
	}
	rest := text[idx+len("Thought:"):]
	for _, marker := range []string{"\nAction:", "\nFinal Answer:", "\nAction Input:"} {
		if m := strings.Index(rest, marker); m >= 0 {
			rest = rest[:m]
		}
	}
	return strings.TrimSpace(rest)
}

// extractFinal returns the text after "Final Answer:" when present.
func extractFinal(text string) (string, bool) {
	idx := strings.Index(text, "Final Answer:")
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(text[idx+len("Final Answer:"):]), true
}

// extractAction scans for "Action:" and "Action Input:" lines. The
// input may appear on the same line as its marker or on the next
// non-empty line (some models emit a line break after the colon).
func extractAction(text string) (action, input string, found bool, reason string) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Action:"):
			action = strings.TrimSpace(strings.TrimPrefix(trimmed, "Action:"))
			if action == "" {
				action = nextNonEmpty(lines, i+1)
			}
		case strings.HasPrefix(trimmed, "Action Input:"):
			input = strings.TrimSpace(strings.TrimPrefix(trimmed, "Action Input:"))
			if input == "" {
				input = nextNonEmpty(lines, i+1)
			}
		}
	}

	if action == "" {
		return "", "", false, ""
	}
	if input == "" {
		return "", "", false, fmt.Sprintf("Action %q is missing its Action Input line", action)
	}
	return action, input, true, ""
}

// nextNonEmpty returns the first non-blank line at or after index i,
// stopping at the next grammar marker.
func nextNonEmpty(lines []string, i int) string {
	for ; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		for _, marker := range []string{"Thought:", "Action:", "Action Input:", "Final Answer:", "Observation:"} {
			if strings.HasPrefix(trimmed, marker) {
				return ""
			}
		}
		return trimmed
	}
	return ""
}
