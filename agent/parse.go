package agent

import "strings"

// step is one parsed model turn.
type step struct {
	thought     string
	action      string
	actionInput string
	finalAnswer string
}

// isAction reports whether the model chose a tool this turn.
func (s step) isAction() bool {
	return s.action != ""
}

// isFinal reports whether the model produced a final answer.
func (s step) isFinal() bool {
	return s.finalAnswer != ""
}

// parseStep extracts the Thought / Action / Action Input / Final Answer
// fields from a model turn. A turn with neither an action nor an explicit
// final answer marker is treated as a final answer, since models often
// drop the marker on their last turn.
func parseStep(response string) step {
	var s step
	var current *string

	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case hasField(trimmed, "Thought:"):
			s.thought = fieldValue(trimmed, "Thought:")
			current = &s.thought
		case hasField(trimmed, "Action:"):
			s.action = fieldValue(trimmed, "Action:")
			current = nil
		case hasField(trimmed, "Action Input:"):
			s.actionInput = fieldValue(trimmed, "Action Input:")
			current = nil
		case hasField(trimmed, "Final Answer:"):
			s.finalAnswer = fieldValue(trimmed, "Final Answer:")
			current = &s.finalAnswer
		default:
			// Continuation lines extend the preceding multi-line field.
			if current != nil && trimmed != "" {
				*current = strings.TrimSpace(*current + "\n" + trimmed)
			}
		}
	}

	// "Action Input" also matches the "Action:" prefix check, so an
	// input without an action means the model misfired; ignore it.
	if s.action == "" {
		s.actionInput = ""
	}

	if !s.isAction() && !s.isFinal() {
		s.finalAnswer = strings.TrimSpace(response)
	}
	return s
}

func hasField(line, field string) bool {
	if field == "Action:" && strings.HasPrefix(line, "Action Input:") {
		return false
	}
	return strings.HasPrefix(line, field)
}

func fieldValue(line, field string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, field))
}
