package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mooagent/mooagent/internal/tools"
)

// systemPrompt renders the reasoning instructions and the tool catalog
// for the model.
func systemPrompt(descs []tools.Descriptor) string {
	var b strings.Builder
	b.WriteString(`You are a helpful assistant that reasons step by step and can use tools.

Answer using exactly this format:

Thought: what you are thinking about the question
Action: the tool to use, one of the tools listed below
Action Input: the tool arguments as a single-line JSON object
Observation: the tool result (provided to you, never write this yourself)

Repeat Thought/Action/Action Input/Observation as needed. When you
know the answer, finish with:

Thought: I now know the answer
Final Answer: the answer to the question

If no tool is needed, go straight to the Final Answer. Available tools:

`)
	for _, d := range descs {
		b.WriteString(fmt.Sprintf("- %s: %s\n", d.Name, d.Description))
		if len(d.Parameters) > 0 {
			names := make([]string, 0, len(d.Parameters))
			for n := range d.Parameters {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, n := range names {
				p := d.Parameters[n]
				req := "optional"
				if p.Required {
					req = "required"
				}
				b.WriteString(fmt.Sprintf("    %s (%s, %s): %s\n", n, p.Type, req, p.Description))
			}
		}
	}
	return b.String()
}
