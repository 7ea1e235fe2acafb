package agent

import (
	"fmt"
	"regexp"
	"strings"

	"fixter/internal/tools"
)

// StopSequence ends generation before the model invents an observation.
const StopSequence = "\nObservation"

const finalAnswerMarker = "Final Answer:"

const reactTemplate = `Answer the following questions as best you can. You have access to the following tools:

{tools}

Use the following format:

Question: the input question you must answer
Thought: you should always think about what to do
Action: the action to take, should be one of [{tool_names}]
Action Input: the input to the action
Observation: the result of the action
... (this Thought/Action/Action Input/Observation can repeat N times)
Thought: I now know the final answer
Final Answer: the final answer to the original input question

Begin!

Question: {input}
Thought:{agent_scratchpad}`

var (
	actionPattern      = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)[\s]*Action\s*\d*\s*Input\s*\d*\s*:[\s]*(.*)`)
	actionOnlyPattern  = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)`)
	actionInputPattern = regexp.MustCompile(`(?s)[\s]*Action\s*\d*\s*Input\s*\d*\s*:[\s]*(.*)`)
)

// renderPrompt builds the ReAct prompt for one reasoning step.
func renderPrompt(preamble string, toolset []tools.Tool, input string, history []Step) string {
	descs := make([]string, len(toolset))
	names := make([]string, len(toolset))
	for i, t := range toolset {
		descs[i] = fmt.Sprintf("%s: %s", t.Name(), t.Description())
		names[i] = t.Name()
	}

	r := strings.NewReplacer(
		"{tools}", strings.Join(descs, "\n"),
		"{tool_names}", strings.Join(names, ", "),
		"{input}", input,
		"{agent_scratchpad}", scratchpad(history),
	)
	prompt := r.Replace(reactTemplate)
	if preamble = strings.TrimSpace(preamble); preamble != "" {
		prompt = preamble + "\n\n" + prompt
	}
	return prompt
}

// scratchpad replays previous steps in the format the model produced them.
func scratchpad(history []Step) string {
	var b strings.Builder
	for _, st := range history {
		b.WriteString(st.Action.Log)
		b.WriteString("\nObservation: ")
		b.WriteString(st.Observation)
		b.WriteString("\nThought: ")
	}
	return b.String()
}

// parseReAct reads one model completion. It yields either a pending action
// or a final answer; anything else is a *ParseError.
func parseReAct(text string) (Outcome, error) {
	hasAnswer := strings.Contains(text, finalAnswerMarker)

	if m := actionPattern.FindStringSubmatch(text); m != nil {
		if hasAnswer {
			return Outcome{}, &ParseError{Text: text, Reason: "both a final answer and a parse-able action"}
		}
		input := strings.Trim(strings.Trim(m[2], " "), `"`)
		a := Action{Tool: strings.TrimSpace(m[1]), RawInput: input, Log: text}
		return Outcome{Kind: OutcomePending, Action: &a, Log: text}, nil
	}

	if hasAnswer {
		parts := strings.Split(text, finalAnswerMarker)
		return Outcome{Kind: OutcomeFinal, Text: strings.TrimSpace(parts[len(parts)-1]), Log: text}, nil
	}

	switch {
	case !actionOnlyPattern.MatchString(text):
		return Outcome{}, &ParseError{Text: text, Reason: "missing 'Action:' after 'Thought:'"}
	case !actionInputPattern.MatchString(text):
		return Outcome{}, &ParseError{Text: text, Reason: "missing 'Action Input:' after 'Action:'"}
	default:
		return Outcome{}, &ParseError{Text: text, Reason: "unrecognized format"}
	}
}
