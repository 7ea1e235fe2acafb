package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var firstFinalAnswer = regexp.MustCompile(`(?s)Final Answer:\s*(.*?)(?:\n|$)`)

// markup segments removed from unparseable output, in order. Each runs from its
// label to the nearest terminator or the end of the text.
var markupSegments = []struct {
	label string
	until []string
}{
	{"Thought:", []string{"Action:", "Observation:", "Final Answer:"}},
	{"Action:", []string{"Observation:", "Final Answer:"}},
	{"Action Input:", []string{"Observation:", "Final Answer:"}},
	{"Observation:", []string{"Thought:", "Action:", "Final Answer:"}},
}

var markupLabels = regexp.MustCompile(`Thought:|Action:|Action Input:|Observation:`)

// reason runs one reasoning step and stores the outcome in st.
func (l *Loop) reason(ctx context.Context, st *State) error {
	prompt := renderPrompt(l.cfg.SystemPrompt, l.tools.List(), st.WorkingInput, st.History)
	text, err := l.llm.Invoke(ctx, prompt, []string{StopSequence})
	if err != nil {
		return fmt.Errorf("reasoning step %d: %w", st.StepCounter, err)
	}
	l.emit(st, Event{Type: EventReasoning, Content: text})

	outcome, err := parseReAct(text)
	if err != nil {
		var pe *ParseError
		if !errors.As(err, &pe) {
			return err
		}
		answer := recoverAnswer(pe.Text)
		l.log(st).Warn().Str("reason", pe.Reason).Msg("Unparseable model output recovered as answer")
		st.finish(answer, pe.Text)
		return nil
	}

	if outcome.Kind == OutcomePending {
		st.pending(*outcome.Action)
		return nil
	}
	st.finish(outcome.Text, outcome.Log)
	return nil
}

// recoverAnswer turns unparseable output into a user-facing answer: the
// first Final Answer line, else the text left after removing ReAct markup,
// else the apology.
func recoverAnswer(text string) string {
	out := strings.TrimSpace(text)
	if m := firstFinalAnswer.FindStringSubmatch(out); m != nil {
		out = strings.TrimSpace(m[1])
	} else if markupLabels.MatchString(out) {
		for _, seg := range markupSegments {
			out = stripSegments(out, seg.label, seg.until)
		}
		out = strings.TrimSpace(out)
	}
	if out == "" {
		return FallbackAnswer
	}
	return out
}

func stripSegments(text, label string, until []string) string {
	var b strings.Builder
	for {
		i := strings.Index(text, label)
		if i < 0 {
			b.WriteString(text)
			return b.String()
		}
		b.WriteString(text[:i])
		rest := text[i+len(label):]
		end := len(rest)
		for _, t := range until {
			if j := strings.Index(rest, t); j >= 0 && j < end {
				end = j
			}
		}
		text = rest[end:]
	}
}
