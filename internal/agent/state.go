package agent

import "github.com/google/uuid"

// Action is a tool call requested by the model. It is never mutated.
type Action struct {
	Tool     string `json:"tool"`
	RawInput any    `json:"raw_input"`
	Log      string `json:"log"`
}

// OutcomeKind tags the variant held by an Outcome.
type OutcomeKind int

const (
	// OutcomeUnset means no reasoning step has completed yet.
	OutcomeUnset OutcomeKind = iota
	// OutcomePending means the model asked for a tool call.
	OutcomePending
	// OutcomeFinal means the run has an answer.
	OutcomeFinal
)

// String returns the string representation of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomePending:
		return "pending_action"
	case OutcomeFinal:
		return "final_answer"
	default:
		return "unset"
	}
}

// Outcome is the result of the latest reasoning or reflection step.
// Action is set only for OutcomePending; Text only for OutcomeFinal.
type Outcome struct {
	Kind   OutcomeKind
	Action *Action
	Text   string
	Log    string
}

// IsFinal reports whether the outcome carries the final answer.
func (o Outcome) IsFinal() bool {
	return o.Kind == OutcomeFinal
}

// Step is one executed action and the observation it produced.
type Step struct {
	Action      Action `json:"action"`
	Observation string `json:"observation"`
}

// ReflectionKind names the check that produced a reflection.
type ReflectionKind string

const (
	ReflectionLoopDetection ReflectionKind = "loop_detection"
	ReflectionEfficiency    ReflectionKind = "efficiency"
)

// ReflectionRecord is a critique recorded during the run.
type ReflectionRecord struct {
	Step    int            `json:"step"`
	Kind    ReflectionKind `json:"type"`
	Content string         `json:"content"`
}

// State is the execution state of one run. It is owned by that run alone.
// History and StepCounter change only through record.
type State struct {
	WorkingInput string
	Outcome      Outcome
	History      []Step
	StepCounter  int
	Reflections  []ReflectionRecord
	SessionID    string
	RunID        string
}

// NewState creates the initial state for a run.
func NewState(input, sessionID string) *State {
	return &State{
		WorkingInput: input,
		SessionID:    sessionID,
		RunID:        uuid.NewString(),
	}
}

// Answer returns the final answer, or "" while the run is unfinished.
func (s *State) Answer() string {
	if !s.Outcome.IsFinal() {
		return ""
	}
	return s.Outcome.Text
}

// record appends one executed step. It is the only place History grows
// and StepCounter moves.
func (s *State) record(a Action, observation string) {
	s.History = append(s.History, Step{Action: a, Observation: observation})
	s.StepCounter++
}

func (s *State) pending(a Action) {
	s.Outcome = Outcome{Kind: OutcomePending, Action: &a, Log: a.Log}
}

func (s *State) finish(text, log string) {
	s.Outcome = Outcome{Kind: OutcomeFinal, Text: text, Log: log}
}

func (s *State) addReflection(r ReflectionRecord) {
	s.Reflections = append(s.Reflections, r)
}

// toolSequence returns the tool names of the last n steps, oldest first.
func (s *State) toolSequence(n int) []string {
	steps := s.History
	if len(steps) > n {
		steps = steps[len(steps)-n:]
	}
	seq := make([]string, len(steps))
	for i, st := range steps {
		seq[i] = st.Action.Tool
	}
	return seq
}

func (s *State) lastSteps(n int) []Step {
	if len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}
