package agent

import "fixter/internal/tools"

// Loop names.
const (
	LoopConversation = "conversation"
	LoopExtraction   = "extraction"
)

// FallbackAnswer replaces a recovered answer that came out empty.
const FallbackAnswer = "I apologize, but I couldn't process that correctly. Please try asking in a different way."

// LoopConfig describes one agent loop.
type LoopConfig struct {
	// Name appears in logs and in unknown-tool observations.
	Name string `json:"name"`

	// Tools lists the tool names offered to the model.
	Tools []string `json:"tools"`

	// StepBudget is the maximum number of executed actions.
	StepBudget int `json:"step_budget"`

	// ReflectionEnabled turns on loop detection and efficiency critique.
	ReflectionEnabled bool `json:"reflection_enabled"`

	// BudgetMessage is the answer when StepBudget is exhausted.
	BudgetMessage string `json:"budget_message"`

	// SystemPrompt is placed ahead of the ReAct instructions.
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// ConversationSystemPrompt steers the conversation loop.
const ConversationSystemPrompt = `You are a helpful assistant capable of handling a wide range of queries and tasks.
You have access to short-term memory from previous interactions in this session.

For factual questions:
1. If you know the answer with high confidence, answer directly.
2. If you need to verify, use search tools but limit repeated identical searches.
3. After 1-2 searches, synthesize what you've found into a clear answer.
4. Don't get stuck in loops of repeated identical tool calls.

IMPORTANT: For simple conversational queries or questions you can answer directly from your knowledge,
provide a direct answer WITHOUT using any tools. Only use tools when necessary for complex queries
or when you need to retrieve specific information.

For direct questions that don't require tools, provide a direct answer using
the "Final Answer:" format without using any tools.

Always follow this exact format:
Thought: I need to analyze the task and determine what to do.
Action: tool_name
Action Input: the input to the tool
Observation: the result of the action
... (repeat Action/Observation as needed)
Thought: I have enough information to provide a response.
Final Answer: your response here

Never respond with: "Action: None" as this will cause an error.`

// ConversationLoop returns the general-purpose loop configuration.
func ConversationLoop() LoopConfig {
	return LoopConfig{
		Name:              LoopConversation,
		Tools:             append([]string(nil), tools.ConversationTools...),
		StepBudget:        10,
		ReflectionEnabled: true,
		BudgetMessage:     "I've spent some time analyzing your request but couldn't reach a clear conclusion. Could you please clarify what you're looking for?",
		SystemPrompt:      ConversationSystemPrompt,
	}
}

// ExtractionLoop returns the content extraction loop configuration.
func ExtractionLoop() LoopConfig {
	return LoopConfig{
		Name:          LoopExtraction,
		Tools:         append([]string(nil), tools.ExtractionTools...),
		StepBudget:    5,
		BudgetMessage: "Extraction process reached maximum steps. Please refine your query.",
	}
}

// WithStepBudget returns a copy of the config with the specified budget.
// Non-positive values leave the budget unchanged.
func (c LoopConfig) WithStepBudget(n int) LoopConfig {
	if n > 0 {
		c.StepBudget = n
	}
	return c
}

// WithTools returns a copy of the config offering the named tools.
func (c LoopConfig) WithTools(names ...string) LoopConfig {
	c.Tools = append([]string(nil), names...)
	return c
}
