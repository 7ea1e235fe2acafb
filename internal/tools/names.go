package tools

// Built-in tool names. The input normalizer keys its per-tool parsing on
// these, so they are part of the model-facing contract.
const (
	NameSystemTime          = "get_system_time"
	NameWebSearch           = "tavily_search_results_json"
	NameListMemorySessions  = "list_memory_sessions"
	NameClearMemorySession  = "clear_memory_session"
	NameConversationHistory = "get_conversation_history"
	NameMemoryEntities      = "get_memory_entities"
	NameExtractLocal        = "extract_content_local"
	NameExtractGit          = "extract_git_content"
)

// ConversationTools are the tools offered to the conversation loop.
var ConversationTools = []string{
	NameSystemTime,
	NameWebSearch,
	NameListMemorySessions,
	NameClearMemorySession,
	NameConversationHistory,
	NameMemoryEntities,
}

// ExtractionTools are the tools offered to the extraction loop.
var ExtractionTools = []string{
	NameExtractLocal,
	NameExtractGit,
}
