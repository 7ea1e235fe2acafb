package builtin

import (
	"context"

	"github.com/ncruces/go-strftime"

	"fixter/internal/tools"
)

// DefaultTimeFormat is used when no format is given.
const DefaultTimeFormat = "%Y-%m-%d %H:%M:%S"

// SystemTimeArgs defines the parameters for get_system_time.
type SystemTimeArgs struct {
	Format string `json:"format" jsonschema:"description=strftime format string,default=%Y-%m-%d %H:%M:%S"`
}

// SystemTimeTool reports the local time.
type SystemTimeTool struct {
	tools.BaseTool
	deps Deps
}

// NewSystemTimeTool creates the get_system_time tool.
func NewSystemTimeTool(d Deps) *SystemTimeTool {
	return &SystemTimeTool{
		BaseTool: tools.BaseTool{
			ToolName:        tools.NameSystemTime,
			ToolDescription: "Returns the current date and time in the specified strftime format.",
			ToolParameters:  tools.BuildSchema(SystemTimeArgs{}),
		},
		deps: d,
	}
}

// Execute formats the current time.
func (t *SystemTimeTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	format := tools.StringArg(args, "format", DefaultTimeFormat)
	return tools.NewSuccessResult(strftime.Format(format, t.deps.now())), nil
}
