package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSchema(t *testing.T) {
	type args struct {
		Directory  string   `json:"directory" jsonschema:"description=Directory to walk,required"`
		Extensions []string `json:"extensions" jsonschema:"description=File extensions"`
		Clipboard  bool     `json:"clipboard_only" jsonschema:"default=false"`
		Mode       string   `json:"mode" jsonschema:"enum=fast|full"`
		Limit      *int     `json:"limit"`
		Skipped    string   `json:"-"`
		hidden     string
	}

	schema := BuildSchema(&args{})
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"directory"}, schema["required"])

	props := schema["properties"].(map[string]any)
	require.Len(t, props, 5)
	assert.Equal(t, "Directory to walk", props["directory"].(map[string]any)["description"])
	assert.Equal(t, map[string]any{"type": "string"}, props["extensions"].(map[string]any)["items"])
	assert.Equal(t, "false", props["clipboard_only"].(map[string]any)["default"])
	assert.Equal(t, []any{"fast", "full"}, props["mode"].(map[string]any)["enum"])
	assert.Equal(t, "integer", props["limit"].(map[string]any)["type"])

	assert.Equal(t, []string{"clipboard_only", "directory", "extensions", "limit", "mode"}, ParamNames(schema))
}

func TestBuildSchemaNonStruct(t *testing.T) {
	schema := BuildSchema("nope")
	assert.Empty(t, ParamNames(schema))
	assert.Empty(t, ParamNames(BuildSchema(nil)))
}
