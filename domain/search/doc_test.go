package search_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wisplabs/wisp/domain/search"
)

func TestBuildDoc(t *testing.T) {
	doc := search.BuildDoc(42, "io.github.acme/files", "read_file", "Read File",
		"Reads a file from disk", "Filesystem access for agents",
		[]search.DocParameter{
			{Name: "path", Description: "absolute path to read"},
			{Name: "mode", Description: "open mode", EnumJSON: `["r","rb"]`},
		})

	assert.Equal(t, int64(42), doc.ToolID())
	assert.Equal(t, "read_file Read File", doc.NameText())
	assert.Equal(t, "Reads a file from disk Filesystem access for agents", doc.DescText())
	assert.Equal(t, `path: absolute path to read | mode: open mode (enums: ["r","rb"])`, doc.ParamsText())

	// Server name lives only in the embedded document, not in the
	// high-weight name field.
	assert.NotContains(t, doc.NameText(), "io.github.acme/files")
	assert.Contains(t, doc.FullDoc(), "Tool: read_file\n")
	assert.Contains(t, doc.FullDoc(), "Server: io.github.acme/files\n")
	assert.Contains(t, doc.FullDoc(), "Parameters: path: absolute path to read")
}

func TestBuildDocNoParams(t *testing.T) {
	doc := search.BuildDoc(1, "io.github.acme/files", "list_dir", "", "Lists a directory", "", nil)
	assert.Empty(t, doc.ParamsText())
	assert.Equal(t, "list_dir", doc.NameText())
	assert.Contains(t, doc.FullDoc(), "Parameters: ")
}

func TestSanitizeQuery(t *testing.T) {
	assert.Equal(t, "read  file", search.SanitizeQuery(`read "file"`))
	assert.Equal(t, "a AND b", search.SanitizeQuery("a AND b"))
	assert.Equal(t, "c", search.SanitizeQuery("c++"))
	assert.Equal(t, "", search.SanitizeQuery("!@#$%"))
	assert.Equal(t, "", search.SanitizeQuery("   "))
}
