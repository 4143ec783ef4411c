// Package search holds the retrieval domain: search document assembly and
// the hybrid score fusion math.
package search

import (
	"fmt"
	"regexp"
	"strings"
)

// Field weights of the keyword index.
const (
	WeightNameText   = 5.0
	WeightDescText   = 3.0
	WeightParamsText = 1.0
)

// DocParameter is the slice of a tool parameter that enters the search
// document.
type DocParameter struct {
	Name        string
	Description string
	EnumJSON    string
}

// SearchDoc is the indexed representation of one tool.
type SearchDoc struct {
	toolID     int64
	serverName string
	toolName   string
	nameText   string
	descText   string
	paramsText string
	fullDoc    string
}

// BuildDoc assembles the search document for a tool. The server name is
// deliberately kept out of nameText; it only appears in the embedded full
// document.
func BuildDoc(toolID int64, serverName, toolName, title, description, serverDescription string, params []DocParameter) SearchDoc {
	nameText := strings.TrimSpace(toolName + " " + title)
	descText := strings.TrimSpace(description + " " + serverDescription)

	parts := make([]string, 0, len(params))
	for _, p := range params {
		part := p.Name + ": " + p.Description
		if p.EnumJSON != "" {
			part += " (enums: " + p.EnumJSON + ")"
		}
		parts = append(parts, part)
	}
	paramsText := strings.Join(parts, " | ")

	fullDoc := fmt.Sprintf(
		"Tool: %s\nServer: %s\nTitle: %s\nDescription: %s\nServer Description: %s\nParameters: %s",
		toolName, serverName, title, description, serverDescription, paramsText)

	return SearchDoc{
		toolID:     toolID,
		serverName: serverName,
		toolName:   toolName,
		nameText:   nameText,
		descText:   descText,
		paramsText: paramsText,
		fullDoc:    fullDoc,
	}
}

// RestoreDoc rebuilds a SearchDoc from persisted fields without
// reassembling the text.
func RestoreDoc(toolID int64, serverName, toolName, nameText, descText, paramsText, fullDoc string) SearchDoc {
	return SearchDoc{
		toolID:     toolID,
		serverName: serverName,
		toolName:   toolName,
		nameText:   nameText,
		descText:   descText,
		paramsText: paramsText,
		fullDoc:    fullDoc,
	}
}

// ToolID returns the indexed tool's row id.
func (d SearchDoc) ToolID() int64 { return d.toolID }

// ServerName returns the owning server name.
func (d SearchDoc) ServerName() string { return d.serverName }

// ToolName returns the tool name.
func (d SearchDoc) ToolName() string { return d.toolName }

// NameText returns the high-weight name field.
func (d SearchDoc) NameText() string { return d.nameText }

// DescText returns the medium-weight description field.
func (d SearchDoc) DescText() string { return d.descText }

// ParamsText returns the low-weight parameter field.
func (d SearchDoc) ParamsText() string { return d.paramsText }

// FullDoc returns the text that is embedded.
func (d SearchDoc) FullDoc() string { return d.fullDoc }

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9\s]`)

// SanitizeQuery strips characters that would break an FTS match expression,
// replacing them with spaces.
func SanitizeQuery(query string) string {
	return strings.TrimSpace(nonAlnum.ReplaceAllString(query, " "))
}
