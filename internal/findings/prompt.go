package findings

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

//go:embed system.tmpl
var systemPromptTmpl string

//go:embed user.tmpl
var userPromptTmpl string

var (
	systemTemplate = template.Must(template.New("system").Parse(systemPromptTmpl))
	userTemplate   = template.Must(template.New("user").Parse(userPromptTmpl))
)

// SystemPrompt builds the detection system prompt listing only the enabled
// categories and their descriptions.
func SystemPrompt(enabled []Category) string {
	quoted := make([]string, len(enabled))
	descs := make([]string, len(enabled))
	for i, c := range enabled {
		quoted[i] = "'" + string(c) + "'"
		descs[i] = Description(c)
	}

	var buf bytes.Buffer
	data := struct {
		AllowedTypes string
		Descriptions []string
	}{
		AllowedTypes: strings.Join(quoted, ", "),
		Descriptions: descs,
	}
	if err := systemTemplate.Execute(&buf, data); err != nil {
		return systemPromptTmpl
	}
	return buf.String()
}

// UserPrompt builds the user prompt carrying the page text.
func UserPrompt(pageText string) string {
	var buf bytes.Buffer
	data := struct{ PageText string }{PageText: pageText}
	if err := userTemplate.Execute(&buf, data); err != nil {
		return userPromptTmpl
	}
	return buf.String()
}
