// Package export renders a stored content structure to Markdown or HTML.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"quill/internal/memory"
)

// Markdown renders the session's sections and points as a Markdown document.
// Sections come out in creation order; an empty structure still yields a
// titled document.
func Markdown(topic string, sections []memory.Section) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n", topic)

	if len(sections) == 0 {
		sb.WriteString("\n_No sections have been developed yet._\n")
		return sb.String()
	}

	for _, section := range sections {
		fmt.Fprintf(&sb, "\n## %s\n", section.Title)
		for _, point := range section.Points {
			fmt.Fprintf(&sb, "\n- %s\n", point.Text)
			for _, evidence := range point.Evidence {
				fmt.Fprintf(&sb, "  - %s\n", evidence)
			}
		}
	}
	return sb.String()
}

// HTML converts the Markdown rendering to HTML.
func HTML(topic string, sections []memory.Section) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(topic, sections)), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}
