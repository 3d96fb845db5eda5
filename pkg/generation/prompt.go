package generation

import (
	"strconv"
	"strings"
)

// RenderPrompt folds grounding passages into a single prompt. Providers
// share this layout so answers cite the same material regardless of which
// provider served the request.
func RenderPrompt(req Request) string {
	if len(req.Context) == 0 {
		return req.Prompt
	}

	var b strings.Builder
	b.WriteString("Use the following passages to answer the question.\n\n")
	for i, passage := range req.Context {
		if strings.TrimSpace(passage) == "" {
			continue
		}
		b.WriteString("Passage ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(":\n")
		b.WriteString(passage)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(req.Prompt)

	return b.String()
}
