// Package prompt composes the text sent to the generation endpoint.
package prompt

import (
	"fmt"
	"strings"

	"jargon-translator/internal/models"
)

// Build frames the statement for role, inserting retrieved context when present.
func Build(role models.Role, context []string, statement string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(models.RoleFramingTemplate, role.Prompt()))
	if len(context) > 0 {
		b.WriteString(fmt.Sprintf(models.ContextPromptTemplate, strings.Join(context, models.ContextSeparator)))
	}
	b.WriteString(fmt.Sprintf(models.StatementPromptTemplate, statement))
	return b.String()
}

// FollowUp asks for an even simpler version of a previous explanation.
func FollowUp(role models.Role, explanation string) string {
	return fmt.Sprintf(models.FollowUpPromptTemplate, role.Prompt(), explanation)
}
