package models

const (
	AppTitle    = "Financial Jargon Translator"
	AppSubtitle = "Upload a document or type a complex financial statement to get a simplified explanation tailored to your background."

	ContextSeparator = "\n"
)

// prompt templates, filled with fmt.Sprintf
var (
	RoleFramingTemplate = "You are a financial tutor helping a %s understand the following:\n"

	ContextPromptTemplate = "\nRelevant context from document:\n%s\n"

	StatementPromptTemplate = "\nStatement:\n%s\n\nExplain in simple terms."

	FollowUpPromptTemplate = "Explain the following even more simply for a %s:\n\n%s"
)
