package models

const (
	ContextSeparator = "\n\n"
	DefaultTopK      = 4
	DefaultMaxTokens = 900
)

var (
	// StuffQAPromptTemplate is rendered with the retrieved context and the user question.
	StuffQAPromptTemplate = `Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.

{{.context}}

Question: {{.question}}
Helpful Answer:`
)
