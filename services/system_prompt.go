package services

import "fmt"

const generalSystemPrompt = `You are a helpful AI assistant. Answer the question using your knowledge.`

const groundedSystemPrompt = `You are a helpful assistant. Use the following context from the uploaded documents to answer the question.
If the context doesn't contain the answer, you can use your general knowledge but mention that it's not from the document.

Context from documents:
%s`

// GroundedSystemPrompt embeds retrieved context into the document-grounded
// instructions.
func GroundedSystemPrompt(context string) string {
	return fmt.Sprintf(groundedSystemPrompt, context)
}

// GeneralSystemPrompt is used when no document context is available.
func GeneralSystemPrompt() string {
	return generalSystemPrompt
}
