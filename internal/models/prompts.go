package models

const (
	// NoDocumentsAnswer is returned verbatim when retrieval finds nothing;
	// the generation capability is not invoked in that case.
	NoDocumentsAnswer = "No relevant documents were found to answer this question."

	ContextBlockTemplate = "[Document %d - %s]\n%s\n\n"
)

var (
	AnswerSystemPrompt = `You are a helpful assistant that answers questions strictly from the provided context documents.
Cite the documents you used with their numbers, e.g. [1] or [2].
If the answer is not contained in the context, say so explicitly instead of guessing.`

	AnswerUserPromptTemplate = `Context:
%s
Question: %s`
)
