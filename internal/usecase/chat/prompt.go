package chat

import (
	"fmt"
	"strings"

	"github.com/futig/ragchat/internal/entity"
)

// systemPromptTemplate instructs the model to stay grounded in the retrieved
// context. Citation numbering restarts from [source1] for every question.
const systemPromptTemplate = `You are a technical troubleshooting assistant. Answer the user's question using only the context below.

Rules:
- Always answer truthfully. If the context does not contain the answer, say so instead of guessing.
- Cite the context passages you used as [source1], [source2] and so on. The numbering always starts from [source1] for the current question.
- If the question is unclear or ambiguous, ask a short clarifying follow-up question instead of answering.

Context:
%s`

// condensePrompt turns a follow-up question into a standalone one so that
// retrieval works without the conversation history.
const condensePrompt = `Given the following conversation and a follow-up question, rephrase the follow-up question to be a standalone question that contains all context needed to answer it. Reply with the standalone question only.`

func buildSystemPrompt(retrieved []entity.RetrievedChunk) string {
	var sb strings.Builder
	for i, chunk := range retrieved {
		fmt.Fprintf(&sb, "[source%d] %s\n%s\n\n", i+1, chunk.Source, chunk.Content)
	}
	return fmt.Sprintf(systemPromptTemplate, strings.TrimRight(sb.String(), "\n"))
}

func buildCondenseInput(history []entity.ChatMessage, question string) string {
	var sb strings.Builder
	sb.WriteString("Conversation:\n")
	for _, msg := range history {
		switch msg.Role {
		case entity.RoleUser:
			sb.WriteString("User: ")
		case entity.RoleAssistant:
			sb.WriteString("Assistant: ")
		}
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("\nFollow-up question: ")
	sb.WriteString(question)
	return sb.String()
}
