package services

import (
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// maxHistoryMessages bounds how much prior conversation is replayed to the model
const maxHistoryMessages = 10

const answerSystemPrompt = "You are a study assistant for university courses. " +
	"Answer in the language of the student's question. " +
	"Be accurate and concise, and use examples when they help."

// answerPrompt assembles the grounded chat request for Ask.
func answerPrompt(question string, result *domain.RetrievalResult, history []domain.ChatMessage) []domain.ChatMessage {
	messages := []domain.ChatMessage{{Role: domain.ChatRoleSystem, Content: answerSystemPrompt}}

	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}
	for _, m := range history {
		// Clients cannot inject system instructions
		if m.Role != domain.ChatRoleUser && m.Role != domain.ChatRoleAssistant {
			continue
		}
		if m.Content == "" {
			continue
		}
		messages = append(messages, m)
	}

	var content string
	if result.NoRelevantContent {
		content = fmt.Sprintf(
			"No passage of the selected course documents matches this question. "+
				"Answer from general knowledge and say clearly that the answer is not based on the course material.\n\n"+
				"Question: %s", question)
	} else {
		content = fmt.Sprintf(
			"Answer the question using the course material below. "+
				"If the material does not contain the answer, say so.\n\n"+
				"Course material:\n%s\n\nQuestion: %s", result.Context, question)
	}
	return append(messages, domain.ChatMessage{Role: domain.ChatRoleUser, Content: content})
}
