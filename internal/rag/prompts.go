package rag

import (
	"fmt"
	"strings"

	"github.com/hyperjump/askpdf/internal/models"
)

const groundingInstruction = `Use the following pieces of context to answer the question at the end.
Answer only from the context. If the context does not contain the answer, say that you don't know; don't try to make up an answer.`

// buildAnswerPrompt lists every retrieved chunk, labelled with source and page, then the question.
func buildAnswerPrompt(query string, chunks []models.ScoredChunk) string {
	var buf strings.Builder
	buf.WriteString(groundingInstruction)
	buf.WriteString("\n\nContext:\n")
	for i, c := range chunks {
		fmt.Fprintf(&buf, "[%d] %s, page %d\n", i+1, c.Metadata.Source, c.Metadata.Page+1)
		buf.WriteString(c.Content)
		buf.WriteString("\n\n")
	}
	buf.WriteString("Question: ")
	buf.WriteString(query)
	return buf.String()
}

func buildSummaryPrompt(corpus string) string {
	var buf strings.Builder
	buf.WriteString("Summarize the following document text in a few concise paragraphs. ")
	buf.WriteString("Cover the main topics and conclusions and do not add information that is not in the text.\n\n")
	buf.WriteString("Text:\n<<<\n")
	buf.WriteString(corpus)
	buf.WriteString("\n>>>")
	return buf.String()
}

func buildSimplifyPrompt(text string) string {
	return "Rewrite the following text in plain, simple language that a non-expert can follow. " +
		"Keep the meaning and every fact; use short sentences.\n\nText:\n" + text
}

func buildTranslatePrompt(text, language string) string {
	return fmt.Sprintf("Translate the following text into %s. Reply with the translation only.\n\nText:\n%s", language, text)
}

// buildChatPrompt prepends the caller's transcript verbatim.
func buildChatPrompt(message string, history []models.ChatTurn) string {
	var buf strings.Builder
	buf.WriteString("You are a helpful assistant.\n\n")
	for _, turn := range history {
		switch turn.Role {
		case "assistant":
			buf.WriteString("Assistant: ")
		default:
			buf.WriteString("User: ")
		}
		buf.WriteString(turn.Content)
		buf.WriteString("\n")
	}
	buf.WriteString("User: ")
	buf.WriteString(message)
	return buf.String()
}
