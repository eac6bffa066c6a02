package rag

import (
	"fmt"
	"strings"

	"github.com/lumisproject/digital-twin-project-oracle/internal/llm"
)

// SystemPrompt frames every question.
const SystemPrompt = "You are Lumis, the Digital Twin of this codebase. " +
	"Use the provided summaries and relationship traces to answer. " +
	"Pay attention to how functions call each other to explain the impact of changes."

// Block is one retrieved unit with its relationship trace.
type Block struct {
	Match
	Trace Trace
}

// BuildContext concatenates the context blocks in retrieval order.
func BuildContext(blocks []Block) string {
	var b strings.Builder
	for _, blk := range blocks {
		fmt.Fprintf(&b, "File/Unit: %s\nSummary: %s", blk.Unit.ID, blk.Unit.Summary)
		b.WriteString(blk.Trace.String())
		b.WriteString("\n\n")
	}
	return b.String()
}

// BuildPrompt wraps the context and the question into the user message.
func BuildPrompt(blocks []Block, question string) string {
	return fmt.Sprintf("Context from codebase:\n%s\n\nQuestion: %s", BuildContext(blocks), question)
}

// BuildMessages constructs the conversation for a follow-up question: the
// system prompt, earlier turns, then the question with fresh context.
func BuildMessages(blocks []Block, history []llm.Message, question string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: SystemPrompt})
	msgs = append(msgs, history...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: BuildPrompt(blocks, question)})
	return msgs
}
