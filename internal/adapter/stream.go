package adapter

import (
	"strings"

	"github.com/nulpointcorp/llm-gateway/internal/canonical"
)

// WordWrapWidth is the §4.E whole-body-to-chunks chunk size: providers that
// answer a streaming-shaped function with one complete body (rather than
// SSE) have that body re-emitted as a sequence of ≤50-char word-wrapped
// canonical chunks, the same texture the teacher's writeSSE gives live
// provider streams.
const WordWrapWidth = 50

// WholeBodyToChunks splits content into ordered ChatCompletionChunks,
// wrapping on word boundaries at WordWrapWidth, followed by a final chunk
// carrying finishReason. id/model/created are copied onto every chunk.
func WholeBodyToChunks(id, model string, created int64, content, finishReason string) []canonical.ChatCompletionChunk {
	words := strings.Fields(content)
	var chunks []canonical.ChatCompletionChunk

	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		chunks = append(chunks, newDeltaChunk(id, model, created, cur.String()))
		cur.Reset()
	}

	for _, w := range words {
		candidate := w
		if cur.Len() > 0 {
			candidate = " " + w
		}
		if cur.Len()+len(candidate) > WordWrapWidth {
			flush()
			candidate = w
		}
		cur.WriteString(candidate)
	}
	flush()

	chunks = append(chunks, canonical.ChatCompletionChunk{
		ID: id, Object: "chat.completion.chunk", Created: created, Model: model,
		Choices: []canonical.ChatCompletionChunkChoice{
			{Index: 0, Delta: canonical.ChatCompletionChunkDelta{}, FinishReason: &finishReason},
		},
	})
	return chunks
}

func newDeltaChunk(id, model string, created int64, text string) canonical.ChatCompletionChunk {
	return canonical.ChatCompletionChunk{
		ID: id, Object: "chat.completion.chunk", Created: created, Model: model,
		Choices: []canonical.ChatCompletionChunkChoice{
			{Index: 0, Delta: canonical.ChatCompletionChunkDelta{Content: text}},
		},
	}
}

// ToolCallChunk builds the §4.E tool-call-bearing chunk shape:
// tool_calls[i].function.{name,arguments,id}, finish_reason="tool_calls".
func ToolCallChunk(id, model string, created int64, index int, toolCallID, fnName, argsFragment string) canonical.ChatCompletionChunk {
	finishReason := "tool_calls"
	return canonical.ChatCompletionChunk{
		ID: id, Object: "chat.completion.chunk", Created: created, Model: model,
		Choices: []canonical.ChatCompletionChunkChoice{
			{
				Index: 0,
				Delta: canonical.ChatCompletionChunkDelta{
					ToolCalls: []canonical.ToolCall{
						{
							Index: index,
							ID:    toolCallID,
							Type:  "function",
							Function: canonical.ToolCallFunc{
								Name:      fnName,
								Arguments: argsFragment,
							},
						},
					},
				},
				FinishReason: &finishReason,
			},
		},
	}
}
