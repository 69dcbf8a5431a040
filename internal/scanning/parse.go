package scanning

import (
	"strings"
)

// transcribePrompt is the shared prompt used by LLM engines. They act as plain
// OCR: field extraction happens on the returned text, not in the model.
const transcribePrompt = `You are an OCR engine reading a scanned receipt or invoice.

Transcribe every line of text in the image exactly as printed, top to bottom, one output line per printed line.

Important:
- Do not summarize, translate, correct, or reformat anything
- Keep numbers, currency symbols, punctuation and labels such as "Total", "Order #" or "Transaction ID" exactly as they appear
- Do not add commentary before or after the text
- Do not use markdown code blocks`

// cleanTranscript strips markdown fences and surrounding chatter markers that
// models add despite the prompt
func cleanTranscript(text string) string {
	text = strings.TrimSpace(text)

	// Remove opening markdown code blocks
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx != -1 {
			text = text[idx+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}

	// Remove closing markdown code blocks
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")

	return strings.TrimSpace(text) + "\n"
}
