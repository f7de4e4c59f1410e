package prompt

import "strings"

// TaskType names a prompt strategy.
type TaskType string

const (
	TaskDefault   TaskType = "default"
	TaskStructure TaskType = "structure"
)

// Invalid is returned for task types with no template.
const Invalid = "Invalid PROMPT_NAME provided."

const (
	rawStart = "RAW_TEXT_START"
	rawEnd   = "RAW_TEXT_END"
)

// ParseTaskType reports whether s names a known task type.
func ParseTaskType(s string) (TaskType, bool) {
	t := TaskType(strings.TrimSpace(s))
	switch t {
	case TaskDefault, TaskStructure:
		return t, true
	}
	return t, false
}

// Build renders the instruction for task around the extracted page text.
// Unknown task types yield Invalid instead of an error so a misconfigured
// run still completes.
func Build(task TaskType, rawText string) string {
	switch task {
	case TaskDefault:
		return "Below is an image of a document page along with its dimensions. " +
			"Simply return the markdown representation of this document, presenting tables in markdown format as they naturally appear.\n" +
			"If the document contains images, use a placeholder like dummy.png for each image.\n" +
			"Your final output must be in JSON format with a single key `natural_text` containing the response.\n" +
			wrapRaw(rawText)
	case TaskStructure:
		return "Below is an image of a document page, along with its dimensions and possibly some raw textual content previously extracted from it. " +
			"Note that the text extraction may be incomplete or partially missing. Carefully consider both the layout and any available text to reconstruct the document accurately.\n" +
			"Your task is to return the markdown representation of this document, presenting tables in HTML format as they naturally appear.\n" +
			"If the document contains images or figures, analyze them and include the tag <figure>IMAGE_ANALYSIS</figure> in the appropriate location.\n" +
			"Your final output must be in JSON format with a single key `natural_text` containing the response.\n" +
			wrapRaw(rawText)
	default:
		return Invalid
	}
}

func wrapRaw(s string) string {
	var b strings.Builder
	b.Grow(len(rawStart) + len(rawEnd) + len(s) + 2)
	b.WriteString(rawStart)
	b.WriteString("\n")
	b.WriteString(s)
	b.WriteString("\n")
	b.WriteString(rawEnd)
	return b.String()
}
