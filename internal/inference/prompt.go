package inference

import (
	"fmt"
	"strings"
)

const promptHeader = `Evaluate a transcript from a presentation, provided in sequential chunks, to determine which topics are fully discussed according to given criteria.

- Identify any topic that meets all the criteria listed below as fully discussed:
  1. **Explicit Reference**: The topic is somewhat identified using relevant key terms, events, or ideas.
  2. **Coherent Discussion**: The topic is discussed in a clear, coherent sentence or phrase, without ambiguity.
  3. **Contextual Confirmation**: Consider minor transcription errors (e.g., homophones, slight misinterpretations) and use surrounding context to verify if the topic is referenced.
  4. **User Generation**: Keep in mind that topics are user generated, so their meanings may deviate slightly from their actual definition.

# Steps

1. Review each chunk in sequence to identify references to numbered topics.
2. For each reference, check if it meets the criteria for Explicit Reference, Coherent Discussion, and Contextual Confirmation.
3. Compile a list of numbers corresponding to topics that are fully discussed.
4. If no topic is fully covered, indicate with "!".
5. Ensure no false positives; references and discussions must be clear and unmistakable.

# Output Format

- Return the numbers of all fully discussed topics separated by spaces.
- If no topic is fully covered, return only "!" with no additional characters.
- Do not return anything other than numbers, spaces, or an exclamation mark.

# The Topics Numbered

`

const promptFooter = `

# Notes

- Accuracy is crucial; avoid marking points unless all criteria are unequivocally met.
- Pay attention to the context to correct any minor transcription errors.`

// BuildPrompt renders the grading instructions with the numbered topic list.
// The transcript fragment itself travels as the user message.
func BuildPrompt(topics []string) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	for i, topic := range topics {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, topic)
	}
	b.WriteString(promptFooter)
	return b.String()
}
