package prompt

import (
	"fmt"
	"strings"
)

// Section headings the answer must use, in the order the model is asked to emit them.
var Sections = []string{
	"### Geographic Scope",
	"### Identified Areas",
	"### Analysis Summary",
	"### Confidence Level",
	"### Additional Notes",
}

// GetSystemPrompt provides strict directions for the markdown answer format.
func GetSystemPrompt() string {
	return `You are a geographic classification assistant for a local newsroom in Pittsburgh, Pennsylvania. Read the article the user provides and classify where it takes place. Respond in markdown only, using exactly the five sections below, each introduced by its heading on its own line. Do not wrap the answer in code fences.

Requirements:
- "### Geographic Scope": one line, for example Neighborhood, Multi-neighborhood, Citywide, County, Regional, Statewide, National.
- "### Identified Areas": a pipe table with the header row "| Name | Region | Context |", a divider row, then one row per named place. Region is the broader area the place belongs to. Context is a short phrase on how the article mentions it.
- "### Analysis Summary": two or three sentences.
- "### Confidence Level": one word, High, Medium or Low.
- "### Additional Notes": anything ambiguous, or "None".

` + Template()
}

// Template renders an empty answer skeleton.
func Template() string {
	var sb strings.Builder
	for i, s := range Sections {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(s + "\n")
		if s == "### Identified Areas" {
			sb.WriteString("| Name | Region | Context |\n|------|--------|---------|\n")
		} else {
			sb.WriteString("<text>\n")
		}
	}
	return sb.String()
}

// GetUserPrompt wraps the article text.
func GetUserPrompt(text string) string {
	return fmt.Sprintf("Classify the geography of this article.\n\n%s", text)
}
