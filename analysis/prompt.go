package analysis

import (
	"fmt"
	"strings"

	"github.com/richinex/repolens/model"
)

// sectionGuide describes what each section must contain.
type sectionGuide struct {
	name       string
	minBullets int
	focus      string
}

var sectionGuides = []sectionGuide{
	{model.SectionOverview, 3, "the purpose of the project, the problem it solves and who uses it"},
	{model.SectionFeatures, 5, "the main functionality, naming the functions or classes that provide it"},
	{model.SectionLibraries, 3, "each key library or framework imported and what the project uses it for"},
	{model.SectionWorkflow, 5, "the end-to-end flow in execution order, from entry point to final output, covering both what the system does internally and what the user does"},
	{model.SectionImplementation, 3, "notable patterns, data structures and algorithms, with file names"},
	{model.SectionStrengths, 3, "what the code does well and why it matters"},
	{model.SectionImprovements, 3, "concrete weaknesses and how to fix them"},
}

const minWordsPerBullet = 15

// outputContract is the fixed response format appended to every analysis prompt.
var outputContract = buildOutputContract()

func buildOutputContract() string {
	var b strings.Builder
	b.WriteString("Provide your analysis in this exact markdown format. ")
	b.WriteString("Use every heading below exactly as written, in this order, each on its own line starting with \"## \". ")
	b.WriteString("Do not add other top-level headings and do not leave any section empty.\n\n")
	for _, g := range sectionGuides {
		fmt.Fprintf(&b, "## %s\n", g.name)
		fmt.Fprintf(&b, "[At least %d bullet points starting with \"- \" describing %s.]\n\n", g.minBullets, g.focus)
	}
	fmt.Fprintf(&b, "Rules:\n")
	fmt.Fprintf(&b, "- Every bullet must contain at least %d words of explanation, not just a name.\n", minWordsPerBullet)
	b.WriteString("- Be specific and technical. Refer to real file, function and library names from the code above.\n")
	b.WriteString("- Use bullet points, not numbered lists.\n")
	b.WriteString("- Do not wrap the answer in a code block and do not add any text before the first heading.")
	return b.String()
}

// BuildPrompt synthesizes the analysis instruction for already selected files.
// It is deterministic: the same files always produce the same prompt.
func BuildPrompt(files []model.SourceFile) string {
	var b strings.Builder
	b.WriteString("You are a code analysis expert. Analyze these Python files and provide a detailed technical summary.\n\n")
	b.WriteString("Files to analyze:\n\n")
	for i, f := range files {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "### %s\n```python\n%s\n```", fileLabel(f), f.Content)
	}
	b.WriteString("\n\n")
	b.WriteString(outputContract)
	return b.String()
}

func fileLabel(f model.SourceFile) string {
	if f.Path != "" {
		return f.Path
	}
	return f.Name
}
