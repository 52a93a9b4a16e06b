package export

import (
	"fmt"
	"io"

	"github.com/fumiama/go-docx"

	"classkitd/pkg/types"
)

// WriteAssignmentDocx renders the assignment as a Word document. With
// includeAnswers the teacher copy gets a red ANSWER KEY banner, per-question
// answers and explanations, and a rubric page; without it the student copy
// shows only prompts, choices and writing space.
func WriteAssignmentDocx(w io.Writer, a *types.Assignment, includeAnswers bool) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("assignment: %w", err)
	}
	doc := docx.New().WithDefaultTheme()

	title := doc.AddParagraph().Justification("center")
	title.AddText(a.AssignmentTitle).Size("36").Bold()

	if includeAnswers {
		banner := doc.AddParagraph().Justification("center")
		banner.AddText("TEACHER COPY - ANSWER KEY").Size("24").Bold().Color("FF0000")
	}

	if a.Instructions != "" {
		doc.AddParagraph().AddText(a.Instructions)
	}
	doc.AddParagraph().AddText("__________________________________________________")

	for i, q := range a.Questions {
		head := doc.AddParagraph()
		head.AddText(fmt.Sprintf("Q%d: %s", i+1, q.Prompt)).Size("28").Bold()

		switch q.Type {
		case "mcq":
			for _, choice := range q.Choices {
				doc.AddParagraph().AddText("[ ] " + choice)
			}
		default:
			// short answer: leave writing space
			doc.AddParagraph().AddText("")
			doc.AddParagraph().AddText("__________________________")
		}

		if includeAnswers {
			ans := doc.AddParagraph()
			ans.AddText("Answer: " + q.Answer).Bold()
			if q.Explanation != "" {
				doc.AddParagraph().AddText("Explanation: " + q.Explanation).Italic()
			}
		}
	}

	if includeAnswers && len(a.Rubric) > 0 {
		doc.AddParagraph().AddPageBreaks()
		rub := doc.AddParagraph()
		rub.AddText("Rubric").Size("32").Bold()
		for _, r := range a.Rubric {
			doc.AddParagraph().AddText("- " + r)
		}
	}

	footer := footerLine
	if includeAnswers {
		footer += " | TEACHER COPY"
	}
	foot := doc.AddParagraph().Justification("center")
	foot.AddText(footer).Size("18").Color("808080")

	_, err := doc.WriteTo(w)
	return err
}
