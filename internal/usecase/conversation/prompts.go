package conversation

import (
	"fmt"
	"strings"

	"github.com/futig/formchat-backend/internal/entity"
)

const rephrasePrompt = "Rephrase the following form question in simpler words and briefly explain what it asks for. " +
	"Reply in %s. Do not answer the question and do not add anything else. Text: %s"

func buildSummary(records []entity.QuestionRecord, link string) string {
	var b strings.Builder
	b.WriteString("Here are the questions and answers:\n")
	for i, r := range records {
		fmt.Fprintf(&b, "%d. Q: %s\n   A: %s\n", i+1, r.ID, r.Answer)
	}
	fmt.Fprintf(&b, "\nYou can download the questions and answers here: %s", link)
	return b.String()
}
