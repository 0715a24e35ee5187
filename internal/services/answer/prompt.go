package answer

import (
	"fmt"
	"strings"
)

// promptTemplate frames the model as a university assistant that must
// answer only from the supplied knowledge content.
const promptTemplate = `Ты — помощник университета. Отвечай на вопросы студентов и абитуриентов, используя ТОЛЬКО информацию из базы знаний ниже.

Правила:
1. Отвечай кратко и по существу, на русском языке.
2. Используй только факты из базы знаний. Не придумывай информацию.
3. Если в базе знаний нет ответа на вопрос, честно скажи об этом и предложи обратиться в деканат или приёмную комиссию.
4. Не упоминай, что у тебя есть база знаний. Просто отвечай.

База знаний:
%s

Вопрос: %s

Ответ:`

// BuildPrompt composes the generation prompt from the relevant
// knowledge content and the user's question.
func BuildPrompt(content, question string) string {
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(content), strings.TrimSpace(question))
}
