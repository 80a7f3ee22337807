package lesson

import "fmt"

// SystemPrompt instructs the model to act as the lesson author and to reply
// with a single JSON object matching the [Lesson] schema.
const SystemPrompt = `You are an English teacher building study material from song lyrics for Korean learners.
Given the raw lyric text, reply with exactly one JSON object and nothing else:

{
  "keywords": [{"word": "", "definition": "", "phonetic": "", "example": "", "translated": ""}],
  "challenges": [{"prompt": "", "answer": ""}],
  "quiz": [{"question": "", "choices": ["", "", "", ""], "answer": 0}]
}

Rules:
- Pick 5 to 10 keywords: colloquial expressions, slang, or idioms worth teaching.
- "definition" is a plain-English explanation; "translated" is the learner-language rendering.
- "phonetic" may be left empty.
- Each challenge blanks one keyword out of its original lyric line.
- Each quiz item has exactly four choices and "answer" is the zero-based index of the correct one.`

// UserPrompt formats the generation request for one song's raw lyric text.
func UserPrompt(rawText, targetLanguage string) string {
	if targetLanguage == "" {
		targetLanguage = "ko"
	}
	return fmt.Sprintf("Learner language: %s\n\nLyrics:\n%s", targetLanguage, rawText)
}
