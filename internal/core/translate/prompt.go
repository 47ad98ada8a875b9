package translate

import "fmt"

// translationPromptTemplate instructs the model to return a JSON array
// aligned 1:1 with the numbered input segments. Few-shot examples cover a
// couple of representative language pairs so the model anchors on the exact
// output contract before seeing the real input.
const translationPromptTemplate = `You are a professional subtitle and dubbing translator.

Translate the numbered segments below from %s to %s. Preserve the meaning,
tone, and register of each segment; keep numbers, dates, and proper nouns
intact exactly as written. Respond with ONLY a JSON array of strings, one
translation per segment, in the same order as the input. Do not add, merge,
or split segments. Do not include any commentary outside the JSON array.

Example (Korean to English):
Input segments:
1. 안녕하세요, 오늘 날씨가 좋네요.
2. 2024년 3월 15일에 회의가 있습니다.
Output:
["Hello, the weather is nice today.", "There is a meeting on March 15, 2024."]

Example (English to Japanese):
Input segments:
1. The server costs $42 per month.
2. Please contact Sarah for details.
Output:
["サーバーは月42ドルです。", "詳細はサラにお問い合わせください。"]

Now translate these segments:

%s`

// BuildTranslationPrompt renders the few-shot prompt for one chunk. sources
// must already be sanitized.
func BuildTranslationPrompt(sources []string, sourceLang, targetLang string) string {
	numbered := ""
	for i, s := range sources {
		numbered += fmt.Sprintf("%d. %s\n", i+1, Delimited(s))
	}
	return fmt.Sprintf(translationPromptTemplate, sourceLang, targetLang, numbered)
}

// refinementPromptTemplate asks the model to correct its own prior
// translation given the evaluator's issues list.
const refinementPromptTemplate = `Your previous translation of this segment from %s to %s needs correction.

Original:
%s

Previous translation:
%s

The reviewer found these issues:
%s

Provide a corrected translation. Respond with ONLY the corrected text, no
commentary, no quotation marks.`

// BuildRefinementPrompt renders the refine-round prompt for a single segment.
func BuildRefinementPrompt(original, previous string, issues []string, sourceLang, targetLang string) string {
	issueList := ""
	for _, issue := range issues {
		issueList += "- " + issue + "\n"
	}
	if issueList == "" {
		issueList = "- (no specific issues listed)\n"
	}
	return fmt.Sprintf(refinementPromptTemplate, sourceLang, targetLang, original, previous, issueList)
}
