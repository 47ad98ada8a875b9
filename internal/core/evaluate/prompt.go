package evaluate

import "fmt"

// scoringPromptTemplate instructs the evaluator model to return a single
// JSON object matching rawReport, scored at low sampling temperature by the
// caller's Provider configuration.
const scoringPromptTemplate = `You are a meticulous translation quality reviewer for a video dubbing
pipeline. Score the translation below against the original on four axes,
each 0-100: accuracy (meaning preserved), naturalness (reads like native
speech), dubbing_fit (length/pacing suitable for spoken dubbing), and
consistency (terminology and tone consistent throughout).

Respond with ONLY a JSON object of this exact shape, no commentary:
{"overall_score": <0-100>, "accuracy": <0-100>, "naturalness": <0-100>, "dubbing_fit": <0-100>, "consistency": <0-100>, "issues": ["..."]}

Original:
%s

Translation:
%s`

func buildScoringPrompt(original, translated string) string {
	return fmt.Sprintf(scoringPromptTemplate, original, translated)
}
