package ai

import (
	"fmt"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// DoubtAssistantInstruction steers the standalone question-answering chat.
const DoubtAssistantInstruction = "You are a friendly and knowledgeable AI assistant for students. " +
	"Your goal is to provide clear, concise, and accurate answers to their specific doubts and " +
	"questions on any academic topic. Explain concepts simply and provide examples when helpful."

func guidePrompt(topic string) string {
	return fmt.Sprintf("Generate a comprehensive yet concise study guide on the topic of %q. "+
		"Use markdown for formatting with headings, subheadings, bullet points, and bold text for key terms. "+
		"The guide should be well-structured and easy to understand for a high school or early college student.", topic)
}

func quizPrompt(topic string) string {
	return fmt.Sprintf("Generate a 5-question quiz on the topic of %q. "+
		"Include a mix of multiple_choice, true_false, and short_answer questions. "+
		"For multiple choice, provide 4 options.", topic)
}

func gradingPrompt(topic, quizJSON, answersJSON string) string {
	return fmt.Sprintf(`Topic: %q
I have a quiz and a user's answers. Please evaluate each answer and provide feedback.

Quiz with correct answers:
%s

User's answers:
%s

For each question, determine if the user's answer is correct. For short answer questions, be lenient with phrasing as long as the core concept is correct. Provide brief, encouraging feedback for each answer.`,
		topic, quizJSON, answersJSON)
}

// Response schemas. Structured output wants an object at the top level, so
// each list is wrapped in a single property.

var quizSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"questions": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"question": {Type: jsonschema.String},
					"type": {
						Type: jsonschema.String,
						Enum: []string{"multiple_choice", "true_false", "short_answer"},
					},
					"options": {
						Type:  jsonschema.Array,
						Items: &jsonschema.Definition{Type: jsonschema.String},
					},
					"answer": {Type: jsonschema.String},
				},
				Required: []string{"question", "type", "answer"},
			},
		},
	},
	Required: []string{"questions"},
}

var feedbackSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"results": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"isCorrect": {Type: jsonschema.Boolean},
					"feedback":  {Type: jsonschema.String},
				},
				Required: []string{"isCorrect", "feedback"},
			},
		},
	},
	Required: []string{"results"},
}
