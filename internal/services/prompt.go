package services

import (
	"encoding/json"
	"fmt"

	"healthyaar-backend/internal/models"
)

// DisclaimerInstruction ends every prompt sent upstream.
const DisclaimerInstruction = "*IMPORTANT*: Do NOT provide a medical diagnosis or prescribe medication. Always end your response with a disclaimer to consult a healthcare professional for personal medical advice."

// PromptBuilder turns profile data and chat history into generate requests.
type PromptBuilder struct {
	historyLimit int
}

func NewPromptBuilder(historyLimit int) *PromptBuilder {
	if historyLimit <= 0 {
		historyLimit = 30
	}
	return &PromptBuilder{historyLimit: historyLimit}
}

func orNotProvided(t *models.Text) string {
	if s := t.String(); s != "" {
		return s
	}
	return "Not provided"
}

func (b *PromptBuilder) ChatSystemInstruction(p models.Profile) string {
	return fmt.Sprintf(`You are a friendly and helpful AI health assistant called "Health Yaar AI".
Here is some of the user's health data for context (use it to provide more relevant, general advice but do not diagnose):
- Chronic Conditions: %s
- Allergies: %s
- Dietary Habits: %s

Please provide helpful, safe, and general responses.
%s`,
		orNotProvided(p.ChronicDiseases),
		orNotProvided(p.Allergies),
		orNotProvided(p.DietaryHabits),
		DisclaimerInstruction,
	)
}

// ChatTurns converts a transcript to upstream turns. The seed greeting at
// index 0 is dropped, order is preserved, and only the most recent
// historyLimit turns are kept, starting on a user turn.
func (b *PromptBuilder) ChatTurns(transcript []models.ChatMessage) []Turn {
	if len(transcript) <= 1 {
		return nil
	}
	history := transcript[1:]

	if len(history) > b.historyLimit {
		history = history[len(history)-b.historyLimit:]
	}
	for len(history) > 0 && history[0].Role != models.RoleUser {
		history = history[1:]
	}

	turns := make([]Turn, 0, len(history))
	for _, m := range history {
		role := RoleUser
		if m.Role == models.RoleAssistant {
			role = RoleModel
		}
		turns = append(turns, Turn{Role: role, Text: m.Text})
	}
	return turns
}

func (b *PromptBuilder) Chat(p models.Profile, transcript []models.ChatMessage) GenerateRequest {
	return GenerateRequest{
		SystemInstruction: b.ChatSystemInstruction(p),
		Turns:             b.ChatTurns(transcript),
	}
}

func (b *PromptBuilder) Summary(p models.Profile) GenerateRequest {
	data, _ := json.Marshal(p.WithDefaults())
	prompt := fmt.Sprintf(`Analyze this health data: %s.
Provide a personalized health summary. Cover BMI, lifestyle, reminders for conditions/allergies, and 3 actionable tips.
Start with '<h3>Your Personalized Health Summary:</h3>'. Use HTML for lists.
%s`, string(data), DisclaimerInstruction)

	return GenerateRequest{Turns: []Turn{{Role: RoleUser, Text: prompt}}}
}

func (b *PromptBuilder) Report(img InlineImage) GenerateRequest {
	prompt := fmt.Sprintf(`You are a helpful medical assistant. Analyze the provided medical report image.
Extract key metrics, their values, and their standard ranges. Provide a simple, easy-to-understand summary of the results.
Do not provide a diagnosis. Conclude with '<h4>Summary</h4>' for the summary.
Format the output using simple HTML with '<ul>' and '<li>' for lists.
%s`, DisclaimerInstruction)

	return GenerateRequest{Turns: []Turn{{Role: RoleUser, Text: prompt, Image: &img}}}
}
