package coach

import (
	"github.com/ashureev/coachline/internal/domain"
)

// situationGreeting is spoken before the model sets the scene itself.
const situationGreeting = "Hello! I'm your English conversation coach. Let's practice together!"

const situationRules = `
## Mode: Situation Practice (Role-Play)

You are role-playing a specific real-world scenario with the learner.
Stay in character throughout the conversation.

### Important Rules
1. STAY IN CHARACTER - You are the person in the scenario, not a teacher
2. Keep the conversation natural and realistic
3. If the learner struggles, gently guide them without breaking character
4. Use the scenario's typical phrases naturally
5. After 3-4 exchanges, you can subtly introduce new vocabulary
6. If they use their native language, respond in English and model the correct phrase

### Starting the Conversation
Begin by setting the scene briefly, then start the role-play naturally.
For example: "Welcome to [place]! [Opening line appropriate to scenario]"
`

// SituationCoach runs a free-form role-play in one of the built-in scenarios.
type SituationCoach struct {
	base
	scenario  domain.Scenario
	scenarios ScenarioSource
}

// NewSituationCoach creates a role-play coach. An empty scenario selects the restaurant.
func NewSituationCoach(level domain.Level, scenario domain.Scenario, scenarios ScenarioSource) *SituationCoach {
	if scenario == "" {
		scenario = domain.DefaultScenario
	}
	return &SituationCoach{
		base:      newBase(level),
		scenario:  scenario,
		scenarios: scenarios,
	}
}

// Scenario returns the selected scenario identifier.
func (c *SituationCoach) Scenario() domain.Scenario { return c.scenario }

// ModeInstructions wraps the scenario document in the role-play rules.
func (c *SituationCoach) ModeInstructions() string {
	return situationRules + "\n" + c.scenarios.Scenario(c.scenario)
}

// Greeting returns a fixed greeting. The model sets the scene from the
// scenario document already embedded in its instructions.
func (c *SituationCoach) Greeting() string {
	return situationGreeting
}
