package coach

import (
	"strings"

	"github.com/ashureev/coachline/internal/domain"
)

// BaseInstructions is the persona block shared by every coach.
const BaseInstructions = `
# English Conversation Coach

You are an AI English conversation coach helping Japanese learners practice their English speaking skills.

## Core Principles
1. ALWAYS speak in English (unless correcting Japanese)
2. Be patient, encouraging, and supportive
3. Keep conversations natural and engaging
4. Provide feedback when appropriate
5. Adapt to the learner's responses

## Voice Style
- Speak clearly and naturally
- Use appropriate intonation
- Pause between sentences
- Be expressive but not over-the-top
`

const beginnerInstructions = `
## Speaking Level: Beginner
- Speak SLOWLY and CLEARLY
- Use SIMPLE vocabulary (common words only)
- Short sentences (5-10 words max)
- Repeat key phrases when needed
- Give lots of encouragement
- If the learner makes mistakes, gently correct them
- Avoid idioms and complex grammar
`

const intermediateInstructions = `
## Speaking Level: Intermediate
- Speak at a NATURAL pace
- Use varied vocabulary including some idioms
- Medium-length sentences
- Occasionally introduce new expressions
- Provide constructive feedback
- Challenge the learner appropriately
`

const advancedInstructions = `
## Speaking Level: Advanced
- Speak at NATIVE speed
- Use complex vocabulary, idioms, and colloquialisms
- Natural sentence structures
- Use cultural references when appropriate
- Expect and encourage sophisticated responses
- Provide nuanced feedback on grammar and word choice
`

// LevelInstructions returns the tone block for level. Unknown levels get the advanced block.
func LevelInstructions(level domain.Level) string {
	switch level {
	case domain.LevelBeginner:
		return beginnerInstructions
	case domain.LevelIntermediate:
		return intermediateInstructions
	default:
		return advancedInstructions
	}
}

// Instructions is a composed prompt plus the line the agent opens with.
type Instructions struct {
	Prompt   string
	Greeting string
}

// Compose joins the base, level and mode blocks in that order. Later blocks
// may refer to expectations set by earlier ones, so the order is fixed.
func Compose(c Coach) Instructions {
	var b strings.Builder
	b.WriteString(BaseInstructions)
	b.WriteString("\n")
	b.WriteString(LevelInstructions(c.Level()))
	b.WriteString("\n")
	b.WriteString(c.ModeInstructions())
	return Instructions{
		Prompt:   b.String(),
		Greeting: c.Greeting(),
	}
}
