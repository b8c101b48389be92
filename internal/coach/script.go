package coach

import (
	"fmt"
	"strings"

	"github.com/ashureev/coachline/internal/domain"
)

const (
	// ScriptGreetingFallback is used when a script has no partner line.
	ScriptGreetingFallback = "Hello! Let's practice a conversation together."

	noScriptInstructions = "Error: No script loaded."
)

// ScriptCoach guides the learner through a predefined dialogue. The agent
// plays the partner lines.
type ScriptCoach struct {
	base
	scriptID string
	script   *domain.Script
}

// NewScriptCoach creates a script coach and loads scriptID. The script stays
// unset when the identifier is empty or does not resolve.
func NewScriptCoach(level domain.Level, scriptID string, scripts ScriptSource) *ScriptCoach {
	c := &ScriptCoach{
		base:     newBase(level),
		scriptID: scriptID,
	}
	if scriptID != "" && scripts != nil {
		if script, ok := scripts.LoadScript(scriptID); ok {
			c.script = script
		}
	}
	return c
}

// Script returns the loaded script, if any.
func (c *ScriptCoach) Script() (*domain.Script, bool) {
	return c.script, c.script != nil
}

// ModeInstructions returns the script practice block, or an error block when
// no script was loaded. Callers should reject that case before a session goes live.
func (c *ScriptCoach) ModeInstructions() string {
	if c.script == nil {
		return noScriptInstructions
	}

	s := c.script
	var b strings.Builder
	b.WriteString(`
## Mode: Script Practice

You are helping the user practice a specific conversation script.
You play the "partner" role, and the user practices the "user" lines.

### Script Information
`)
	fmt.Fprintf(&b, "- **Title**: %s\n", s.Title)
	fmt.Fprintf(&b, "- **Description**: %s\n", s.Description)
	fmt.Fprintf(&b, "- **Difficulty**: %s\n", s.Difficulty)

	b.WriteString("\n### The Script\n")
	b.WriteString(formatLines(s.Lines))
	b.WriteString(`

### Important Rules
1. **Follow the script in order** - Say your lines (PARTNER) when it's your turn
2. **Wait for the user** - After you speak, wait for the user to say their line
3. **Stay in character** - You are the conversation partner, not a teacher
4. **Be flexible** - If the user says something close enough to the script, accept it and continue
5. **Handle mistakes gracefully**:
   - If the user struggles, give a subtle hint
   - If they deviate from the script, gently guide them back
   - Never break character to correct them mid-conversation
6. **Provide feedback at the end** - After completing the script, you can offer brief feedback on pronunciation or phrasing
`)
	fmt.Fprintf(&b, "\n### Difficulty Adjustments (%s)\n", c.level)
	b.WriteString(`- **Beginner**: Accept approximate responses, speak slowly, be extra patient
- **Intermediate**: Expect closer matches to the script, normal speaking pace
- **Advanced**: Expect precise pronunciation and natural delivery

### Starting the Conversation
Begin by saying Line 1 (your first partner line). The conversation has started!
`)
	return b.String()
}

// Greeting returns the first partner line, or a generic greeting.
func (c *ScriptCoach) Greeting() string {
	if c.script == nil {
		return ScriptGreetingFallback
	}
	if line, ok := c.script.FirstPartnerLine(); ok {
		return line.Text
	}
	return ScriptGreetingFallback
}

func formatLines(lines []domain.ScriptLine) string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		role := "USER (learner)"
		if line.Speaker == domain.SpeakerPartner {
			role = "PARTNER (you)"
		}
		out = append(out, fmt.Sprintf("Line %d - %s: \"%s\"", line.ID, role, line.Text))
	}
	return strings.Join(out, "\n")
}
