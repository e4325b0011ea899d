package installer

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// GeminiKeysStep collects one or more Gemini API keys. Extra keys give
// the runtime room to rotate when a key hits its quota.
type GeminiKeysStep struct {
	input textinput.Model
	keys  []string
}

func NewGeminiKeysStep() Step {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 255
	ti.Width = 40
	ti.Placeholder = "AIza..."
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'

	return &GeminiKeysStep{
		input: ti,
	}
}

func (s *GeminiKeysStep) Init() tea.Cmd {
	return textinput.Blink
}

func (s *GeminiKeysStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "enter" {
			value := strings.TrimSpace(s.input.Value())
			if value != "" {
				s.keys = append(s.keys, value)
				s.input.SetValue("")
				return s, cmd
			}
			// Empty enter finishes key entry
			if len(s.keys) > 0 {
				state.EnvVars["MUALIM_GEMINI_API_KEYS"] = strings.Join(s.keys, ",")
				return nil, nil
			}
		}
	}
	return s, cmd
}

func (s *GeminiKeysStep) View(state *InstallState) string {
	var b strings.Builder
	b.WriteString("Enter your Gemini API Keys (one per line):\n\n")
	b.WriteString(s.input.View() + "\n\n")
	if len(s.keys) > 0 {
		b.WriteString(itemStyle.Render("Keys added: "+strings.Repeat("• ", len(s.keys))) + "\n\n")
		b.WriteString("(press enter on an empty line to finish)\n")
	} else {
		b.WriteString("(press enter to add a key)\n")
	}
	return b.String()
}
