package installer

import (
	tea "github.com/charmbracelet/bubbletea"
)

// FinalizationStep computes derived values and final env var formatting
type FinalizationStep struct{}

func NewFinalizationStep() Step {
	return &FinalizationStep{}
}

func (s *FinalizationStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *FinalizationStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	// Set derived values
	if state.EnvVars["MUALIM_CHAT_CHANNEL"] == "Telegram" && state.EnvVars["MUALIM_TELEGRAM_TOKEN"] != "" {
		state.EnvVars["MUALIM_ENABLE_TELEGRAM"] = "true"
		state.EnvVars["MUALIM_ENABLE_CLI"] = "false"
	} else {
		state.EnvVars["MUALIM_ENABLE_TELEGRAM"] = "false"
		state.EnvVars["MUALIM_ENABLE_CLI"] = "true"
	}

	// Set defaults
	if state.EnvVars["MUALIM_DEBUG"] == "" {
		state.EnvVars["MUALIM_DEBUG"] = "0"
	}

	// Only used as intermediate state
	delete(state.EnvVars, "MUALIM_CHAT_CHANNEL")

	// Signal completion
	return nil, nil
}

func (s *FinalizationStep) View(state *InstallState) string {
	return "Finalizing configuration...\n"
}
