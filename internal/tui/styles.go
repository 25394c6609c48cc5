package tui

import "github.com/charmbracelet/lipgloss"

// rows taken by everything around the output viewport
const (
	headerHeight = 12
	footerHeight = 4
)

var (
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subtitleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boxStyle          = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	focusedBoxStyle   = boxStyle.Copy().BorderForeground(lipgloss.Color("12"))
	outputStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	roleStyle         = lipgloss.NewStyle().Padding(0, 1)
	selectedRoleStyle = roleStyle.Copy().Bold(true).Reverse(true)
	successStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	warningStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	helpStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
