package core

// Template is a canned prompt starter for the build panel.
type Template struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

var templates = []Template{
	{Title: "Todo List", Prompt: "A todo list with add, complete and delete, persisted in localStorage, with a filter for active and completed items"},
	{Title: "Pomodoro Timer", Prompt: "A pomodoro timer with 25 minute work and 5 minute break cycles, start/pause/reset buttons and a session counter"},
	{Title: "Calculator", Prompt: "A calculator with keyboard support, basic arithmetic, percent and a visible expression history"},
	{Title: "Markdown Notes", Prompt: "A notes app with a textarea on the left and a live rendered preview on the right, saved to localStorage"},
	{Title: "Expense Tracker", Prompt: "An expense tracker with categories, a running total and a simple bar chart drawn on a canvas"},
	{Title: "Quiz Game", Prompt: "A multiple choice quiz game with a score screen at the end and a restart button"},
}

// ListTemplates returns the canned prompt starters.
func ListTemplates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}
