package web

import "html/template"

// PageData is the common data structure for all pages
type PageData struct {
	Title     string
	ActiveNav string // "dashboard", ""
	Content   any
	Error     string
}

// RunnerView is a view model of one runner's status
type RunnerView struct {
	Name         string
	Persona      string
	Phase        string
	OnCooldown   bool
	Pending      int
	NextAction   string
	LastAction   string
	LastCooldown string // "-" before the first action
	TasksDone    int
	LastError    string
	UpdatedAt    string
}

// DashboardData is the content of the dashboard
type DashboardData struct {
	Runners    []RunnerView
	ServeOnly  bool // no scheduler in this process
	DigestHTML template.HTML
}

// ActionView is a view model of one journaled action
type ActionView struct {
	Action     string
	Method     string
	Params     string
	Cooldown   int
	Failed     bool
	Error      string
	FinishedAt string
}

// CharacterData is the content of a character page
type CharacterData struct {
	Name    string
	Runner  *RunnerView
	Actions []ActionView
}
