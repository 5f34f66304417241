package web

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"slices"
	"time"

	"github.com/perbu/artifacts/internal/db"
	"github.com/perbu/artifacts/internal/digest"
	"github.com/perbu/artifacts/internal/engine"
)

// recentActions is how many actions a character page lists
const recentActions = 50

// handleIndex serves the dashboard with live runners and the last day's digest
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	content := DashboardData{ServeOnly: s.runners == nil}
	if s.runners != nil {
		for _, st := range s.runners.Statuses() {
			content.Runners = append(content.Runners, s.toRunnerView(st))
		}
	}

	d, err := s.composer.Compose(digest.Last(s.now(), 24*time.Hour))
	if err != nil {
		s.renderError(w, "Failed to load journal", err)
		return
	}
	if content.DigestHTML, err = digest.MarkdownToHTML(d.Markdown()); err != nil {
		s.renderError(w, "Failed to render digest", err)
		return
	}

	s.render(w, s.templates.index, PageData{
		Title:     "Dashboard",
		ActiveNav: "dashboard",
		Content:   content,
	})
}

// handleCharacter serves one character's status and recent actions
func (s *Server) handleCharacter(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	actions, err := s.db.ListActions(name, recentActions)
	if err != nil {
		s.renderError(w, "Failed to load actions", err)
		return
	}

	content := CharacterData{Name: name}
	if s.runners != nil {
		statuses := s.runners.Statuses()
		if i := slices.IndexFunc(statuses, func(st engine.Status) bool { return st.Name == name }); i >= 0 {
			view := s.toRunnerView(statuses[i])
			content.Runner = &view
		}
	}
	if content.Runner == nil && len(actions) == 0 {
		http.NotFound(w, r)
		return
	}

	for _, a := range actions {
		content.Actions = append(content.Actions, toActionView(a))
	}

	s.render(w, s.templates.character, PageData{
		Title:   name,
		Content: content,
	})
}

// handleStop asks a runner to stop at its next task boundary
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if s.runners == nil {
		http.Error(w, "no runners in this process", http.StatusServiceUnavailable)
		return
	}

	if err := s.runners.Stop(name); err != nil {
		if errors.Is(err, engine.ErrUnknownRunner) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.logger.Info("runner stop requested", "character", name, "remote", r.RemoteAddr)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"character": name, "status": "stopping"})
}

// render executes a template with the given data
func (s *Server) render(w http.ResponseWriter, tmpl *template.Template, data PageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
	}
}

// renderError renders an error page
func (s *Server) renderError(w http.ResponseWriter, message string, err error) {
	errMsg := message
	if err != nil {
		errMsg = message + ": " + err.Error()
	}
	s.logger.Error(message, "error", err)

	data := PageData{
		Title: "Error",
		Error: errMsg,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_ = s.templates.index.Execute(w, data)
}

func (s *Server) toRunnerView(st engine.Status) RunnerView {
	view := RunnerView{
		Name:         st.Name,
		Phase:        st.Phase.String(),
		OnCooldown:   st.OnCooldown,
		Pending:      len(st.Pending),
		LastAction:   st.LastAction,
		LastCooldown: "-",
		TasksDone:    st.TasksDone,
		LastError:    st.LastError,
	}
	if s.persona != nil {
		view.Persona, _ = s.persona(st.Name)
	}
	if len(st.Pending) > 0 {
		view.NextAction = st.Pending[0]
	}
	if st.LastCooldown != engine.CooldownUnset {
		view.LastCooldown = (time.Duration(st.LastCooldown) * time.Second).String()
	}
	if !st.UpdatedAt.IsZero() {
		view.UpdatedAt = st.UpdatedAt.Format("2006-01-02 15:04:05")
	}
	return view
}

func toActionView(a *db.Action) ActionView {
	return ActionView{
		Action:     a.Action,
		Method:     a.Method,
		Params:     a.Params.String,
		Cooldown:   a.Cooldown,
		Failed:     a.Failed(),
		Error:      a.Error.String,
		FinishedAt: a.FinishedAt.Local().Format("2006-01-02 15:04:05"),
	}
}
