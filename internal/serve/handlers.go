package serve

import (
	"encoding/json"
	"errors"
	"net/http"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// ============================================================================
// Auth
// ============================================================================

type loginBody struct {
	Secret string `json:"secret"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, CodeValidation, "invalid request body", http.StatusBadRequest)
		return
	}
	if !checkPassword(s.config.Secret, body.Secret) {
		WriteError(w, CodeUnauthorized, "invalid credentials", http.StatusUnauthorized)
		return
	}

	now := s.clock()
	token, err := mintToken(s.secret, now)
	if err != nil {
		WriteError(w, CodeInternal, "could not create session", http.StatusInternalServerError)
		return
	}
	setSessionCookie(w, token, now)
	WriteSuccess(w, map[string]any{"expires_in": int(sessionTTL.Seconds())}, http.StatusOK)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	WriteSuccess(w, map[string]bool{"logged_out": true}, http.StatusOK)
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	authenticated := false
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		authenticated = verifyToken(s.secret, cookie.Value, s.clock()) == nil
	}
	WriteSuccess(w, map[string]bool{"authenticated": authenticated}, http.StatusOK)
}

// ============================================================================
// API proxies
//
// Each handler maps to one CLI invocation. The CLI is the single write path
// to the store; the portal never opens the database itself.
// ============================================================================

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	s.runCLI(w, r, "list", "--json")
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	args := []string{"summary", r.PathValue("id"), "--json"}
	args = appendBranchArg(args, r)
	s.runCLI(w, r, args...)
}

func (s *Server) handleFindings(w http.ResponseWriter, r *http.Request) {
	args := []string{"insight", "list", r.PathValue("id"), "--json"}
	args = appendBranchArg(args, r)
	if tag := r.URL.Query().Get("tag"); tag != "" {
		args = append(args, "--tag", tag)
	}
	s.runCLI(w, r, args...)
}

func (s *Server) handleBranches(w http.ResponseWriter, r *http.Request) {
	s.runCLI(w, r, "branch", "list", r.PathValue("id"), "--json")
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	args := []string{"strategy", r.PathValue("id"), "--json"}
	args = appendBranchArg(args, r)
	s.runCLI(w, r, args...)
}

func (s *Server) handleMissions(w http.ResponseWriter, r *http.Request) {
	args := []string{"verify", "list", r.PathValue("id"), "--json"}
	args = appendBranchArg(args, r)
	if status := r.URL.Query().Get("status"); status != "" {
		args = append(args, "--status", status)
	}
	s.runCLI(w, r, args...)
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	args := []string{"synthesize", r.PathValue("id"), "--json"}
	args = appendBranchArg(args, r)
	s.runCLI(w, r, args...)
}

func (s *Server) handleVerifyPlan(w http.ResponseWriter, r *http.Request) {
	args := []string{"verify", "plan", r.PathValue("id"), "--json"}
	args = appendBranchArg(args, r)
	s.runCLI(w, r, args...)
}

func (s *Server) handleVerifyRun(w http.ResponseWriter, r *http.Request) {
	args := []string{"verify", "run", r.PathValue("id"), "--json"}
	args = appendBranchArg(args, r)
	s.runCLI(w, r, args...)
}

func appendBranchArg(args []string, r *http.Request) []string {
	if branch := r.URL.Query().Get("branch"); branch != "" {
		args = append(args, "--branch", branch)
	}
	return args
}

// runCLI executes the CLI and relays its output. CLI stdout is passed
// through as JSON when it parses, raw otherwise.
func (s *Server) runCLI(w http.ResponseWriter, r *http.Request, args ...string) {
	res, err := s.config.Runner.Run(r.Context(), args...)
	if errors.Is(err, ErrExecTimeout) {
		WriteError(w, CodeTimeout, "command timed out", http.StatusGatewayTimeout)
		return
	}
	if err != nil {
		WriteError(w, CodeInternal, "command failed to start", http.StatusInternalServerError)
		return
	}
	if res.ExitCode != 0 {
		WriteError(w, CodeInternal, res.Stderr, http.StatusInternalServerError)
		return
	}

	var data any
	if err := json.Unmarshal([]byte(res.Stdout), &data); err != nil {
		data = map[string]string{"output": res.Stdout}
	}
	WriteSuccess(w, data, http.StatusOK)
}
