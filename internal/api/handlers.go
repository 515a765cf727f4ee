package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lingoleap/lingoleap/internal/app/gems"
	"github.com/lingoleap/lingoleap/internal/app/learner"
	"github.com/lingoleap/lingoleap/internal/domain"
)

// ─── Accounts ───────────────────────────────────────────────────────────────

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req learner.SignupRequest
	if err := decode(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	u, err := s.learners.Signup(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	token, exp, err := s.learners.Tokens().Issue(u.Email, u.DisplayName())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, learner.Session{Token: token, ExpiresAt: exp, User: u})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	sess, err := s.learners.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.learners.Profile(r.Context(), learnerEmail(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  u,
		"level": s.learners.Engine().Level(u.XP),
	})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.learners.DeleteAccount(r.Context(), learnerEmail(r)); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.learners.Dashboard(r.Context(), learnerEmail(r), language(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ─── Hearts ─────────────────────────────────────────────────────────────────

func (s *Server) handleHearts(w http.ResponseWriter, r *http.Request) {
	st, err := s.learners.Engine().Hearts(r.Context(), learnerEmail(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleLoseHeart(w http.ResponseWriter, r *http.Request) {
	st, err := s.learners.Engine().SpendHeart(r.Context(), learnerEmail(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRefill(w http.ResponseWriter, r *http.Request) {
	res, err := s.learners.Engine().RefillHearts(r.Context(), learnerEmail(r), 0)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Lessons ────────────────────────────────────────────────────────────────

func (s *Server) handleLessons(w http.ResponseWriter, r *http.Request) {
	lessons, completed, err := s.learners.LessonList(r.Context(), learnerEmail(r), language(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lessons":           lessons,
		"completed_lessons": completed,
	})
}

func lessonID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, domain.ErrLessonNotFound
	}
	return id, nil
}

func (s *Server) handleOpenLesson(w http.ResponseWriter, r *http.Request) {
	id, err := lessonID(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	view, err := s.learners.OpenLesson(r.Context(), learnerEmail(r), language(r), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	id, err := lessonID(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	res, err := s.learners.Complete(r.Context(), learnerEmail(r), language(r), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Progression ────────────────────────────────────────────────────────────

func (s *Server) handleLevel(w http.ResponseWriter, r *http.Request) {
	xp, err := intParam(r, "xp", 0)
	if err != nil || xp < 0 {
		writeError(w, http.StatusBadRequest, "xp must be a non-negative integer", "invalid_input")
		return
	}
	writeJSON(w, http.StatusOK, s.learners.Engine().Level(int64(xp)))
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"languages": s.learners.Languages()})
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	earned, err := s.learners.EarnedAchievements(r.Context(), learnerEmail(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"earned":  earned,
		"catalog": s.learners.Engine().Achievements(),
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	board, err := s.learners.Leaderboard(r.Context(), min(limit, 100))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": board})
}

// ─── Gems ───────────────────────────────────────────────────────────────────

func (s *Server) handleGemHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 50)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	email := learnerEmail(r)
	entries, err := s.gems.History(r.Context(), email, limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	balance, err := s.gems.Balance(r.Context(), email)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance": balance,
		"entries": entries,
		"summary": gems.Summarize(entries),
	})
}

func (s *Server) handleGemAudit(w http.ResponseWriter, r *http.Request) {
	report, err := s.gems.Audit(r.Context(), learnerEmail(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"report": report,
		"ok":     report.OK(),
	})
}
