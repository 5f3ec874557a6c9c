package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/collegecompass/compass"
	"github.com/collegecompass/compass/core"
	"github.com/collegecompass/compass/logging"
	"github.com/collegecompass/compass/plan"
	"github.com/collegecompass/compass/session"
)

type server struct {
	engine *compass.Engine
	logger logging.Logger
}

func newRouter(engine *compass.Engine, logger logging.Logger) http.Handler {
	s := &server{engine: engine, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Get("/{sessionID}", s.getSession)
		r.Post("/{sessionID}/messages", s.postMessage)
		r.Get("/{sessionID}/followups", s.getFollowUps)
		r.Get("/{sessionID}/summary", s.getSummary)
		r.Post("/{sessionID}/close", s.closeSession)
	})

	r.Route("/students/{studentID}/plan", func(r chi.Router) {
		r.Get("/", s.getPlan)
		r.Get("/versions", s.getPlanVersions)
		r.Get("/export", s.exportPlan)
		r.Post("/items", s.acceptItems)
		r.Post("/revert", s.revertPlan)
		r.Delete("/items/{entryID}", s.removeItem)
	})

	return r
}

type createSessionRequest struct {
	StudentID string               `json:"student_id"`
	Agent     string               `json:"agent,omitempty"`
	Profile   *core.StudentProfile `json:"profile,omitempty"`
}

func (s *server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := s.engine.StartSession(r.Context(), req.StudentID, req.Agent, req.Profile)
	if err != nil {
		s.error(w, http.StatusBadRequest, err.Error())
		return
	}
	s.json(w, http.StatusCreated, sess)
}

func (s *server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.notFoundOr500(w, err)
		return
	}
	s.json(w, http.StatusOK, sess.Clone())
}

type postMessageRequest struct {
	Message string `json:"message"`
}

type turnResponse struct {
	ResponseID      string                `json:"response_id"`
	Agent           string                `json:"agent"`
	Provider        string                `json:"provider,omitempty"`
	Prose           string                `json:"prose"`
	Items           []core.ActionableItem `json:"items"`
	Consulted       string                `json:"consulted,omitempty"`
	Degraded        bool                  `json:"degraded,omitempty"`
	FailoverUsed    bool                  `json:"failover_used,omitempty"`
	Inconsistencies []string              `json:"inconsistencies,omitempty"`
}

func (s *server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.engine.SendMessage(r.Context(), chi.URLParam(r, "sessionID"), req.Message)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.error(w, http.StatusNotFound, err.Error())
			return
		}
		if strings.Contains(err.Error(), "must not be empty") || strings.Contains(err.Error(), "is closed") {
			s.error(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("turn failed", "error", err)
		s.error(w, http.StatusInternalServerError, "turn failed")
		return
	}

	items := result.Items
	if items == nil {
		items = []core.ActionableItem{}
	}
	s.json(w, http.StatusOK, turnResponse{
		ResponseID:      result.ResponseID,
		Agent:           result.AgentID,
		Provider:        result.Provider,
		Prose:           result.Prose,
		Items:           items,
		Consulted:       result.Consulted,
		Degraded:        result.Degraded,
		FailoverUsed:    result.FailoverUsed,
		Inconsistencies: result.Inconsistencies,
	})
}

func (s *server) getFollowUps(w http.ResponseWriter, r *http.Request) {
	questions, err := s.engine.FollowUps(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.notFoundOr500(w, err)
		return
	}
	if questions == nil {
		questions = []string{}
	}
	s.json(w, http.StatusOK, map[string][]string{"questions": questions})
}

func (s *server) getSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.Summarize(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.notFoundOr500(w, err)
		return
	}
	s.json(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *server) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.CloseSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.notFoundOr500(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type acceptItemsRequest struct {
	SessionID  string                `json:"session_id"`
	ResponseID string                `json:"response_id"`
	Items      []core.ActionableItem `json:"items"`
}

type rejectionResponse struct {
	Item   core.ActionableItem `json:"item"`
	Reason string              `json:"reason"`
}

type acceptItemsResponse struct {
	Version   *core.PlanVersion   `json:"version,omitempty"`
	Rejected  []rejectionResponse `json:"rejected,omitempty"`
	Unchanged bool                `json:"unchanged,omitempty"`
}

func (s *server) acceptItems(w http.ResponseWriter, r *http.Request) {
	var req acceptItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := s.engine.Session(r.Context(), req.SessionID)
	if err != nil {
		s.notFoundOr500(w, err)
		return
	}
	if sess.StudentID != chi.URLParam(r, "studentID") {
		s.error(w, http.StatusForbidden, "session belongs to a different student")
		return
	}

	version, rejections, err := s.engine.AcceptItems(r.Context(), req.SessionID, req.ResponseID, req.Items)
	if err != nil {
		if errors.Is(err, core.ErrWriteConflict) {
			s.error(w, http.StatusConflict, "plan changed concurrently, please retry")
			return
		}
		s.logger.Error("accept items failed", "error", err)
		s.error(w, http.StatusInternalServerError, "plan update failed")
		return
	}

	resp := acceptItemsResponse{Version: version, Unchanged: version == nil}
	for _, rej := range rejections {
		resp.Rejected = append(resp.Rejected, rejectionResponse{Item: rej.Item, Reason: rej.Reason.Error()})
	}
	s.json(w, http.StatusOK, resp)
}

func (s *server) getPlan(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.ActivePlan(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		s.logger.Error("read plan failed", "error", err)
		s.error(w, http.StatusInternalServerError, "read plan failed")
		return
	}
	s.json(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *server) getPlanVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.engine.PlanVersions(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		s.logger.Error("read versions failed", "error", err)
		s.error(w, http.StatusInternalServerError, "read versions failed")
		return
	}
	s.json(w, http.StatusOK, map[string]any{"versions": versions})
}

type revertRequest struct {
	Version int    `json:"version"`
	Actor   string `json:"actor,omitempty"`
}

func (s *server) revertPlan(w http.ResponseWriter, r *http.Request) {
	var req revertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	version, err := s.engine.RevertPlan(r.Context(), chi.URLParam(r, "studentID"), req.Version, req.Actor)
	if err != nil {
		if errors.Is(err, core.ErrWriteConflict) {
			s.error(w, http.StatusConflict, "plan changed concurrently, please retry")
			return
		}
		s.error(w, http.StatusBadRequest, err.Error())
		return
	}
	s.json(w, http.StatusOK, version)
}

func (s *server) removeItem(w http.ResponseWriter, r *http.Request) {
	version, err := s.engine.RemovePlanItem(r.Context(),
		chi.URLParam(r, "studentID"), chi.URLParam(r, "entryID"), "")
	if err != nil {
		if errors.Is(err, core.ErrWriteConflict) {
			s.error(w, http.StatusConflict, "plan changed concurrently, please retry")
			return
		}
		s.error(w, http.StatusBadRequest, err.Error())
		return
	}
	s.json(w, http.StatusOK, version)
}

func (s *server) exportPlan(w http.ResponseWriter, r *http.Request) {
	export, err := s.engine.ExportPlan(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		s.logger.Error("export failed", "error", err)
		s.error(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="college-plan.txt"`)
	_, _ = w.Write([]byte(plan.RenderDocument(export)))
}

func (s *server) json(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encoding failed", "error", err)
	}
}

func (s *server) error(w http.ResponseWriter, status int, msg string) {
	s.json(w, status, map[string]string{"error": msg})
}

func (s *server) notFoundOr500(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		s.error(w, http.StatusNotFound, err.Error())
		return
	}
	s.error(w, http.StatusInternalServerError, err.Error())
}
