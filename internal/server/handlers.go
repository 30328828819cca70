package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/phaseflow/pkg/buildinfo"
	errs "github.com/matzehuels/phaseflow/pkg/errors"
	"github.com/matzehuels/phaseflow/pkg/flow"
	"github.com/matzehuels/phaseflow/pkg/graph"
	"github.com/matzehuels/phaseflow/pkg/observability"
	"github.com/matzehuels/phaseflow/pkg/pipeline"
	"github.com/matzehuels/phaseflow/pkg/session"
	"github.com/matzehuels/phaseflow/pkg/state"
)

type flowResponse struct {
	ID       string           `json:"id"`
	Flow     flow.ProcessFlow `json:"flow"`
	Graph    graph.Graph      `json:"graph"`
	Expanded []string         `json:"expanded"`
}

type toggleRequest struct {
	NodeID string `json:"node_id"`
}

type toggleResponse struct {
	flowResponse
	Changed bool `json:"changed"`
}

type summaryRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"build":  buildinfo.Get(),
	})
}

func (s *Server) handleCreateFlow(w http.ResponseWriter, r *http.Request) {
	raw, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.createSession(r.Context(), string(raw), "flow")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if s.deps.Summarizer == nil {
		s.writeError(w, r, errs.New(errs.ErrCodeUnsupported, "no summarization service configured"))
		return
	}
	var req summaryRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	raw, err := s.deps.Summarizer.Summarize(r.Context(), req.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.createSession(r.Context(), raw, "summary")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	sess, store, err := s.open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response(sess, store))
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.NodeID == "" {
		s.writeError(w, r, errs.New(errs.ErrCodeInvalidInput, "node_id is required"))
		return
	}

	ctx := r.Context()
	id := chi.URLParam(r, "id")
	unlock := s.lockSession(id)
	defer unlock()

	sess, store, err := s.open(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	changed := store.Toggle(req.NodeID)
	observability.Sessions().OnToggle(ctx, changed)
	if changed {
		sess.SetExpanded(store.Expanded(), s.deps.SessionTTL)
		if err := s.deps.Sessions.Set(ctx, sess); err != nil {
			s.writeError(w, r, errs.Wrap(errs.ErrCodeInternal, err, "save session"))
			return
		}
	}
	writeJSON(w, http.StatusOK, toggleResponse{flowResponse: response(sess, store), Changed: changed})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := pipeline.ValidateFormat(format); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := r.Context()
	_, store, err := s.open(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	opts := s.deps.Pipeline
	opts.Formats = []string{format}
	artifacts, _, err := s.deps.Runner.Render(ctx, store.Graph(), opts)
	if err != nil {
		s.writeError(w, r, errs.Wrap(errs.ErrCodeInternal, err, "render %s", format))
		return
	}
	w.Header().Set("Content-Type", pipeline.ContentTypes[format])
	w.WriteHeader(http.StatusOK)
	w.Write(artifacts[format])
}

// createSession normalizes raw, lays it out and stores a fresh session.
// origin labels where the document came from in metrics.
func (s *Server) createSession(ctx context.Context, raw, origin string) (flowResponse, error) {
	f, err := s.deps.Runner.Normalize(ctx, raw)
	if err != nil {
		return flowResponse{}, err
	}
	g, _, err := s.deps.Runner.Layout(ctx, f, s.deps.Pipeline)
	if err != nil {
		return flowResponse{}, errs.Wrap(errs.ErrCodeInternal, err, "layout")
	}
	sess, err := session.New(f, s.deps.SessionTTL)
	if err != nil {
		return flowResponse{}, err
	}
	if err := s.deps.Sessions.Set(ctx, sess); err != nil {
		return flowResponse{}, errs.Wrap(errs.ErrCodeInternal, err, "save session")
	}
	observability.Sessions().OnSessionCreated(ctx, origin)
	s.deps.Logger.Info("session created", "id", sess.ID, "origin", origin, "phases", f.Len(), "nodes", len(g.Nodes))
	return response(sess, state.NewStore(g)), nil
}

// open loads a session and rebuilds its store with the persisted expand state.
func (s *Server) open(ctx context.Context, id string) (*session.Session, *state.Store, error) {
	sess, err := session.Load(ctx, s.deps.Sessions, id)
	if err != nil {
		if errs.Is(err, errs.ErrCodeSessionNotFound) {
			observability.Sessions().OnSessionMissing(ctx)
		}
		return nil, nil, err
	}
	g, _, err := s.deps.Runner.Layout(ctx, sess.Flow, s.deps.Pipeline)
	if err != nil {
		return nil, nil, errs.Wrap(errs.ErrCodeInternal, err, "layout")
	}
	store := state.NewStore(g)
	store.Restore(sess.Expanded)
	return sess, store, nil
}

func response(sess *session.Session, store *state.Store) flowResponse {
	expanded := store.Expanded()
	if expanded == nil {
		expanded = []string{}
	}
	return flowResponse{
		ID:       sess.ID,
		Flow:     sess.Flow,
		Graph:    store.Graph(),
		Expanded: expanded,
	}
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes))
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := s.readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}
