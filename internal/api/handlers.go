package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abpatramsft/hackernews-compare-tool/internal/cluster"
	"github.com/abpatramsft/hackernews-compare-tool/internal/hn"
	"github.com/abpatramsft/hackernews-compare-tool/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	Query   string `json:"query"`
	Section string `json:"section"`
	Limit   int    `json:"limit"`
	Days    int    `json:"days"`
}

type searchResponse struct {
	SearchID string     `json:"search_id"`
	Stories  []hn.Story `json:"stories"`
	Stats    hn.Stats   `json:"stats"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	limit := req.Limit
	if limit <= 0 || limit > s.cfg.HN.MaxStories {
		limit = s.cfg.HN.MaxStories
	}

	stories, err := s.hn.Search(r.Context(), req.Query, limit, req.Days)
	if err != nil {
		s.log.Error("search failed", zap.String("query", req.Query), zap.Error(err))
		writeError(w, http.StatusBadGateway, fmt.Sprintf("searching stories: %v", err))
		return
	}

	// Section is a caller-chosen label preserved in the search ID prefix.
	section := strings.TrimSpace(req.Section)
	if section == "" {
		section = "top"
	}
	sessionID := section + "_" + s.newID()
	sess := store.Session{ID: sessionID, Query: req.Query, CreatedAt: time.Now().UTC()}
	if err := s.store.SaveSession(r.Context(), sess, stories); err != nil {
		s.log.Error("saving session failed", zap.String("session", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "saving session")
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		SearchID: sessionID,
		Stories:  stories,
		Stats:    hn.ComputeStats(req.Query, stories),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("search_id")
	sess, stories, ok := s.sessionStories(w, r, sessionID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, hn.ComputeStats(sess.Query, stories))
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing sessions")
		return
	}
	type sessionView struct {
		ID        string    `json:"id"`
		Query     string    `json:"query"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]sessionView, len(sessions))
	for i, sess := range sessions {
		out[i] = sessionView{ID: sess.ID, Query: sess.Query, CreatedAt: sess.CreatedAt}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

type sessionRequest struct {
	SearchID string `json:"search_id"`
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	_, stories, ok := s.sessionStories(w, r, req.SearchID)
	if !ok {
		return
	}

	texts := make([]string, len(stories))
	for i, st := range stories {
		texts[i] = st.Content()
	}
	vecs, err := s.embedder.EmbedBatch(r.Context(), texts)
	if err != nil {
		s.log.Error("embedding failed", zap.String("session", req.SearchID), zap.Error(err))
		writeError(w, http.StatusBadGateway, fmt.Sprintf("generating embeddings: %v", err))
		return
	}
	s.embeddings.Set(req.SearchID, vecs)

	writeJSON(w, http.StatusOK, map[string]any{
		"embedding_complete": true,
		"story_count":        len(stories),
		"message":            fmt.Sprintf("Successfully generated embeddings for %d stories", len(stories)),
	})
}

type clusterRequest struct {
	SearchID  string `json:"search_id"`
	NClusters int    `json:"n_clusters"`
}

type clusterResponse struct {
	Success           bool          `json:"success"`
	VisualizationData *cluster.Data `json:"visualization_data,omitempty"`
	Message           string        `json:"message"`
}

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	var req clusterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	_, stories, ok := s.sessionStories(w, r, req.SearchID)
	if !ok {
		return
	}
	vecs, found := s.embeddings.Get(req.SearchID)
	if !found {
		writeError(w, http.StatusNotFound, "embeddings not generated, call /embed first")
		return
	}

	result, err := s.clusters.Analyze(req.SearchID, vecs, stories, req.NClusters)
	if err != nil {
		if errors.Is(err, cluster.ErrInsufficientData) {
			writeJSON(w, http.StatusOK, clusterResponse{
				Success: false,
				Message: fmt.Sprintf("Not enough stories for clustering (found %d, need at least 2)", len(stories)),
			})
			return
		}
		s.log.Error("clustering failed", zap.String("session", req.SearchID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("clustering stories: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, clusterResponse{
		Success:           true,
		VisualizationData: &result.Data,
		Message:           fmt.Sprintf("Successfully clustered %d stories", len(stories)),
	})
}

func (s *Server) handleClusterGraph(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	graph, err := s.clusters.BuildGraph(req.SearchID)
	if err != nil {
		if errors.Is(err, cluster.ErrNotFound) || errors.Is(err, cluster.ErrMissingData) {
			writeError(w, http.StatusNotFound, "no cluster results for session, call /cluster first")
			return
		}
		s.log.Error("graph build failed", zap.String("session", req.SearchID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("building cluster graph: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

type conceptRequest struct {
	SearchID  string `json:"search_id"`
	ClusterID int    `json:"cluster_id"`
}

func (s *Server) handleConceptGraph(w http.ResponseWriter, r *http.Request) {
	var req conceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := s.clusters.Get(req.SearchID)
	if err != nil {
		writeError(w, http.StatusNotFound, "no cluster results for session, call /cluster first")
		return
	}

	var members []hn.Story
	for i, label := range result.Labels {
		if label == req.ClusterID {
			members = append(members, result.Stories[i])
		}
	}

	tree, err := s.concepts.Build(r.Context(), req.SearchID, req.ClusterID, members)
	if err != nil {
		s.log.Error("concept graph failed",
			zap.String("session", req.SearchID),
			zap.Int("cluster", req.ClusterID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("building concept graph: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

type summarizeRequest struct {
	SearchID  string   `json:"search_id"`
	ClusterID int      `json:"cluster_id"`
	StoryIDs  []string `json:"story_ids"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	_, stories, ok := s.sessionStories(w, r, req.SearchID)
	if !ok {
		return
	}

	wanted := make(map[string]bool, len(req.StoryIDs))
	for _, id := range req.StoryIDs {
		wanted[id] = true
	}
	var members []hn.Story
	for _, st := range stories {
		if wanted[st.ID] {
			members = append(members, st)
		}
	}
	if len(members) == 0 {
		writeError(w, http.StatusNotFound, "no stories found for the given IDs")
		return
	}

	sum, err := s.summaries.Generate(r.Context(), req.SearchID, req.ClusterID, members)
	if err != nil {
		s.log.Error("summarize failed", zap.String("session", req.SearchID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("generating summary: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// sessionStories loads a session and its stories, writing a 404 when the
// session does not exist.
func (s *Server) sessionStories(w http.ResponseWriter, r *http.Request, sessionID string) (*store.Session, []hn.Story, bool) {
	sess, err := s.store.GetSession(r.Context(), sessionID)
	if err != nil {
		s.log.Error("loading session failed", zap.String("session", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "loading session")
		return nil, nil, false
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "search ID not found")
		return nil, nil, false
	}
	stories, err := s.store.GetStories(r.Context(), sessionID)
	if err != nil {
		s.log.Error("loading stories failed", zap.String("session", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "loading stories")
		return nil, nil, false
	}
	if len(stories) == 0 {
		writeError(w, http.StatusNotFound, "search ID has no stories")
		return nil, nil, false
	}
	return sess, stories, true
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
