package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"saree-studio/internal/design"
	"saree-studio/internal/render"
	"saree-studio/internal/session"
	"saree-studio/internal/studio"
)

const maxBodyBytes = 25 << 20

type server struct {
	studio         *studio.Service
	sessions       *session.Store
	logger         *slog.Logger
	requestTimeout time.Duration
}

type apiError struct {
	Error string `json:"error"`
}

type regionJSON struct {
	Color      string `json:"color,omitempty"`
	Pattern    string `json:"pattern,omitempty"`
	Motif      string `json:"motif,omitempty"`
	Category   string `json:"category,omitempty"`
	Size       string `json:"size,omitempty"`
	SizeInches int    `json:"size_inches,omitempty"`
	ZariLevel  string `json:"zari_level,omitempty"`
}

type stateJSON struct {
	Zari   string     `json:"zari"`
	Body   regionJSON `json:"body"`
	Border regionJSON `json:"border"`
	Pallu  regionJSON `json:"pallu"`
	Ready  bool       `json:"ready"`
}

type artifactJSON struct {
	ID          string    `json:"id"`
	Image       string    `json:"image"`
	Stage       string    `json:"stage"`
	Model       string    `json:"model,omitempty"`
	Message     string    `json:"message,omitempty"`
	Placeholder bool      `json:"placeholder"`
	CreatedAt   time.Time `json:"created_at"`
}

type sessionResponse struct {
	ID      string        `json:"id"`
	State   stateJSON     `json:"state"`
	Preview *artifactJSON `json:"preview,omitempty"`
	Final   *artifactJSON `json:"final,omitempty"`
}

type outcomeResponse struct {
	Status   string        `json:"status"`
	Message  string        `json:"message,omitempty"`
	State    stateJSON     `json:"state"`
	Artifact *artifactJSON `json:"artifact,omitempty"`
}

type motifResponse struct {
	Region   string   `json:"region"`
	Keyword  string   `json:"keyword"`
	Images   []string `json:"images"`
	Messages []string `json:"messages"`
	Failed   int      `json:"failed"`
}

type zariRequest struct {
	Zari string `json:"zari"`
}

type regionRequest struct {
	Category  string `json:"category"`
	Size      string `json:"size"`
	ZariLevel string `json:"zari_level"`
	Pattern   string `json:"pattern"`
}

type colorsRequest struct {
	Body   string `json:"body"`
	Border string `json:"border"`
	Pallu  string `json:"pallu"`
	Note   string `json:"note"`
}

type designRequest struct {
	Region  string `json:"region"`
	Motif   string `json:"motif"`
	Pattern string `json:"pattern"`
	Note    string `json:"note"`
}

type motifsRequest struct {
	Region    string `json:"region"`
	Keyword   string `json:"keyword"`
	Category  string `json:"category"`
	Size      string `json:"size"`
	ZariLevel string `json:"zari_level"`
	Count     int    `json:"count"`
}

type noteRequest struct {
	Note string `json:"note"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.logRequests, middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/zari", s.handleZari)
			r.Post("/regions/{region}", s.handleRegion)
			r.Post("/colors", s.handleColors)
			r.Post("/preview", s.handlePreview)
			r.Post("/design", s.handleDesign)
			r.Post("/motifs", s.handleMotifs)
			r.Post("/motifs/{region}/{index}/use", s.handleUseMotif)
			r.Post("/finalize", s.handleFinalize)
		})
	})

	return r
}

func (s *server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	categories := make(map[string][]string, 3)
	for _, reg := range design.Regions() {
		categories[string(reg)] = design.Categories(reg)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"zari":         design.ZariTypes(),
		"zari_levels":  design.ZariLevels(),
		"categories":   categories,
		"border_sizes": design.BorderSizes(),
		"colors":       design.ColorPresets(),
	})
}

func (s *server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	s.logger.Info("session created", "session", sess.ID)
	writeJSON(w, http.StatusCreated, sessionView(sess))
}

func (s *server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionView(sess))
}

func (s *server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.session(w, r); !ok {
		return
	}
	s.sessions.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleZari(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req zariRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := s.studio.SetZari(sess, req.Zari); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(sess))
}

func (s *server) handleRegion(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	region, err := design.ParseRegion(chi.URLParam(r, "region"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req regionRequest
	if !decode(w, r, &req) {
		return
	}
	_, err = s.studio.ConfigureRegion(sess, region, studio.RegionParams{
		Category:  req.Category,
		Size:      req.Size,
		ZariLevel: req.ZariLevel,
		Pattern:   req.Pattern,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(sess))
}

func (s *server) handleColors(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req colorsRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	out, err := s.studio.ApplyColors(ctx, sess, studio.Colors{Body: req.Body, Border: req.Border, Pallu: req.Pallu}, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeView(out))
}

func (s *server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	out, err := s.studio.InitialPreview(ctx, sess)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeView(out))
}

func (s *server) handleDesign(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req designRequest
	if !decode(w, r, &req) {
		return
	}
	region, err := design.ParseRegion(req.Region)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	out, err := s.studio.ApplyDesign(ctx, sess, studio.DesignChoice{
		Region:  region,
		Motif:   req.Motif,
		Pattern: req.Pattern,
	}, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeView(out))
}

func (s *server) handleMotifs(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req motifsRequest
	if !decode(w, r, &req) {
		return
	}
	region, err := design.ParseRegion(req.Region)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	res, err := s.studio.SearchMotifs(ctx, sess, studio.SearchParams{
		Region:  region,
		Keyword: req.Keyword,
		RegionParams: studio.RegionParams{
			Category:  req.Category,
			Size:      req.Size,
			ZariLevel: req.ZariLevel,
		},
		Count: req.Count,
	})
	if err != nil && len(res.Images) == 0 {
		writeError(w, err)
		return
	}
	if err != nil {
		// Every slot is a placeholder; the batch is still returned.
		w.Header().Set("X-Motif-Error", err.Error())
	}

	writeJSON(w, http.StatusOK, motifResponse{
		Region:   string(res.Region),
		Keyword:  res.Keyword,
		Images:   res.Images,
		Messages: res.Messages,
		Failed:   res.Failed(),
	})
}

func (s *server) handleUseMotif(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	region, err := design.ParseRegion(chi.URLParam(r, "region"))
	if err != nil {
		writeError(w, err)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "index must be a number"})
		return
	}
	var req noteRequest
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	out, err := s.studio.UseMotif(ctx, sess, region, index, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeView(out))
}

func (s *server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req noteRequest
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	out, err := s.studio.FinalizeDesign(ctx, sess, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeView(out))
}

func (s *server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.requestTimeout)
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"dur_ms", time.Since(start).Milliseconds(),
		)
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid JSON body"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), apiError{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, studio.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, studio.ErrIncompleteColors),
		errors.Is(err, studio.ErrEmptyKeyword),
		errors.Is(err, studio.ErrEmptyMotif),
		errors.Is(err, studio.ErrNoSuchMotif),
		errors.Is(err, studio.ErrMotifCount),
		errors.Is(err, design.ErrUnknownRegion),
		errors.Is(err, design.ErrUnknownZari),
		errors.Is(err, design.ErrInvalidColor),
		errors.Is(err, design.ErrUnknownCategory),
		errors.Is(err, design.ErrUnknownSize),
		errors.Is(err, design.ErrUnknownLevel),
		errors.Is(err, design.ErrNotApplicable):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sessionView(sess *session.Session) sessionResponse {
	resp := sessionResponse{ID: sess.ID, State: stateView(sess.State())}
	if art, ok := sess.Preview(); ok {
		resp.Preview = artifactView(art)
	}
	if art, ok := sess.Final(); ok {
		resp.Final = artifactView(art)
	}
	return resp
}

func outcomeView(out studio.Outcome) outcomeResponse {
	resp := outcomeResponse{
		Status:  string(out.Status),
		Message: out.Message,
		State:   stateView(out.State),
	}
	if out.Artifact != nil {
		resp.Artifact = artifactView(*out.Artifact)
	}
	return resp
}

func stateView(st design.State) stateJSON {
	return stateJSON{
		Zari:   string(st.Zari),
		Body:   regionView(st.Body),
		Border: regionView(st.Border),
		Pallu:  regionView(st.Pallu),
		Ready:  st.ReadyToRender(),
	}
}

func regionView(cfg design.RegionConfig) regionJSON {
	return regionJSON{
		Color:      cfg.Color,
		Pattern:    cfg.Pattern,
		Motif:      cfg.MotifRef,
		Category:   cfg.Category,
		Size:       cfg.Size,
		SizeInches: cfg.SizeInches,
		ZariLevel:  cfg.ZariLevel,
	}
}

func artifactView(art render.Artifact) *artifactJSON {
	return &artifactJSON{
		ID:          art.ID,
		Image:       art.Image,
		Stage:       string(art.Stage),
		Model:       art.Model,
		Message:     art.Message,
		Placeholder: art.Placeholder,
		CreatedAt:   art.CreatedAt,
	}
}
