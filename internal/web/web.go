package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"rehearsalcal/internal/config"
	"rehearsalcal/internal/ics"
	appLog "rehearsalcal/internal/log"
	"rehearsalcal/internal/match"
	"rehearsalcal/internal/model"
	"rehearsalcal/internal/pipeline"
)

// BuildFunc produces a fresh pipeline result, typically by reading the
// workbook and writing calendars to disk.
type BuildFunc func(ctx context.Context) (*pipeline.Result, error)

// Server exposes the generated calendars for subscription and a small
// JSON API. /health is always public; everything else sits behind basic
// auth when credentials are configured.
type Server struct {
	cfg     *config.Config
	build   BuildFunc
	builder *ics.Builder
	router  *gin.Engine

	// Last successful build; requests never trigger a build themselves.
	mu        sync.RWMutex
	result    *pipeline.Result
	updatedAt time.Time
	lastErr   error

	// Serializes Refresh calls.
	refreshMu sync.Mutex
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, build BuildFunc, builder *ics.Builder, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		cfg:     cfg,
		build:   build,
		builder: builder,
		router:  router,
	}
	s.setupRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) basicAuthEnabled() bool {
	return s.cfg != nil && s.cfg.BasicAuth != nil &&
		s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	protected := s.router.Group("/")
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		protected.Use(gin.BasicAuthForRealm(gin.Accounts{
			s.cfg.BasicAuth.Username: s.cfg.BasicAuth.Password,
		}, "rehearsalcal"))
	}

	api := protected.Group("/api")
	{
		api.GET("/persons", s.listPersons)
		api.GET("/persons/:person/events", s.personEvents)
		api.POST("/refresh", s.refresh)
	}
	protected.GET("/calendars/:file", s.calendarFile)
}

// Refresh runs the build and swaps in the new result. A failed build
// keeps serving the previous result.
func (s *Server) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()
	res, err := s.build(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		appLog.Error("refresh failed", err, "kind", string(model.KindOf(err)))
		return err
	}
	s.result = res
	s.updatedAt = time.Now()
	appLog.Info("refresh completed", "persons", len(res.Groups), "elapsed", time.Since(start).String())
	return nil
}

// state is a consistent view of the last refresh.
type state struct {
	result    *pipeline.Result
	updatedAt time.Time
	lastErr   error
}

func (s *Server) snapshot() state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return state{result: s.result, updatedAt: s.updatedAt, lastErr: s.lastErr}
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

type personDTO struct {
	Name     string `json:"name"`
	Calendar string `json:"calendar"`
	Events   int    `json:"events"`
}

type personsResponse struct {
	Persons         []personDTO `json:"persons"`
	DefaultLocation string      `json:"default_location"`
	Cutoff          string      `json:"cutoff,omitempty"`
	UpdatedAt       time.Time   `json:"updated_at"`
	LastError       string      `json:"last_error,omitempty"`
}

func (s *Server) listPersons(c *gin.Context) {
	st, ok := s.ready(c)
	if !ok {
		return
	}
	res := st.result

	persons := make([]personDTO, 0, len(res.Groups))
	for _, g := range res.Groups {
		_, events := s.builder.Build(g, res.Facts.DefaultLocation)
		persons = append(persons, personDTO{
			Name:     g.Person,
			Calendar: "/calendars/" + url.PathEscape(ics.FileName(g.Person)),
			Events:   events,
		})
	}
	resp := personsResponse{
		Persons:         persons,
		DefaultLocation: res.Facts.DefaultLocation,
		UpdatedAt:       st.updatedAt,
	}
	if res.Facts.Cutoff != nil {
		resp.Cutoff = res.Facts.Cutoff.Format("2006-01-02")
	}
	if st.lastErr != nil {
		resp.LastError = st.lastErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

type eventDTO struct {
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Status      string    `json:"status"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// personEvents returns the person's calendar as JSON by rendering it and
// reading it back, so the API shows exactly what subscribers receive.
func (s *Server) personEvents(c *gin.Context) {
	st, ok := s.ready(c)
	if !ok {
		return
	}
	res := st.result
	g, found := findGroup(res.Groups, func(g match.PersonGroup) bool { return g.Person == c.Param("person") })
	if !found {
		writeError(c, http.StatusNotFound, "person not found")
		return
	}

	body, err := s.builder.Serialize(g, res.Facts.DefaultLocation)
	if err != nil {
		appLog.Error("api events: render failed", err, "person", g.Person)
		writeError(c, http.StatusInternalServerError, "failed to render calendar")
		return
	}
	events, err := ics.ParseICS(body)
	if err != nil {
		appLog.Error("api events: parse failed", err, "person", g.Person)
		writeError(c, http.StatusInternalServerError, "failed to read calendar")
		return
	}

	dtos := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		dtos = append(dtos, eventDTO{
			UID:         ev.UID,
			Summary:     ev.Summary,
			Description: ev.Description,
			Location:    ev.Location,
			Status:      ev.Status,
			Start:       ev.Start,
			End:         ev.End,
		})
	}
	c.JSON(http.StatusOK, gin.H{"person": g.Person, "events": dtos})
}

func (s *Server) calendarFile(c *gin.Context) {
	file := c.Param("file")
	if !strings.HasSuffix(file, ".ics") {
		writeError(c, http.StatusNotFound, "calendar not found")
		return
	}
	st, ok := s.ready(c)
	if !ok {
		return
	}
	res := st.result
	g, found := findGroup(res.Groups, func(g match.PersonGroup) bool { return ics.FileName(g.Person) == file })
	if !found {
		writeError(c, http.StatusNotFound, "calendar not found")
		return
	}

	body, err := s.builder.Serialize(g, res.Facts.DefaultLocation)
	if err != nil {
		appLog.Error("calendar render failed", err, "person", g.Person)
		writeError(c, http.StatusInternalServerError, "failed to render calendar")
		return
	}
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", body)
}

func (s *Server) refresh(c *gin.Context) {
	if err := s.Refresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
			"kind":  string(model.KindOf(err)),
		})
		return
	}
	st := s.snapshot()
	c.JSON(http.StatusOK, gin.H{
		"persons":    len(st.result.Groups),
		"occasions":  len(st.result.Occasions),
		"updated_at": st.updatedAt,
	})
}

// ready writes 503 and returns false until a build has succeeded.
func (s *Server) ready(c *gin.Context) (state, bool) {
	st := s.snapshot()
	if st.result == nil {
		msg := "calendars not generated yet"
		if st.lastErr != nil {
			msg = st.lastErr.Error()
		}
		writeError(c, http.StatusServiceUnavailable, msg)
		return st, false
	}
	return st, true
}

func findGroup(groups []match.PersonGroup, pred func(match.PersonGroup) bool) (match.PersonGroup, bool) {
	for _, g := range groups {
		if pred(g) {
			return g, true
		}
	}
	return match.PersonGroup{}, false
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// requestLogger logs requests through the application logger instead of
// gin's default writer.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		appLog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).String(),
		)
	}
}
