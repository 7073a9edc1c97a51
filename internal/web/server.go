// Package web serves the dashboard over HTTP.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/typedash/internal/dashboard"
	"github.com/verte-zerg/typedash/internal/logger"
)

//go:embed templates/*.html static/*
var assets embed.FS

const (
	sessionCookie = "typedash_session"
	sessionKey    = "session"
	shutdownWait  = 5 * time.Second
)

// Config wires the server's collaborators.
type Config struct {
	Controller     *dashboard.Controller
	Sessions       *dashboard.Sessions
	Upload         UploadTarget
	UploadPassword string
	Log            *logger.Logger
}

// Server is the dashboard HTTP surface.
type Server struct {
	cfg    Config
	router *gin.Engine
	static fs.FS
}

// New parses templates and loads styling assets. Any asset failure is
// returned so startup can abort.
func New(cfg Config) (*Server, error) {
	if cfg.Controller == nil {
		return nil, errors.New("controller is required")
	}
	if cfg.Sessions == nil {
		cfg.Sessions = dashboard.NewSessions()
	}
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"join": strings.Join,
	}).ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	static, err := staticFS(assets)
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, static: static}
	s.router = s.newRouter(tmpl)
	return s, nil
}

// staticFS returns the styling assets, failing when style.css cannot be read.
func staticFS(fsys fs.FS) (fs.FS, error) {
	sub, err := fs.Sub(fsys, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to read static assets: %w", err)
	}
	if _, err := fs.ReadFile(sub, "style.css"); err != nil {
		return nil, fmt.Errorf("failed to read static assets: %w", err)
	}
	return sub, nil
}

func (s *Server) newRouter(tmpl *template.Template) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(s.cfg.Log))
	router.SetHTMLTemplate(tmpl)
	router.MaxMultipartMemory = maxUploadBytes

	router.GET("/healthcheck", healthCheck)
	router.StaticFS("/static", http.FS(s.static))

	pages := router.Group("/")
	pages.Use(s.attachSession())
	pages.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/overall")
	})
	pages.GET("/overall", s.overall)
	pages.GET("/personal", s.personal)
	pages.GET("/analytics", s.analytics)
	pages.POST("/session", s.updateSession)
	pages.GET("/upload", s.uploadForm)
	pages.POST("/upload", s.upload)

	return router
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.cfg.Log.Info("dashboard listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

func healthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (s *Server) attachSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(sessionCookie)
		sess := s.cfg.Sessions.Ensure(id)
		if sess.ID != id {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookie, sess.ID, int(dashboard.SessionIdleLimit.Seconds()), "/", "", false, true)
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func currentSession(c *gin.Context) dashboard.Session {
	if v, ok := c.Get(sessionKey); ok {
		if sess, ok := v.(dashboard.Session); ok {
			return sess
		}
	}
	return dashboard.Session{Period: dashboard.PeriodAll}
}

// period resolves the query period, remembering it in the session when given.
func (s *Server) period(c *gin.Context) dashboard.Session {
	sess := currentSession(c)
	if raw, ok := c.GetQuery("period"); ok {
		p := dashboard.ParsePeriod(raw)
		sess = s.cfg.Sessions.Update(sess.ID, func(st *dashboard.Session) {
			st.Period = p
		})
	}
	if sess.Period == "" {
		sess.Period = dashboard.PeriodAll
	}
	return sess
}

func (s *Server) overall(c *gin.Context) {
	sess := s.period(c)
	c.HTML(http.StatusOK, "overall.html", s.cfg.Controller.Overall(c.Request.Context(), sess.Period))
}

func (s *Server) personal(c *gin.Context) {
	sess := s.period(c)
	if raw, ok := c.GetQuery("user"); ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			sess = s.cfg.Sessions.Update(sess.ID, func(st *dashboard.Session) {
				st.SelectedUser = id
				st.HasUser = true
			})
		}
	}
	c.HTML(http.StatusOK, "personal.html", s.cfg.Controller.Personal(c.Request.Context(), sess))
}

func (s *Server) analytics(c *gin.Context) {
	sess := s.period(c)
	c.HTML(http.StatusOK, "analytics.html", s.cfg.Controller.Analytics(c.Request.Context(), sess.Period))
}

var returnPaths = map[string]bool{
	"/" + dashboard.TabOverall:   true,
	"/" + dashboard.TabPersonal:  true,
	"/" + dashboard.TabAnalytics: true,
}

func (s *Server) updateSession(c *gin.Context) {
	sess := currentSession(c)
	period, hasPeriod := c.GetPostForm("period")
	user, hasUser := c.GetPostForm("user")
	var userID int64
	if hasUser {
		id, err := strconv.ParseInt(strings.TrimSpace(user), 10, 64)
		if err != nil {
			c.String(http.StatusBadRequest, "invalid user id")
			return
		}
		userID = id
	}
	s.cfg.Sessions.Update(sess.ID, func(st *dashboard.Session) {
		if hasPeriod {
			st.Period = dashboard.ParsePeriod(period)
		}
		if hasUser {
			st.SelectedUser = userID
			st.HasUser = true
		}
	})

	target := c.PostForm("return")
	if !returnPaths[target] {
		target = "/" + dashboard.TabOverall
	}
	c.Redirect(http.StatusSeeOther, target)
}
