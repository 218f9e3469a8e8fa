// Package fixture serves the demo login site that the demo pages drive. It is a
// disposable local web server started for test runs.
package fixture

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/luispater/pagechain/internal/config"
	log "github.com/sirupsen/logrus"
)

//go:embed site
var embedded embed.FS

const (
	userCookie    = "demo_user"
	sessionCookie = "demo_session"
)

// Server is the demo site server.
type Server struct {
	engine   *gin.Engine
	server   *http.Server
	site     http.FileSystem
	username string
	password string

	mu       sync.Mutex
	sessions map[string]string
}

// NewServer creates the demo site server from the fixture configuration.
func NewServer(appConfig *config.AppConfig) (*Server, error) {
	site, err := siteFS(appConfig.Fixture.Dir)
	if err != nil {
		return nil, err
	}

	if !appConfig.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	if appConfig.Debug {
		engine.Use(gin.Logger())
	}

	s := &Server{
		engine:   engine,
		site:     http.FS(site),
		username: appConfig.Fixture.Username,
		password: appConfig.Fixture.Password,
		sessions: make(map[string]string),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:    appConfig.FixtureAddr(),
		Handler: engine,
	}
	return s, nil
}

func siteFS(dir string) (fs.FS, error) {
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("fixture dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("fixture dir %s is not a directory", dir)
		}
		return os.DirFS(dir), nil
	}
	return fs.Sub(embedded, "site")
}

func (s *Server) setupRoutes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/loginuser.html")
	})
	s.engine.GET("/:file", s.serveFile)
	s.engine.POST("/login/user", s.loginUser)
	s.engine.POST("/login/password", s.loginPassword)
	s.engine.POST("/logout", s.logout)
}

// Handler returns the HTTP handler of the site.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

func (s *Server) serveFile(c *gin.Context) {
	file := path.Clean(c.Param("file"))
	if file == "home.html" || file == "profile.html" {
		if _, ok := s.session(c); !ok {
			c.Redirect(http.StatusFound, "/loginuser.html")
			return
		}
	}
	c.FileFromFS(file, s.site)
}

func (s *Server) loginUser(c *gin.Context) {
	username := c.PostForm("username")
	log.Debugf("fixture: username '%s' submitted", username)
	c.SetCookie(userCookie, username, 0, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/loginpassword.html")
}

func (s *Server) loginPassword(c *gin.Context) {
	username, _ := c.Cookie(userCookie)
	if username != s.username || c.PostForm("password") != s.password {
		log.Debugf("fixture: login rejected for '%s'", username)
		c.Redirect(http.StatusSeeOther, "/loginpassword.html?error=1")
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = username
	s.mu.Unlock()

	c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/home.html")
}

func (s *Server) logout(c *gin.Context) {
	if id, ok := s.session(c); ok {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.SetCookie(userCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/loginuser.html")
}

func (s *Server) session(c *gin.Context) (string, bool) {
	id, err := c.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	return id, ok
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start() error {
	log.Debugf("Starting fixture server on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start fixture server: %v", err)
	}
	return nil
}

// Serve serves on l until Stop.
func (s *Server) Serve(l net.Listener) error {
	log.Debugf("Starting fixture server on %s", l.Addr())
	if err := s.server.Serve(l); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("fixture server: %v", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	log.Debug("Stopping fixture server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown fixture server: %v", err)
	}
	log.Debug("Fixture server stopped")
	return nil
}
