package server

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bpardiwa1/agentic-launcher/internal/supervisor"
)

// Router exposes the serve-mode control API over the running supervisors.
// Endpoints:
//
//	GET  {basePath}/healthz
//	GET  {basePath}/status          all bots (or ?name= for one)
//	POST {basePath}/restart?name=   terminate the bot's child; the loop relaunches it
//
// The dashboard bot's own HTTP endpoints are not proxied here; its process
// is as opaque to this API as to the supervisor.
type Router struct {
	sups     map[string]*supervisor.Supervisor
	basePath string
}

// NewRouter constructs a Router over the given supervisors.
// Example basePath: "/api" results in /api/status etc.
func NewRouter(sups map[string]*supervisor.Supervisor, basePath string) *Router {
	return &Router{sups: sups, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/healthz", r.handleHealthz)
	group.GET("/status", r.handleStatus)
	group.POST("/restart", r.handleRestart)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, sups map[string]*supervisor.Supervisor) *http.Server {
	r := NewRouter(sups, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "bots": len(r.sups)})
}

func (r *Router) handleStatus(c *gin.Context) {
	if name := c.Query("name"); name != "" {
		s, ok := r.sups[name]
		if !ok {
			c.JSON(http.StatusNotFound, errorResp{Error: "unknown bot: " + name})
			return
		}
		c.JSON(http.StatusOK, s.Snapshot())
		return
	}
	out := make([]supervisor.Snapshot, 0, len(r.sups))
	for _, s := range r.sups {
		out = append(out, s.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	c.JSON(http.StatusOK, out)
}

func (r *Router) handleRestart(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, errorResp{Error: "name query param required"})
		return
	}
	s, ok := r.sups[name]
	if !ok {
		c.JSON(http.StatusNotFound, errorResp{Error: "unknown bot: " + name})
		return
	}
	if err := s.Restart(); err != nil {
		c.JSON(http.StatusConflict, errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, okResp{OK: true})
}

func sanitizeBase(bp string) string {
	bp = strings.TrimSpace(bp)
	if bp == "" || bp == "/" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return strings.TrimRight(bp, "/")
}
