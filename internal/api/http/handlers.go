package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/evalmachine/internal/domain/runner"
	"github.com/GriffinCanCode/evalmachine/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/evalmachine/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/evalmachine/internal/shared/id"
)

// Version is reported by the root and health endpoints.
const Version = "0.1.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	runner  *runner.Runner
	tracer  *tracing.Tracer
	metrics *monitoring.Metrics
}

// NewHandlers creates a new handler set. metrics may be nil.
func NewHandlers(r *runner.Runner, tracer *tracing.Tracer, metrics *monitoring.Metrics) *Handlers {
	return &Handlers{runner: r, tracer: tracer, metrics: metrics}
}

// Register adds every route to router.
func (h *Handlers) Register(router gin.IRoutes) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/stats", h.Stats)

	router.POST("/run", h.Run)

	router.POST("/contexts", h.CreateContext)
	router.GET("/contexts", h.ListContexts)
	router.GET("/contexts/:id", h.GetContext)
	router.DELETE("/contexts/:id", h.DeleteContext)
	router.POST("/contexts/:id/run", h.RunInContext)

	router.POST("/scripts", h.CompileScript)
	router.GET("/scripts", h.ListScripts)
	router.DELETE("/scripts/:id", h.DeleteScript)
	router.POST("/scripts/:id/run", h.RunScript)
}

// CreateContextRequest seeds a new context.
type CreateContextRequest struct {
	Sandbox map[string]any `json:"sandbox"`
}

// CompileRequest compiles a script for later runs.
type CompileRequest struct {
	Code          string `json:"code" binding:"required"`
	Filename      string `json:"filename"`
	DisplayErrors bool   `json:"display_errors"`
}

// Root reports the service identity.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "evalmachine",
		"version": Version,
	})
}

// Health reports held object counts.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": Version,
		"runner":  h.runner.Stats(),
	})
}

// Stats reports runner counts and, when metrics are enabled, the metrics
// snapshot.
func (h *Handlers) Stats(c *gin.Context) {
	body := gin.H{"runner": h.runner.Stats()}
	if h.metrics != nil {
		body["metrics"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, body)
}

// Run compiles and runs code in the environment named by the request mode.
func (h *Handlers) Run(c *gin.Context) {
	var req runner.Request
	if !bindJSON(c, &req) || !validRequest(c, req.Code, req.Filename, req.Sandbox) {
		return
	}
	h.respondRun(c, "runner.run", func() (*runner.Result, error) {
		return h.runner.Run(req)
	})
}

// CreateContext binds a new sandbox and returns its id.
func (h *Handlers) CreateContext(c *gin.Context) {
	var req CreateContextRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	if !validRequest(c, "", "", req.Sandbox) {
		return
	}

	var info *runner.ContextInfo
	err := h.trace(c, "runner.create_context", func(ctx context.Context, span *tracing.Span) error {
		cid, err := h.runner.CreateContext(req.Sandbox)
		if err != nil {
			return err
		}
		span.SetTag("context_id", cid.String())
		info, err = h.runner.Context(cid)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// ListContexts lists held contexts.
func (h *Handlers) ListContexts(c *gin.Context) {
	contexts := h.runner.Contexts()
	c.JSON(http.StatusOK, gin.H{
		"contexts": contexts,
		"count":    len(contexts),
	})
}

// GetContext describes one context.
func (h *Handlers) GetContext(c *gin.Context) {
	cid, ok := contextID(c)
	if !ok {
		return
	}
	info, err := h.runner.Context(cid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// DeleteContext closes a context.
func (h *Handlers) DeleteContext(c *gin.Context) {
	cid, ok := contextID(c)
	if !ok {
		return
	}
	err := h.trace(c, "runner.delete_context", func(context.Context, *tracing.Span) error {
		return h.runner.DeleteContext(cid)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RunInContext runs code in the context named by the path.
func (h *Handlers) RunInContext(c *gin.Context) {
	cid, ok := contextID(c)
	if !ok {
		return
	}
	var req runner.Request
	if !bindJSON(c, &req) || !validRequest(c, req.Code, req.Filename, nil) {
		return
	}
	req.Mode, req.ContextID = runner.ModeContext, cid
	h.respondRun(c, "runner.run", func() (*runner.Result, error) {
		return h.runner.Run(req)
	})
}

// CompileScript compiles and stores a script.
func (h *Handlers) CompileScript(c *gin.Context) {
	var req CompileRequest
	if !bindJSON(c, &req) || !validRequest(c, req.Code, req.Filename, nil) {
		return
	}

	var sid id.ScriptID
	err := h.trace(c, "runner.compile", func(ctx context.Context, span *tracing.Span) (err error) {
		sid, err = h.runner.Compile(req.Code, req.Filename, req.DisplayErrors)
		span.SetTag("script_id", sid.String())
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": sid})
}

// ListScripts lists stored scripts.
func (h *Handlers) ListScripts(c *gin.Context) {
	scripts := h.runner.Scripts()
	c.JSON(http.StatusOK, gin.H{
		"scripts": scripts,
		"count":   len(scripts),
	})
}

// DeleteScript forgets a stored script.
func (h *Handlers) DeleteScript(c *gin.Context) {
	sid, ok := scriptID(c)
	if !ok {
		return
	}
	if err := h.runner.DeleteScript(sid); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RunScript runs a stored script. The body selects the environment; its
// code field is ignored.
func (h *Handlers) RunScript(c *gin.Context) {
	sid, ok := scriptID(c)
	if !ok {
		return
	}
	var req runner.Request
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	if !validRequest(c, "", req.Filename, req.Sandbox) {
		return
	}
	h.respondRun(c, "runner.run_script", func() (*runner.Result, error) {
		return h.runner.RunScript(sid, req)
	})
}

func (h *Handlers) respondRun(c *gin.Context, op string, run func() (*runner.Result, error)) {
	var res *runner.Result
	err := h.trace(c, op, func(ctx context.Context, span *tracing.Span) (err error) {
		res, err = run()
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) trace(c *gin.Context, name string, fn func(context.Context, *tracing.Span) error) error {
	if h.tracer == nil {
		return fn(c.Request.Context(), &tracing.Span{Tags: make(map[string]string)})
	}
	return h.tracer.Trace(c.Request.Context(), name, fn)
}
