package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/evalmachine/internal/domain/runner"
	"github.com/GriffinCanCode/evalmachine/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/evalmachine/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/evalmachine/internal/script/scripterr"
	"github.com/GriffinCanCode/evalmachine/internal/shared/id"
	"github.com/GriffinCanCode/evalmachine/internal/shared/utils"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := runner.New(nil)
	tracer := tracing.New("test", nil)
	t.Cleanup(func() {
		tracer.Close()
		_ = r.Close()
	})

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	router := gin.New()
	router.Use(monitoring.Middleware(metrics))
	NewHandlers(r.WithMetrics(metrics), tracer, metrics).Register(router)
	return router
}

func do(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func TestRun(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantValue  any
		wantKind   string
	}{
		{"this", map[string]any{"code": "1 + 2"}, http.StatusOK, float64(3), ""},
		{"new with sandbox", map[string]any{"code": "a * 2", "mode": "new", "sandbox": map[string]any{"a": 4}}, http.StatusOK, float64(8), ""},
		{"compile error", map[string]any{"code": "var = 1"}, http.StatusBadRequest, nil, "compile"},
		{"runtime error", map[string]any{"code": "throw new Error('boom')", "mode": "new"}, http.StatusUnprocessableEntity, nil, "runtime"},
		{"bad mode", map[string]any{"code": "1", "mode": "sideways"}, http.StatusBadRequest, nil, KindRequest},
		{"unknown context", map[string]any{"code": "1", "context_id": id.NewContextID()}, http.StatusNotFound, nil, KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, out := do(t, router, http.MethodPost, "/run", tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, out["kind"])
				assert.NotEmpty(t, out["error"])
				return
			}
			assert.Equal(t, tt.wantValue, out["value"])
		})
	}
}

func TestRunReturnsSandboxAndLogs(t *testing.T) {
	router := setupRouter(t)

	w, out := do(t, router, http.MethodPost, "/run", map[string]any{
		"code":    "console.log('hi'); b = a + 1",
		"mode":    "new",
		"sandbox": map[string]any{"a": 1},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"a": float64(1), "b": float64(2)}, out["sandbox"])
	logs, ok := out["logs"].([]any)
	require.True(t, ok)
	require.Len(t, logs, 1)
	assert.Equal(t, "hi", logs[0].(map[string]any)["message"])
}

func TestContextLifecycle(t *testing.T) {
	router := setupRouter(t)

	w, out := do(t, router, http.MethodPost, "/contexts", map[string]any{"sandbox": map[string]any{"n": 1}})
	require.Equal(t, http.StatusCreated, w.Code)
	cid, _ := out["id"].(string)
	require.True(t, id.HasPrefix(cid, id.ContextPrefix))

	for want := 2; want <= 3; want++ {
		w, out = do(t, router, http.MethodPost, "/contexts/"+cid+"/run", map[string]any{"code": "n += 1"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(want), out["value"])
	}

	w, out = do(t, router, http.MethodGet, "/contexts/"+cid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), out["runs"])
	assert.Equal(t, map[string]any{"n": float64(3)}, out["sandbox"])

	w, out = do(t, router, http.MethodGet, "/contexts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), out["count"])

	w, _ = do(t, router, http.MethodDelete, "/contexts/"+cid, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, out = do(t, router, http.MethodGet, "/contexts/"+cid, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, KindNotFound, out["kind"])
}

func TestCreateContextWithoutBody(t *testing.T) {
	router := setupRouter(t)
	w, out := do(t, router, http.MethodPost, "/contexts", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, out["sandbox"])
}

func TestInvalidIDs(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		method, path string
	}{
		{http.MethodGet, "/contexts/nope"},
		{http.MethodDelete, "/contexts/" + id.NewScriptID().String()},
		{http.MethodPost, "/contexts/nope/run"},
		{http.MethodDelete, "/scripts/nope"},
		{http.MethodPost, "/scripts/" + id.NewContextID().String() + "/run"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w, out := do(t, router, tt.method, tt.path, map[string]any{"code": "1"})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, KindRequest, out["kind"])
		})
	}
}

func TestScripts(t *testing.T) {
	router := setupRouter(t)

	w, out := do(t, router, http.MethodPost, "/scripts", map[string]any{"code": "typeof x === 'number' ? x * 2 : 'none'", "filename": "double.js"})
	require.Equal(t, http.StatusCreated, w.Code)
	sid, _ := out["id"].(string)
	require.True(t, id.HasPrefix(sid, id.ScriptPrefix))

	w, out = do(t, router, http.MethodPost, "/scripts/"+sid+"/run", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "none", out["value"])

	w, out = do(t, router, http.MethodPost, "/scripts/"+sid+"/run", map[string]any{"mode": "new", "sandbox": map[string]any{"x": 21}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(42), out["value"])

	w, out = do(t, router, http.MethodGet, "/scripts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), out["count"])
	scripts := out["scripts"].([]any)
	assert.Equal(t, "double.js", scripts[0].(map[string]any)["filename"])
	assert.Equal(t, utils.Digest("typeof x === 'number' ? x * 2 : 'none'"), scripts[0].(map[string]any)["digest"])

	w, _ = do(t, router, http.MethodDelete, "/scripts/"+sid, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, out = do(t, router, http.MethodPost, "/scripts/"+sid+"/run", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, KindNotFound, out["kind"])
}

func TestCompileErrors(t *testing.T) {
	router := setupRouter(t)

	w, out := do(t, router, http.MethodPost, "/scripts", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, KindRequest, out["kind"])

	w, out = do(t, router, http.MethodPost, "/scripts", map[string]any{"code": "function ("})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "compile", out["kind"])
}

func TestRequestValidation(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		name string
		path string
		body map[string]any
	}{
		{"filename with newline", "/run", map[string]any{"code": "1", "filename": "a\nb.js"}},
		{"oversized code", "/scripts", map[string]any{"code": strings.Repeat(" ", utils.MaxCodeSize+1)}},
		{"deep sandbox", "/contexts", map[string]any{"sandbox": deep(utils.MaxSandboxDepth + 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, out := do(t, router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, KindRequest, out["kind"])
		})
	}
}

func deep(n int) map[string]any {
	m := map[string]any{}
	for i := 0; i < n; i++ {
		m = map[string]any{"next": m}
	}
	return m
}

func TestHealthAndStats(t *testing.T) {
	router := setupRouter(t)
	do(t, router, http.MethodPost, "/contexts", nil)

	w, out := do(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, float64(1), out["runner"].(map[string]any)["contexts"])

	w, out = do(t, router, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	metrics, ok := out["metrics"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), metrics["active_contexts"])
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantKind   string
	}{
		{fmt.Errorf("context x: %w", runner.ErrNotFound), http.StatusNotFound, KindNotFound},
		{fmt.Errorf("%w %q", runner.ErrInvalidMode, "x"), http.StatusBadRequest, KindRequest},
		{scripterr.Argument(scripterr.MsgNeedsCode), http.StatusBadRequest, "argument"},
		{&scripterr.CompileError{Filename: "a.js"}, http.StatusBadRequest, "compile"},
		{scripterr.Misuse(scripterr.MsgNotMethod), http.StatusConflict, "misuse"},
		{&scripterr.RuntimeError{Filename: "a.js"}, http.StatusUnprocessableEntity, "runtime"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.wantKind, func(t *testing.T) {
			status, kind := StatusOf(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}
