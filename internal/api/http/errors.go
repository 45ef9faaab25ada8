package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/evalmachine/internal/domain/runner"
	"github.com/GriffinCanCode/evalmachine/internal/script/scripterr"
	"github.com/GriffinCanCode/evalmachine/internal/shared/id"
	"github.com/GriffinCanCode/evalmachine/internal/shared/utils"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Kinds reported for failures outside the evaluation taxonomy.
const (
	KindNotFound = "not_found"
	KindRequest  = "request"
)

// StatusOf maps an error to its HTTP status and kind.
func StatusOf(err error) (int, string) {
	switch {
	case errors.Is(err, runner.ErrNotFound):
		return http.StatusNotFound, KindNotFound
	case errors.Is(err, runner.ErrInvalidMode):
		return http.StatusBadRequest, KindRequest
	}

	kind := scripterr.KindOf(err)
	switch kind {
	case scripterr.KindArgument, scripterr.KindCompile:
		return http.StatusBadRequest, string(kind)
	case scripterr.KindMisuse:
		return http.StatusConflict, string(kind)
	case scripterr.KindRuntime:
		return http.StatusUnprocessableEntity, string(kind)
	}
	return http.StatusInternalServerError, string(scripterr.KindInternal)
}

func respondError(c *gin.Context, err error) {
	status, kind := StatusOf(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Kind: kind})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg, Kind: KindRequest})
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func validRequest(c *gin.Context, code, filename string, sandbox map[string]any) bool {
	if err := utils.ValidateRequest(code, filename, sandbox); err != nil {
		badRequest(c, err.Error())
		return false
	}
	return true
}

func contextID(c *gin.Context) (id.ContextID, bool) {
	raw := c.Param("id")
	if !id.HasPrefix(raw, id.ContextPrefix) {
		badRequest(c, "invalid context id: "+raw)
		return "", false
	}
	return id.ContextID(raw), true
}

func scriptID(c *gin.Context) (id.ScriptID, bool) {
	raw := c.Param("id")
	if !id.HasPrefix(raw, id.ScriptPrefix) {
		badRequest(c, "invalid script id: "+raw)
		return "", false
	}
	return id.ScriptID(raw), true
}
