package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clonehub/internal/apperr"
)

const (
	CodeOK                  = 0
	CodeBadRequest          = 40000
	CodeUnauthorized        = 40100
	CodeNotFound            = 40400
	CodeInternalServer      = 50000
	CodeUpstream            = 50200
	CodeUpstreamUnavailable = 50300
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Code:    CodeOK,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// Fail writes err using its apperr classification. Internal details never
// reach the body.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	Error(c, apperr.HTTPStatus(err), codeFor(apperr.KindOf(err)), apperr.PublicMessage(err))
}

func codeFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return CodeBadRequest
	case apperr.KindAuthentication:
		return CodeUnauthorized
	case apperr.KindNotFound:
		return CodeNotFound
	case apperr.KindUpstream:
		return CodeUpstream
	case apperr.KindUpstreamUnavailable:
		return CodeUpstreamUnavailable
	default:
		return CodeInternalServer
	}
}
