package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"transit-synth/internal/domain"
)

const problemContentType = "application/problem+json"

// Problem is an RFC 7807 error body.
type Problem struct {
	Type   string              `json:"type"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors []domain.FieldError `json:"errors,omitempty"`
}

// unavailableResponse is returned when upstream failed and nothing could be served.
type unavailableResponse struct {
	Data     any    `json:"data"`
	Degraded bool   `json:"degraded"`
	Error    string `json:"error"`
}

func writeProblem(c *gin.Context, p Problem) {
	c.Header("Content-Type", problemContentType)
	c.AbortWithStatusJSON(p.Status, p)
}

// writeBadRequest reports a body that could not be decoded.
func writeBadRequest(c *gin.Context, err error) {
	writeProblem(c, Problem{
		Type:   "about:blank",
		Title:  "Malformed request body",
		Status: http.StatusBadRequest,
		Detail: err.Error(),
	})
}

// writeError maps the error taxonomy onto HTTP responses.
func (s *Server) writeError(c *gin.Context, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeProblem(c, Problem{
			Type:   "about:blank",
			Title:  "Invalid input",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
			Errors: ve.Fields,
		})

	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(c, Problem{
			Type:   "about:blank",
			Title:  "Invalid input",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
		})

	case domain.IsUpstream(err):
		s.logger.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, unavailableResponse{
			Degraded: true,
			Error:    err.Error(),
		})

	default:
		s.logger.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		writeProblem(c, Problem{
			Type:   "about:blank",
			Title:  "Internal error",
			Status: http.StatusInternalServerError,
		})
	}
}
