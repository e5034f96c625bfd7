package errors

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ProblemDetails represents an RFC 7807 compliant error response.
type ProblemDetails struct {
	// Type is a URI reference that identifies the problem type
	Type string `json:"type"`
	// Title is a short, human-readable summary of the problem type
	Title string `json:"title"`
	// Status is the HTTP status code
	Status int `json:"status"`
	// Detail is a human-readable explanation specific to this occurrence
	Detail string `json:"detail"`
	// Instance is a URI reference that identifies the specific occurrence
	Instance string `json:"instance,omitempty"`
	// Code is the machine-readable domain error code
	Code Code `json:"code,omitempty"`
	// Timestamp when the error occurred
	Timestamp time.Time `json:"timestamp"`
}

const typeBase = "https://api.coverlane.io/errors/"

// Error implements the error interface.
func (p *ProblemDetails) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

func httpStatus(code Code) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicateRegistration, CodeDuplicatePool, CodeDuplicatePolicy, CodeDuplicateClaim:
		return http.StatusConflict
	case CodeClaimAlreadyResolved, CodePolicyAlreadyClaimed:
		return http.StatusConflict
	case CodeInsufficientFunds, CodeInsufficientPoolFunds:
		return http.StatusUnprocessableEntity
	case CodeInternal:
		return http.StatusInternalServerError
	default:
		// remaining codes are out-of-range or stale-state input
		return http.StatusBadRequest
	}
}

func title(code Code) string {
	switch code {
	case CodeUnauthorized:
		return "Unauthorized"
	case CodeNotFound:
		return "Not Found"
	case CodeInternal:
		return "Internal Server Error"
	case CodeInsufficientFunds:
		return "Insufficient Funds"
	case CodeInsufficientPoolFunds:
		return "Insufficient Pool Funds"
	case CodeArithmeticOverflow:
		return "Arithmetic Overflow"
	default:
		return "Request Rejected"
	}
}

// ToProblemDetails converts a domain error to its RFC 7807 form.
func ToProblemDetails(err error, instance string) *ProblemDetails {
	code := CodeOf(err)
	detail := err.Error()
	if e, ok := err.(*Error); ok {
		detail = e.Message
	}
	return &ProblemDetails{
		Type:      typeBase + string(code),
		Title:     title(code),
		Status:    httpStatus(code),
		Detail:    detail,
		Instance:  instance,
		Code:      code,
		Timestamp: time.Now().UTC(),
	}
}

// Handler is a gin middleware that renders any error recorded on the context
// as an RFC 7807 response.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		pd := ToProblemDetails(c.Errors.Last().Err, c.Request.URL.Path)
		c.Header("Content-Type", "application/problem+json")
		c.JSON(pd.Status, pd)
		c.Abort()
	}
}

// Abort renders err immediately on the context.
func Abort(c *gin.Context, err error) {
	pd := ToProblemDetails(err, c.Request.URL.Path)
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(pd.Status, pd)
}
