package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"qrattend/internal/attendance"
	"qrattend/internal/auth"
	"qrattend/internal/schedule"
	"qrattend/internal/token"
)

// Error codes clients branch on.
const (
	CodeInvalidToken    = "INVALID_TOKEN"
	CodeExpiredToken    = "EXPIRED_TOKEN"
	CodeSlotNotFound    = "SLOT_NOT_FOUND"
	CodeNotAssigned     = "NOT_ASSIGNED"
	CodeWrongDate       = "WRONG_DATE"
	CodeAlreadyMarked   = "ALREADY_MARKED"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeInternal        = "INTERNAL"
)

var kinds = []struct {
	err    error
	status int
	code   string
}{
	{token.ErrInvalidToken, http.StatusBadRequest, CodeInvalidToken},
	{token.ErrExpiredToken, http.StatusGone, CodeExpiredToken},
	{schedule.ErrSlotNotFound, http.StatusNotFound, CodeSlotNotFound},
	{attendance.ErrNotAssigned, http.StatusForbidden, CodeNotAssigned},
	{attendance.ErrWrongDate, http.StatusUnprocessableEntity, CodeWrongDate},
	{auth.ErrUnauthenticated, http.StatusUnauthorized, CodeUnauthenticated},
	{attendance.ErrInvalidArgument, http.StatusBadRequest, CodeInvalidArgument},
}

// writeError maps a domain error to its status and code. Unknown errors are logged and hidden.
func writeError(c *gin.Context, err error) {
	var marked *attendance.AlreadyMarkedError
	if errors.As(err, &marked) {
		c.JSON(http.StatusConflict, gin.H{
			"code":   CodeAlreadyMarked,
			"error":  attendance.ErrAlreadyMarked.Error(),
			"record": marked.Record,
			"status": marked.Record.Status,
		})
		return
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			c.JSON(k.status, gin.H{"code": k.code, "error": err.Error()})
			return
		}
	}
	log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"code": CodeInternal, "error": "internal error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": CodeInvalidArgument, "error": msg})
}
