// Package httpapi exposes the attendance core over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"qrattend/internal/attendance"
	"qrattend/internal/auth"
	"qrattend/internal/qr"
	"qrattend/internal/queue"
)

// Sweeper runs one reconciliation pass.
type Sweeper interface {
	Sweep(ctx context.Context, asOf time.Time) (attendance.SweepResult, error)
}

// Handler serves the attendance routes.
type Handler struct {
	svc     *attendance.Service
	sweeper Sweeper
	jobs    queue.Queue // nil runs sweeps inline
	now     func() time.Time
	qrSize  int
}

// NewHandler wires the handlers. When jobs is non-nil, operator sweeps are queued for the worker.
func NewHandler(svc *attendance.Service, sweeper Sweeper, jobs queue.Queue) *Handler {
	return &Handler{svc: svc, sweeper: sweeper, jobs: jobs, now: time.Now, qrSize: qr.DefaultSize}
}

type scanRequest struct {
	Token       string                  `json:"opaque_token" binding:"required"`
	Geolocation *attendance.Geolocation `json:"geolocation"`
}

func (h *Handler) scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.svc.RecordScan(c.Request.Context(), auth.TeacherID(c), req.Token, req.Geolocation)
	if errors.Is(err, attendance.ErrAlreadyMarked) {
		c.JSON(http.StatusConflict, gin.H{
			"code":          CodeAlreadyMarked,
			"error":         attendance.ErrAlreadyMarked.Error(),
			"record":        res.Record,
			"status":        res.Status,
			"delta_minutes": res.DeltaMinutes,
			"slot_start":    res.SlotStart,
		})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type sessionView struct {
	attendance.Session
	QRCode string `json:"qr_png_base64,omitempty"`
}

func (h *Handler) today(c *gin.Context) {
	today, err := h.svc.TodaySessions(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]sessionView, 0, len(today.Sessions))
	for _, s := range today.Sessions {
		v := sessionView{Session: s}
		if s.Token != "" {
			png, err := qr.Base64PNG(s.Token, h.qrSize)
			if err != nil {
				writeError(c, err)
				return
			}
			v.QRCode = png
		}
		views = append(views, v)
	}
	c.JSON(http.StatusOK, gin.H{
		"date":     today.Date,
		"weekday":  today.Weekday,
		"term":     today.Term,
		"sessions": views,
	})
}

type issueRequest struct {
	SlotID      int64  `json:"slot_id" binding:"required,gt=0"`
	SessionDate string `json:"session_date" binding:"required"`
}

func (h *Handler) issueToken(c *gin.Context) {
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	issued, err := h.svc.IssueFor(c.Request.Context(), req.SlotID, req.SessionDate)
	if err != nil {
		writeError(c, err)
		return
	}
	png, err := qr.Base64PNG(issued.Token, h.qrSize)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":         issued.Token,
		"qr_png_base64": png,
		"session_date":  issued.SessionDate,
		"valid_until":   issued.ExpiresAt,
		"slot": gin.H{
			"id":      issued.Slot.ID,
			"subject": issued.Slot.Subject,
			"group":   issued.Slot.Group,
			"room":    issued.Slot.Room,
			"weekday": issued.Slot.Weekday,
			"start":   issued.Slot.Start.String(),
			"end":     issued.Slot.End.String(),
		},
	})
}

// filterFromQuery reads from, to, status and limit; admin routes also accept teacher_id.
func filterFromQuery(c *gin.Context, withTeacher bool) (attendance.Filter, bool) {
	f := attendance.Filter{
		From:   c.Query("from"),
		To:     c.Query("to"),
		Status: attendance.Status(c.Query("status")),
		Limit:  200,
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			badRequest(c, "limit must be a positive integer")
			return f, false
		}
		f.Limit = n
	}
	if withTeacher {
		if v := c.Query("teacher_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil || id <= 0 {
				badRequest(c, "teacher_id must be a positive integer")
				return f, false
			}
			f.TeacherID = id
		}
	}
	return f, true
}

func (h *Handler) mine(c *gin.Context) {
	f, ok := filterFromQuery(c, false)
	if !ok {
		return
	}
	recs, stats, err := h.svc.History(c.Request.Context(), auth.TeacherID(c), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs, "stats": stats})
}

func (h *Handler) report(c *gin.Context) {
	f, ok := filterFromQuery(c, true)
	if !ok {
		return
	}
	recs, stats, err := h.svc.Report(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs, "stats": stats})
}

type sweepRequest struct {
	AsOf *time.Time `json:"as_of"`
}

func (h *Handler) sweep(c *gin.Context) {
	var req sweepRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "as_of must be an RFC 3339 timestamp")
		return
	}
	asOf := h.now()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	if h.jobs != nil {
		msg, err := queue.NewSweepMessage(queue.SweepRequest{AsOf: asOf, RequestedBy: auth.TeacherID(c)})
		if err == nil {
			err = h.jobs.Publish(c.Request.Context(), msg)
		}
		if err != nil {
			writeError(c, err)
			return
		}
		log.Printf("[sweep] queued as_of=%s by=%d", asOf.Format(time.RFC3339), auth.TeacherID(c))
		c.JSON(http.StatusAccepted, gin.H{"queued": true, "as_of": asOf})
		return
	}

	res, err := h.sweeper.Sweep(c.Request.Context(), asOf)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
