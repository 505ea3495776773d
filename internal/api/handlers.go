package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dqstack/veto-engine/internal/dqflags"
	"github.com/dqstack/veto-engine/internal/models"
	"github.com/dqstack/veto-engine/internal/project"
	"github.com/dqstack/veto-engine/internal/services"
	"github.com/dqstack/veto-engine/internal/store"
	"github.com/dqstack/veto-engine/pkg/segments"
)

// Handlers exposes the veto service over HTTP.
type Handlers struct {
	logger *slog.Logger
	svc    *services.VetoService
}

// NewHandlers constructs the HTTP handler set.
func NewHandlers(logger *slog.Logger, svc *services.VetoService) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{logger: logger, svc: svc}
}

// computeRequest is the POST /v1/veto/compute payload. Span is a
// [start, end) GPS pair; omitting it leaves results unclipped.
type computeRequest struct {
	Instruments []string          `json:"instruments"`
	Categories  []int             `json:"categories,omitempty"`
	Span        *segments.Segment `json:"span,omitempty"`
	Persist     bool              `json:"persist,omitempty"`
}

type runsResponse struct {
	Runs []project.RunRecord `json:"runs"`
}

type instrumentsResponse struct {
	Instruments []string `json:"instruments"`
}

type flagInfoResponse struct {
	Name            string `json:"name"`
	Category        int    `json:"category"`
	PadStart        int64  `json:"pad_start"`
	PadEnd          int64  `json:"pad_end"`
	ActiveSeconds   int64  `json:"active_seconds"`
	CoverageSeconds int64  `json:"coverage_seconds"`
}

type flagsResponse struct {
	Instrument string             `json:"instrument"`
	Flags      []flagInfoResponse `json:"flags"`
}

type definerResponse struct {
	Path       string    `json:"path,omitempty"`
	Digest     string    `json:"digest,omitempty"`
	Rows       int       `json:"rows"`
	Categories []int     `json:"categories,omitempty"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFromError maps domain sentinels onto HTTP statuses.
func statusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, dqflags.ErrBadCategory):
		return http.StatusBadRequest, "INVALID_CATEGORY"
	case errors.Is(err, dqflags.ErrUncategorized):
		return http.StatusUnprocessableEntity, "UNCATEGORIZED_FLAGS"
	case errors.Is(err, services.ErrUnknownInstrument):
		return http.StatusNotFound, "UNKNOWN_INSTRUMENT"
	case errors.Is(err, store.ErrRunNotFound):
		return http.StatusNotFound, "RUN_NOT_FOUND"
	case errors.Is(err, services.ErrCorpusNotReady):
		return http.StatusServiceUnavailable, "CORPUS_NOT_READY"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func (h *Handlers) renderError(c *gin.Context, err error) {
	status, code := statusFromError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", slog.String("path", c.Request.URL.Path), slog.Any("error", err))
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// HandleCompute handles POST /v1/veto/compute.
func (h *Handlers) HandleCompute(c *gin.Context) {
	var req computeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Code: "INVALID_REQUEST"})
		return
	}
	if len(req.Instruments) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "at least one instrument required", Code: "INVALID_REQUEST"})
		return
	}

	domainReq := models.ComputeRequest{
		Instruments: req.Instruments,
		Categories:  req.Categories,
		Persist:     req.Persist,
	}
	if req.Span != nil {
		domainReq.Span = *req.Span
	}

	rec, err := h.svc.Compute(c.Request.Context(), domainReq)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// HandleListRuns handles GET /v1/veto/runs.
func (h *Handlers) HandleListRuns(c *gin.Context) {
	req := models.ListRunsRequest{Instrument: c.Query("instrument")}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer", Code: "INVALID_REQUEST"})
			return
		}
		req.Limit = limit
	}

	runs, err := h.svc.ListRuns(c.Request.Context(), req)
	if err != nil {
		h.renderError(c, err)
		return
	}
	if runs == nil {
		runs = []project.RunRecord{}
	}
	c.JSON(http.StatusOK, runsResponse{Runs: runs})
}

// HandleGetRun handles GET /v1/veto/runs/:id.
func (h *Handlers) HandleGetRun(c *gin.Context) {
	rec, err := h.svc.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// HandleInstruments handles GET /v1/veto/instruments.
func (h *Handlers) HandleInstruments(c *gin.Context) {
	instruments := h.svc.Instruments()
	if instruments == nil {
		instruments = []string{}
	}
	c.JSON(http.StatusOK, instrumentsResponse{Instruments: instruments})
}

// HandleFlags handles GET /v1/veto/flags/:instrument.
func (h *Handlers) HandleFlags(c *gin.Context) {
	instrument := c.Param("instrument")
	infos, err := h.svc.Flags(instrument)
	if err != nil {
		h.renderError(c, err)
		return
	}
	flags := make([]flagInfoResponse, 0, len(infos))
	for _, info := range infos {
		flags = append(flags, flagInfoResponse{
			Name:            info.Name,
			Category:        info.Category,
			PadStart:        info.PadStart,
			PadEnd:          info.PadEnd,
			ActiveSeconds:   info.ActiveSeconds,
			CoverageSeconds: info.CoverageSeconds,
		})
	}
	c.JSON(http.StatusOK, flagsResponse{Instrument: instrument, Flags: flags})
}

// HandleDefiner handles GET /v1/veto/definer.
func (h *Handlers) HandleDefiner(c *gin.Context) {
	info, err := h.svc.DefinerInfo()
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, definerResponse{
		Path:       info.Path,
		Digest:     info.Digest,
		Rows:       info.Rows,
		Categories: info.Categories,
		LoadedAt:   info.LoadedAt,
	})
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleReady handles GET /readyz. The service is ready once a corpus
// has been installed.
func (h *Handlers) HandleReady(c *gin.Context) {
	corpus := h.svc.Corpus()
	if corpus == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "corpus not loaded", Code: "CORPUS_NOT_READY"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"instruments": corpus.Instruments(),
		"loaded_at":   corpus.LoadedAt(),
	})
}
