package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/sov-billing/internal/application/service"
	"github.com/garyjia/sov-billing/internal/domain/amount"
	"github.com/garyjia/sov-billing/internal/domain/entity"
	"github.com/garyjia/sov-billing/internal/domain/sovimport"
)

const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
	actorKey        = "actor"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	sov            service.SOVService
	draws          service.DrawService
	billing        service.BillingService
	health         HealthFunc
	maxUploadBytes int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, health HealthFunc, maxUploadBytes int64, logger Logger) *Handlers {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultServerConfig().MaxUploadBytes
	}
	return &Handlers{
		sov:            services.SOV,
		draws:          services.Draw,
		billing:        services.Billing,
		health:         health,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
	Reasons []string    `json:"reasons,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp"`
	Components any    `json:"components,omitempty"`
}

// ApproveSOVRequest is the body of POST .../sov/approve
type ApproveSOVRequest struct {
	Version int64 `json:"version"`
	Unsaved bool  `json:"unsaved"`
}

// ValidateDistributionRequest is the body of POST .../distributions/validate
type ValidateDistributionRequest struct {
	Amount decimal.Decimal            `json:"amount"`
	Lines  []entity.DistributionLine `json:"lines"`
}

// requireActor resolves the caller from the identity headers set by the
// upstream auth layer
func requireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerActorID))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Code:    "unauthenticated",
				Error:   "missing " + headerActorID + " header",
			})
			return
		}
		c.Set(actorKey, entity.Actor{ID: id, Role: strings.TrimSpace(c.GetHeader(headerActorRole))})
		c.Next()
	}
}

func actorFrom(c *gin.Context) entity.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(entity.Actor); ok {
			return a
		}
	}
	return entity.Actor{}
}

func jobFrom(c *gin.Context) entity.JobKey {
	return entity.JobKey{CompanyID: c.Param("company"), JobID: c.Param("job")}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{Status: "healthy", Timestamp: time.Now().UTC().Format(time.RFC3339)}
	status := http.StatusOK
	if h.health != nil {
		ok, detail := h.health()
		resp.Components = detail
		if !ok {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, Response{Success: status == http.StatusOK, Data: resp})
}

// GetSOV handles GET /api/v1/companies/:company/jobs/:job/sov
func (h *Handlers) GetSOV(c *gin.Context) {
	view, err := h.sov.Load(c.Request.Context(), jobFrom(c))
	if err != nil {
		h.writeError(c, "Load SOV", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: view})
}

// SaveSOV handles PUT /api/v1/companies/:company/jobs/:job/sov
func (h *Handlers) SaveSOV(c *gin.Context) {
	var req service.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	view, err := h.sov.Save(c.Request.Context(), actorFrom(c), jobFrom(c), req)
	if err != nil {
		h.writeError(c, "Save SOV", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: view})
}

// ApproveSOV handles POST /api/v1/companies/:company/jobs/:job/sov/approve
func (h *Handlers) ApproveSOV(c *gin.Context) {
	var req ApproveSOVRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	view, err := h.sov.Approve(c.Request.Context(), actorFrom(c), jobFrom(c), service.ApproveRequest{
		Version: req.Version,
		Unsaved: req.Unsaved,
	})
	if err != nil {
		h.writeError(c, "Approve SOV", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: view})
}

// PreviewImport handles POST /api/v1/companies/:company/jobs/:job/sov/import/preview
func (h *Handlers) PreviewImport(c *gin.Context) {
	req, ok := h.importRequest(c)
	if !ok {
		return
	}
	preview, err := h.sov.PreviewImport(c.Request.Context(), jobFrom(c), req)
	if err != nil {
		h.writeError(c, "Preview SOV import", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: preview})
}

// ImportSOV handles POST /api/v1/companies/:company/jobs/:job/sov/import
func (h *Handlers) ImportSOV(c *gin.Context) {
	req, ok := h.importRequest(c)
	if !ok {
		return
	}
	view, err := h.sov.Import(c.Request.Context(), actorFrom(c), jobFrom(c), req)
	if err != nil {
		h.writeError(c, "Import SOV", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: view})
}

// importRequest reads the multipart upload: a "file" part plus optional
// "mode", "version" and JSON "columns" fields
func (h *Handlers) importRequest(c *gin.Context) (service.ImportRequest, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "a file upload is required")
		return service.ImportRequest{}, false
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "unreadable upload")
		return service.ImportRequest{}, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		badRequest(c, "unreadable upload")
		return service.ImportRequest{}, false
	}

	req := service.ImportRequest{
		FileName: fh.Filename,
		Data:     data,
		Mode:     sovimport.Mode(c.DefaultPostForm("mode", string(sovimport.ModeAppend))),
	}
	if v := c.PostForm("version"); v != "" {
		if req.Version, err = strconv.ParseInt(v, 10, 64); err != nil {
			badRequest(c, "version must be an integer")
			return service.ImportRequest{}, false
		}
	}
	if cols := c.PostForm("columns"); cols != "" {
		var m sovimport.ColumnMap
		if err := json.Unmarshal([]byte(cols), &m); err != nil {
			badRequest(c, "columns must be a JSON column map")
			return service.ImportRequest{}, false
		}
		req.Columns = &m
	}
	return req, true
}

// ExportSOV handles GET /api/v1/companies/:company/jobs/:job/sov/export
func (h *Handlers) ExportSOV(c *gin.Context) {
	job := jobFrom(c)
	data, err := h.sov.Export(c.Request.Context(), job)
	if err != nil {
		h.writeError(c, "Export SOV", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-sov.xlsx"`, job.JobID))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// History handles GET /api/v1/companies/:company/jobs/:job/history
func (h *Handlers) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}
	events, err := h.sov.History(c.Request.Context(), jobFrom(c), limit)
	if err != nil {
		h.writeError(c, "List history", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: events})
}

// ListDraws handles GET /api/v1/companies/:company/jobs/:job/draws
func (h *Handlers) ListDraws(c *gin.Context) {
	draws, err := h.draws.List(c.Request.Context(), jobFrom(c))
	if err != nil {
		h.writeError(c, "List draws", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: draws})
}

// NextDraw handles GET /api/v1/companies/:company/jobs/:job/draws/next
func (h *Handlers) NextDraw(c *gin.Context) {
	unsaved, _ := strconv.ParseBool(c.DefaultQuery("unsaved", "false"))
	next, err := h.draws.NextDraft(c.Request.Context(), jobFrom(c), unsaved)
	if err != nil {
		h.writeError(c, "Next draw", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: next})
}

// CreateDraw handles POST /api/v1/companies/:company/jobs/:job/draws
func (h *Handlers) CreateDraw(c *gin.Context) {
	var req service.CreateDrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	created, err := h.draws.Create(c.Request.Context(), actorFrom(c), jobFrom(c), req)
	if err != nil {
		h.writeError(c, "Create draw", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: created})
}

// CodingPlan handles GET /api/v1/companies/:company/commitments/:id/coding-plan?amount=
func (h *Handlers) CodingPlan(c *gin.Context) {
	billAmount, ok := queryAmount(c, "amount")
	if !ok {
		return
	}
	plan, err := h.billing.PlanCoding(c.Request.Context(), c.Param("company"), c.Param("id"), billAmount)
	if err != nil {
		h.writeError(c, "Plan coding", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: plan})
}

// CommitmentSummary handles GET /api/v1/companies/:company/commitments/:id/summary
func (h *Handlers) CommitmentSummary(c *gin.Context) {
	candidate, ok := queryAmount(c, "amount")
	if !ok {
		return
	}
	sum, err := h.billing.Summary(c.Request.Context(), c.Param("company"), c.Param("id"), c.Query("exclude_bill"), candidate)
	if err != nil {
		h.writeError(c, "Commitment summary", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: sum})
}

// ValidateDistribution handles POST /api/v1/companies/:company/distributions/validate
func (h *Handlers) ValidateDistribution(c *gin.Context) {
	var req ValidateDistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: h.billing.ValidateDistribution(req.Lines, req.Amount)})
}

// SubmitBill handles POST /api/v1/companies/:company/bills
func (h *Handlers) SubmitBill(c *gin.Context) {
	var req service.BillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	bill, err := h.billing.SubmitBill(c.Request.Context(), actorFrom(c), c.Param("company"), req)
	if err != nil {
		h.writeError(c, "Submit bill", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: bill})
}

// queryAmount parses an optional money query parameter. Blank means zero
func queryAmount(c *gin.Context, name string) (decimal.Decimal, bool) {
	raw := c.Query(name)
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, true
	}
	v, err := amount.Parse(raw)
	if err != nil {
		badRequest(c, fmt.Sprintf("%s: %v", name, err))
		return decimal.Zero, false
	}
	return v, true
}
