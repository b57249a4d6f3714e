package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"careerforge/internal/api/middleware"
	"careerforge/internal/database"
)

var errInvalidJobID = errors.New("invalid job id")

// JobHandler 负责职位的发布、维护与公开检索。
type JobHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewJobHandler 构造职位处理器。
func NewJobHandler(db *gorm.DB, logger *slog.Logger) *JobHandler {
	return &JobHandler{db: db, logger: logger}
}

type jobRequest struct {
	Title        string  `json:"title" binding:"required,max=255"`
	Company      string  `json:"company" binding:"required,max=255"`
	Location     string  `json:"location" binding:"required,max=255"`
	Description  string  `json:"description" binding:"required"`
	Requirements *string `json:"requirements"`
	Type         string  `json:"type" binding:"required,oneof=full-time part-time contract internship"`
	SalaryRange  *string `json:"salary_range"`
	Status       string  `json:"status" binding:"omitempty,oneof=Active Closed Draft"`
}

type jobResponse struct {
	ID           uint      `json:"id"`
	RecruiterID  uint      `json:"recruiter_id"`
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	Location     string    `json:"location"`
	Description  string    `json:"description"`
	Requirements *string   `json:"requirements,omitempty"`
	Type         string    `json:"type"`
	SalaryRange  *string   `json:"salary_range,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newJobResponse(job database.JobListing) jobResponse {
	return jobResponse{
		ID:           job.ID,
		RecruiterID:  job.RecruiterID,
		Title:        job.Title,
		Company:      job.Company,
		Location:     job.Location,
		Description:  job.Description,
		Requirements: job.Requirements,
		Type:         job.Type,
		SalaryRange:  job.SalaryRange,
		Status:       job.Status,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

// CreateJob 发布一个新职位，归属当前招聘方。
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	status := req.Status
	if status == "" {
		status = database.JobStatusActive
	}

	job := database.JobListing{
		RecruiterID:  userID,
		Title:        req.Title,
		Company:      req.Company,
		Location:     req.Location,
		Description:  req.Description,
		Requirements: req.Requirements,
		Type:         req.Type,
		SalaryRange:  req.SalaryRange,
		Status:       status,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&job).Error; err != nil {
		h.loggerFromContext(c).Error("create job failed", slog.Any("error", err))
		Internal(c, "failed to create job")
		return
	}

	c.JSON(http.StatusCreated, newJobResponse(job))
}

// ListJobs 是公开的职位检索入口，只返回 Active 职位，
// 支持关键字、地点与类型过滤。
func (h *JobHandler) ListJobs(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).
		Model(&database.JobListing{}).
		Where("status = ?", database.JobStatusActive)

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("title LIKE ? OR company LIKE ? OR description LIKE ?", pattern, pattern, pattern)
	}
	if location := strings.TrimSpace(c.Query("location")); location != "" {
		query = query.Where("location LIKE ?", "%"+location+"%")
	}
	if jobType := strings.TrimSpace(c.Query("type")); jobType != "" {
		query = query.Where("type = ?", jobType)
	}

	var jobs []database.JobListing
	if err := query.Order("created_at DESC").Find(&jobs).Error; err != nil {
		Internal(c, "failed to list jobs")
		return
	}

	items := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, newJobResponse(job))
	}
	c.JSON(http.StatusOK, items)
}

// ListMyJobs 返回当前招聘方发布的全部职位，含非 Active 状态。
func (h *JobHandler) ListMyJobs(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var jobs []database.JobListing
	if err := h.db.WithContext(c.Request.Context()).
		Where("recruiter_id = ?", userID).
		Order("created_at DESC").
		Find(&jobs).Error; err != nil {
		Internal(c, "failed to list jobs")
		return
	}

	items := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, newJobResponse(job))
	}
	c.JSON(http.StatusOK, items)
}

// GetJob 返回单个职位详情。非 Active 职位只有发布者可见。
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.getJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.replyJobLookupError(c, err)
		return
	}

	if job.Status != database.JobStatusActive {
		userID, ok := userIDFromContext(c)
		if !ok || job.RecruiterID != userID {
			NotFound(c, "job not found")
			return
		}
	}

	c.JSON(http.StatusOK, newJobResponse(*job))
}

// UpdateJob 覆盖职位内容，仅发布者可操作。
func (h *JobHandler) UpdateJob(c *gin.Context) {
	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	job, err := h.getJob(ctx, c.Param("id"))
	if err != nil {
		h.replyJobLookupError(c, err)
		return
	}
	if job.RecruiterID != userID {
		Forbidden(c, "not the owner of this job")
		return
	}

	updates := map[string]any{
		"title":        req.Title,
		"company":      req.Company,
		"location":     req.Location,
		"description":  req.Description,
		"requirements": req.Requirements,
		"type":         req.Type,
		"salary_range": req.SalaryRange,
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}

	if err := h.db.WithContext(ctx).Model(job).Updates(updates).Error; err != nil {
		Internal(c, "failed to update job")
		return
	}
	if err := h.db.WithContext(ctx).First(job, job.ID).Error; err != nil {
		Internal(c, "failed to reload job")
		return
	}

	c.JSON(http.StatusOK, newJobResponse(*job))
}

// DeleteJob 下架并删除职位，仅发布者可操作。
func (h *JobHandler) DeleteJob(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	job, err := h.getJob(ctx, c.Param("id"))
	if err != nil {
		h.replyJobLookupError(c, err)
		return
	}
	if job.RecruiterID != userID {
		Forbidden(c, "not the owner of this job")
		return
	}

	if err := h.db.WithContext(ctx).Delete(&database.JobListing{}, job.ID).Error; err != nil {
		Internal(c, "failed to delete job")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *JobHandler) getJob(ctx context.Context, idParam string) (*database.JobListing, error) {
	jobID, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil {
		return nil, errInvalidJobID
	}

	var job database.JobListing
	if err := h.db.WithContext(ctx).First(&job, uint(jobID)).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (h *JobHandler) replyJobLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidJobID):
		BadRequest(c, "invalid job id")
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "job not found")
	default:
		Internal(c, "failed to query job")
	}
}

func (h *JobHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
