package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"careerforge/internal/api/middleware"
	"careerforge/internal/application"
	"careerforge/internal/database"
)

// ApplicationHandler 负责投递与招聘方的候选人管理。
type ApplicationHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewApplicationHandler 构造投递处理器。
func NewApplicationHandler(db *gorm.DB, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{db: db, logger: logger}
}

type applyRequest struct {
	JobID       uint    `json:"job_id" binding:"required"`
	CVID        uint    `json:"cv_id" binding:"required"`
	CoverLetter *string `json:"cover_letter"`
}

type applicationResponse struct {
	ID          uint      `json:"id"`
	JobID       uint      `json:"job_id"`
	CVID        uint      `json:"cv_id"`
	Status      string    `json:"status"`
	CoverLetter *string   `json:"cover_letter,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newApplicationResponse(app database.JobApplication) applicationResponse {
	return applicationResponse{
		ID:          app.ID,
		JobID:       app.JobID,
		CVID:        app.CVID,
		Status:      app.Status,
		CoverLetter: app.CoverLetter,
		CreatedAt:   app.CreatedAt,
		UpdatedAt:   app.UpdatedAt,
	}
}

// Apply 以一份自己的 CV 投递一个 Active 职位。
// 重复投递由 (job_id, user_id) 唯一索引裁决，返回 409。
func (h *ApplicationHandler) Apply(c *gin.Context) {
	var req applyRequest
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
	logger := h.loggerFromContext(c).With(
		slog.Uint64("user_id", uint64(userID)),
		slog.Uint64("job_id", uint64(req.JobID)),
	)

	var job database.JobListing
	if err := h.db.WithContext(ctx).First(&job, req.JobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "job not found")
			return
		}
		Internal(c, "failed to query job")
		return
	}
	if job.Status != database.JobStatusActive {
		BadRequest(c, "job is not accepting applications")
		return
	}

	var cvCount int64
	if err := h.db.WithContext(ctx).
		Model(&database.CV{}).
		Where("id = ? AND user_id = ?", req.CVID, userID).
		Count(&cvCount).Error; err != nil {
		Internal(c, "failed to verify cv")
		return
	}
	if cvCount == 0 {
		NotFound(c, "cv not found")
		return
	}

	app := database.JobApplication{
		JobID:       req.JobID,
		UserID:      userID,
		CVID:        req.CVID,
		Status:      string(application.StatusApplied),
		CoverLetter: req.CoverLetter,
	}

	if err := h.db.WithContext(ctx).Create(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.Info("apply conflict: already applied")
			Conflict(c, "already applied to this job")
			return
		}
		logger.Error("create application failed", slog.Any("error", err))
		Internal(c, "failed to create application")
		return
	}

	logger.Info("application created", slog.Uint64("application_id", uint64(app.ID)))
	c.JSON(http.StatusCreated, newApplicationResponse(app))
}

type myApplicationItem struct {
	applicationResponse
	Job jobResponse `json:"job"`
}

// ListMine 返回当前求职者的全部投递记录及职位信息。
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var apps []database.JobApplication
	if err := h.db.WithContext(c.Request.Context()).
		Preload("Job").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&apps).Error; err != nil {
		Internal(c, "failed to list applications")
		return
	}

	items := make([]myApplicationItem, 0, len(apps))
	for _, app := range apps {
		items = append(items, myApplicationItem{
			applicationResponse: newApplicationResponse(app),
			Job:                 newJobResponse(app.Job),
		})
	}
	c.JSON(http.StatusOK, items)
}

type jobApplicationItem struct {
	applicationResponse
	ApplicantID   uint   `json:"applicant_id"`
	ApplicantName string `json:"applicant_name"`
	CVTitle       string `json:"cv_title"`
}

// ListForJob 返回某职位收到的全部投递，仅职位发布者可见。
func (h *ApplicationHandler) ListForJob(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	jobID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid job id")
		return
	}

	ctx := c.Request.Context()

	var job database.JobListing
	if err := h.db.WithContext(ctx).First(&job, uint(jobID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "job not found")
			return
		}
		Internal(c, "failed to query job")
		return
	}
	if job.RecruiterID != userID {
		Forbidden(c, "not the owner of this job")
		return
	}

	var apps []database.JobApplication
	if err := h.db.WithContext(ctx).
		Preload("CV").
		Where("job_id = ?", job.ID).
		Order("created_at ASC").
		Find(&apps).Error; err != nil {
		Internal(c, "failed to list applications")
		return
	}

	applicantIDs := make([]uint, 0, len(apps))
	for _, app := range apps {
		applicantIDs = append(applicantIDs, app.UserID)
	}

	names := map[uint]string{}
	if len(applicantIDs) > 0 {
		var users []database.User
		if err := h.db.WithContext(ctx).
			Select("id", "name").
			Where("id IN ?", applicantIDs).
			Find(&users).Error; err != nil {
			Internal(c, "failed to load applicants")
			return
		}
		for _, u := range users {
			names[u.ID] = u.Name
		}
	}

	items := make([]jobApplicationItem, 0, len(apps))
	for _, app := range apps {
		items = append(items, jobApplicationItem{
			applicationResponse: newApplicationResponse(app),
			ApplicantID:         app.UserID,
			ApplicantName:       names[app.UserID],
			CVTitle:             app.CV.Title,
		})
	}
	c.JSON(http.StatusOK, items)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus 推进投递状态，非法流转返回 400。
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	appID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid application id")
		return
	}

	target, err := application.ParseStatus(req.Status)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.Uint64("application_id", appID))

	var app database.JobApplication
	if err := h.db.WithContext(ctx).Preload("Job").First(&app, uint(appID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "application not found")
			return
		}
		Internal(c, "failed to query application")
		return
	}

	if app.Job.RecruiterID != userID {
		Forbidden(c, "not the owner of this job")
		return
	}

	current := application.Status(app.Status)
	if !application.IsTransitionAllowed(current, target) {
		BadRequest(c, "invalid status transition from "+app.Status+" to "+req.Status)
		return
	}

	if err := h.db.WithContext(ctx).Model(&app).Update("status", string(target)).Error; err != nil {
		logger.Error("update application status failed", slog.Any("error", err))
		Internal(c, "failed to update status")
		return
	}

	logger.Info("application status updated",
		slog.String("from", string(current)),
		slog.String("to", string(target)),
	)
	app.Status = string(target)
	c.JSON(http.StatusOK, newApplicationResponse(app))
}

func (h *ApplicationHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
