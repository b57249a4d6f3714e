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
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"careerforge/internal/api/middleware"
	"careerforge/internal/cv"
	"careerforge/internal/database"
	"careerforge/internal/tasks"
)

var errInvalidCVID = errors.New("invalid cv id")

// taskEnqueuer 抽象 asynq 客户端，便于测试注入。
type taskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// objectStore 抽象对象存储的下载链接与清理能力。
type objectStore interface {
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// CVHandler 负责处理与 CV 相关的 API 请求。
type CVHandler struct {
	db          *gorm.DB
	cvService   *cv.Service
	asynqClient taskEnqueuer
	storage     objectStore
	logger      *slog.Logger
}

// NewCVHandler 构造 CVHandler。
func NewCVHandler(db *gorm.DB, cvService *cv.Service, asynqClient taskEnqueuer, store objectStore, logger *slog.Logger) *CVHandler {
	return &CVHandler{
		db:          db,
		cvService:   cvService,
		asynqClient: asynqClient,
		storage:     store,
		logger:      logger,
	}
}

type cvListItem struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Template  string    `json:"template"`
	Status    string    `json:"status"`
	IsPublic  bool      `json:"is_public"`
	PdfUrl    string    `json:"pdf_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type cvResponse struct {
	ID            uint                  `json:"id"`
	Title         string                `json:"title"`
	Template      string                `json:"template"`
	Status        string                `json:"status"`
	IsPublic      bool                  `json:"is_public"`
	PdfUrl        string                `json:"pdf_url,omitempty"`
	AISuggestions datatypes.JSON        `json:"ai_suggestions,omitempty"`
	PersonalInfo  database.PersonalInfo `json:"personal_info"`
	Categories    []database.Category   `json:"categories"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

func newCVResponse(model database.CV) cvResponse {
	categories := model.Categories
	if categories == nil {
		categories = []database.Category{}
	}
	return cvResponse{
		ID:            model.ID,
		Title:         model.Title,
		Template:      model.Template,
		Status:        model.Status,
		IsPublic:      model.IsPublic,
		PdfUrl:        model.PdfUrl,
		AISuggestions: model.AISuggestions,
		PersonalInfo:  model.PersonalInfo,
		Categories:    categories,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

// CreateCV 在一个事务内保存 CV 全树，随后把 PDF 渲染任务入队。
// 入队失败不回滚已提交的数据，客户端可稍后通过 generate 接口重试。
func (h *CVHandler) CreateCV(c *gin.Context) {
	var req cv.CreateInput
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
	logger := h.loggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	created, err := h.cvService.Create(ctx, userID, req)
	if err != nil {
		if errors.Is(err, cv.ErrCategoryNotFound) {
			BadRequest(c, "unknown category id")
			return
		}
		logger.Error("create cv failed", slog.Any("error", err))
		Internal(c, "failed to create cv")
		return
	}

	h.enqueuePDFTask(c, created.ID, logger)

	logger.Info("cv created", slog.Uint64("cv_id", uint64(created.ID)))
	c.JSON(http.StatusCreated, newCVResponse(*created))
}

// ListCVs 列出用户全部 CV。
func (h *CVHandler) ListCVs(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var models []database.CV
	if err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		Internal(c, "failed to list cvs")
		return
	}

	items := make([]cvListItem, 0, len(models))
	for _, m := range models {
		items = append(items, cvListItem{
			ID:        m.ID,
			Title:     m.Title,
			Template:  m.Template,
			Status:    m.Status,
			IsPublic:  m.IsPublic,
			PdfUrl:    m.PdfUrl,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}

// GetCV 返回指定 ID 的 CV 及其完整子树。
func (h *CVHandler) GetCV(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	model, err := h.getCVForUser(c.Request.Context(), c.Param("id"), userID, true)
	if err != nil {
		h.replyCVLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCVResponse(*model))
}

// UpdateCV 更新 CV 的标量字段与类别关联。
func (h *CVHandler) UpdateCV(c *gin.Context) {
	var req cv.UpdateInput
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
	model, err := h.getCVForUser(ctx, c.Param("id"), userID, false)
	if err != nil {
		h.replyCVLookupError(c, err)
		return
	}

	if err := h.cvService.UpdateMeta(ctx, model.ID, req); err != nil {
		if errors.Is(err, cv.ErrCategoryNotFound) {
			BadRequest(c, "unknown category id")
			return
		}
		Internal(c, "failed to update cv")
		return
	}

	reloaded, err := h.getCVForUser(ctx, c.Param("id"), userID, true)
	if err != nil {
		Internal(c, "failed to reload cv")
		return
	}

	c.JSON(http.StatusOK, newCVResponse(*reloaded))
}

// DeleteCV 删除 CV 及其子树，之后尽力清理存储中的 PDF 对象。
func (h *CVHandler) DeleteCV(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	model, err := h.getCVForUser(ctx, c.Param("id"), userID, false)
	if err != nil {
		h.replyCVLookupError(c, err)
		return
	}

	objectKey, err := h.cvService.Delete(ctx, model)
	if err != nil {
		logger.Error("delete cv failed", slog.Any("error", err))
		Internal(c, "failed to delete cv")
		return
	}

	// 对象清理失败只记录，不影响删除结果。
	if objectKey != "" && h.storage != nil {
		if err := h.storage.DeleteObject(ctx, objectKey); err != nil {
			logger.Warn("delete pdf object failed",
				slog.String("object_key", objectKey),
				slog.Any("error", err),
			)
		}
	}

	c.Status(http.StatusNoContent)
}

type visibilityRequest struct {
	IsPublic *bool `json:"is_public" binding:"required"`
}

// UpdateVisibility 切换 CV 是否对招聘方可见。
func (h *CVHandler) UpdateVisibility(c *gin.Context) {
	var req visibilityRequest
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
	model, err := h.getCVForUser(ctx, c.Param("id"), userID, false)
	if err != nil {
		h.replyCVLookupError(c, err)
		return
	}

	if err := h.db.WithContext(ctx).Model(model).Update("is_public", *req.IsPublic).Error; err != nil {
		Internal(c, "failed to update visibility")
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": model.ID, "is_public": *req.IsPublic})
}

// GeneratePDF 重新入队 PDF 渲染任务，作为创建时入队失败的补偿入口。
func (h *CVHandler) GeneratePDF(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	model, err := h.getCVForUser(ctx, c.Param("id"), userID, false)
	if err != nil {
		h.replyCVLookupError(c, err)
		return
	}

	if err := h.db.WithContext(ctx).Model(model).
		Updates(map[string]any{"status": database.CVStatusPending, "pdf_url": ""}).Error; err != nil {
		Internal(c, "failed to reset cv status")
		return
	}

	if !h.enqueuePDFTask(c, model.ID, logger) {
		Internal(c, "failed to enqueue pdf generation")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "PDF generation request accepted",
		"cv_id":   model.ID,
	})
}

// GetDownloadLink 生成 CV PDF 的预签名下载链接；PDF 未就绪时返回 409。
func (h *CVHandler) GetDownloadLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	model, err := h.getCVForUser(c.Request.Context(), c.Param("id"), userID, false)
	if err != nil {
		h.replyCVLookupError(c, err)
		return
	}

	if model.Status != database.CVStatusCompleted || model.PdfUrl == "" {
		Conflict(c, "pdf not ready")
		return
	}

	objectKey := cv.ObjectKeyFromPdfUrl(model.PdfUrl)
	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), objectKey, 5*time.Minute)
	if err != nil {
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

type publicCVItem struct {
	ID         uint                `json:"id"`
	Title      string              `json:"title"`
	FullName   string              `json:"full_name"`
	Summary    string              `json:"summary,omitempty"`
	Categories []database.Category `json:"categories"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// ListPublicCVs 供招聘方浏览公开 CV，支持类别与关键字过滤。
func (h *CVHandler) ListPublicCVs(c *gin.Context) {
	ctx := c.Request.Context()

	query := h.db.WithContext(ctx).
		Model(&database.CV{}).
		Preload("PersonalInfo").
		Preload("Categories").
		Where("cvs.is_public = ?", true)

	if categoryParam := strings.TrimSpace(c.Query("category")); categoryParam != "" {
		categoryID, err := strconv.ParseUint(categoryParam, 10, 64)
		if err != nil {
			BadRequest(c, "invalid category id")
			return
		}
		query = query.
			Joins("JOIN cv_categories ON cv_categories.cv_id = cvs.id").
			Where("cv_categories.category_id = ?", uint(categoryID))
	}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + search + "%"
		query = query.
			Joins("JOIN personal_infos ON personal_infos.id = cvs.personal_info_id AND personal_infos.deleted_at IS NULL").
			Where("cvs.title LIKE ? OR personal_infos.full_name LIKE ?", pattern, pattern)
	}

	var models []database.CV
	if err := query.Order("cvs.updated_at DESC").Find(&models).Error; err != nil {
		Internal(c, "failed to list public cvs")
		return
	}

	items := make([]publicCVItem, 0, len(models))
	for _, m := range models {
		item := publicCVItem{
			ID:         m.ID,
			Title:      m.Title,
			FullName:   m.PersonalInfo.FullName,
			Categories: m.Categories,
			UpdatedAt:  m.UpdatedAt,
		}
		if m.PersonalInfo.Summary != nil {
			item.Summary = *m.PersonalInfo.Summary
		}
		if item.Categories == nil {
			item.Categories = []database.Category{}
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, items)
}

func (h *CVHandler) enqueuePDFTask(c *gin.Context, cvID uint, logger *slog.Logger) bool {
	if h.asynqClient == nil {
		return false
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewPDFGenerateTask(cvID, correlationID)
	if err != nil {
		logger.Error("create pdf task failed", slog.Any("error", err))
		return false
	}

	if _, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5)); err != nil {
		logger.Error("enqueue pdf task failed",
			slog.Uint64("cv_id", uint64(cvID)),
			slog.Any("error", err),
		)
		return false
	}
	return true
}

func (h *CVHandler) getCVForUser(ctx context.Context, idParam string, userID uint, withTree bool) (*database.CV, error) {
	cvID, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil {
		return nil, errInvalidCVID
	}

	query := h.db.WithContext(ctx)
	if withTree {
		query = query.
			Preload("PersonalInfo").
			Preload("PersonalInfo.Educations").
			Preload("PersonalInfo.Experiences").
			Preload("PersonalInfo.Skills").
			Preload("PersonalInfo.Projects").
			Preload("Categories")
	}

	var model database.CV
	if err := query.
		Where("id = ? AND user_id = ?", uint(cvID), userID).
		First(&model).Error; err != nil {
		return nil, err
	}

	return &model, nil
}

func (h *CVHandler) replyCVLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidCVID):
		BadRequest(c, "invalid cv id")
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "cv not found")
	default:
		Internal(c, "failed to query cv")
	}
}

func (h *CVHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
