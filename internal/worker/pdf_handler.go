package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"careerforge/internal/database"
	"careerforge/internal/errcode"
	"careerforge/internal/pdf"
	"careerforge/internal/tasks"
)

// ObjectStore 抽象 PDF 产物的上传能力，便于测试替换。
type ObjectStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
}

// Renderer 把渲染函数抽象出来，测试中可以跳过无头浏览器。
type Renderer func(doc pdf.Document) ([]byte, error)

// NotifyPublisher 是 redis.UniversalClient 中本包用到的发布能力。
type NotifyPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// PDFTaskHandler 负责消费 PDF 生成任务。
type PDFTaskHandler struct {
	db          *gorm.DB
	storage     ObjectStore
	redisClient NotifyPublisher
	logger      *slog.Logger
	render      Renderer
}

// NewPDFTaskHandler 创建任务处理器。
func NewPDFTaskHandler(db *gorm.DB, storage ObjectStore, redisClient NotifyPublisher, logger *slog.Logger) *PDFTaskHandler {
	return &PDFTaskHandler{
		db:          db,
		storage:     storage,
		redisClient: redisClient,
		logger:      logger,
		render:      pdf.Generate,
	}
}

// ProcessTask 实现 asynq.Handler。
// CV 行在 API 事务中已提交（pdf_url 为空、status=pending），
// 这里渲染并上传 PDF，再回填 pdf_url 与 status。
func (h *PDFTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.PDFGeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("cv_id", int(payload.CVID)),
	)
	log.Info("starting cv pdf generation task")

	var cv database.CV
	err := h.db.WithContext(ctx).
		Preload("PersonalInfo").
		Preload("PersonalInfo.Educations").
		Preload("PersonalInfo.Experiences").
		Preload("PersonalInfo.Skills").
		Preload("PersonalInfo.Projects").
		First(&cv, payload.CVID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("cv not found, skipping task")
			return nil
		}
		log.Error("query cv failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.Uint64("user_id", uint64(cv.UserID)))

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		// 重试耗尽：标记失败并通知前端，让客户端不再显示 pending。
		if err := h.db.WithContext(ctx).Model(&cv).
			Update("status", database.CVStatusFailed).Error; err != nil {
			log.Error("mark cv failed status failed", slog.Any("error", err))
		}
		notify := PDFGenerationNotifyMessage{
			Status:        database.CVStatusFailed,
			CVID:          cv.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.publishNotify(ctx, cv.UserID, notify); err != nil {
			log.Error("publish pdf error notification failed", slog.Any("error", err))
		}
	}()

	pdfBytes, err := h.render(pdf.BuildDocument(&cv))
	if err != nil {
		log.Error("render cv pdf failed", slog.Any("error", err))
		return err
	}

	// 对象键带创建时间戳，重试或重新生成不会互相覆盖。
	objectName := fmt.Sprintf("uploads/cv-%d-%d.pdf", cv.ID, time.Now().UnixMilli())
	pdfReader := bytes.NewReader(pdfBytes)
	if _, err := h.storage.UploadFile(ctx, objectName, pdfReader, int64(len(pdfBytes)), "application/pdf"); err != nil {
		log.Error("upload pdf failed", slog.Any("error", err))
		return err
	}

	pdfUrl := "/" + objectName
	update := map[string]any{
		"pdf_url": pdfUrl,
		"status":  database.CVStatusCompleted,
	}
	if err := h.db.WithContext(ctx).Model(&cv).Updates(update).Error; err != nil {
		log.Error("update cv failed", slog.Any("error", err))
		return err
	}

	notify := PDFGenerationNotifyMessage{
		Status:        database.CVStatusCompleted,
		CVID:          cv.ID,
		PdfUrl:        pdfUrl,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if err := h.publishNotify(ctx, cv.UserID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("cv pdf generation task completed")
	return nil
}

func (h *PDFTaskHandler) publishNotify(ctx context.Context, userID uint, notify PDFGenerationNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := fmt.Sprintf("user_notify:%d", userID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
