package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"careerforge/internal/api/middleware"
	"careerforge/internal/database"
	"careerforge/internal/recommend"
)

// QuestionnaireHandler 负责问卷题库、答卷提交与职业推荐。
type QuestionnaireHandler struct {
	db          *gorm.DB
	recommender *recommend.Service
	logger      *slog.Logger
}

// NewQuestionnaireHandler 构造问卷处理器。
func NewQuestionnaireHandler(db *gorm.DB, recommender *recommend.Service, logger *slog.Logger) *QuestionnaireHandler {
	return &QuestionnaireHandler{
		db:          db,
		recommender: recommender,
		logger:      logger,
	}
}

type categoryItem struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListCategories 按 ID 升序返回全部问卷类别。
func (h *QuestionnaireHandler) ListCategories(c *gin.Context) {
	var categories []database.Category
	if err := h.db.WithContext(c.Request.Context()).
		Order("id").
		Find(&categories).Error; err != nil {
		Internal(c, "failed to list categories")
		return
	}

	items := make([]categoryItem, 0, len(categories))
	for _, cat := range categories {
		items = append(items, categoryItem{ID: cat.ID, Name: cat.Name, Description: cat.Description})
	}
	c.JSON(http.StatusOK, items)
}

type questionOptionItem struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

type questionItem struct {
	ID      uint                 `json:"id"`
	Text    string               `json:"text"`
	Type    string               `json:"type"`
	Options []questionOptionItem `json:"options"`
}

// ListQuestions 返回某个类别下的全部问题及选项。
// 选项分值属于打分内部细节，不随题目下发。
func (h *QuestionnaireHandler) ListQuestions(c *gin.Context) {
	categoryID, err := strconv.ParseUint(c.Param("categoryId"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid category id")
		return
	}

	ctx := c.Request.Context()

	var category database.Category
	if err := h.db.WithContext(ctx).First(&category, uint(categoryID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "category not found")
			return
		}
		Internal(c, "failed to query category")
		return
	}

	var questions []database.Question
	if err := h.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("category_id = ?", category.ID).
		Order("id").
		Find(&questions).Error; err != nil {
		Internal(c, "failed to list questions")
		return
	}

	items := make([]questionItem, 0, len(questions))
	for _, q := range questions {
		item := questionItem{
			ID:      q.ID,
			Text:    q.Text,
			Type:    q.Type,
			Options: make([]questionOptionItem, 0, len(q.Options)),
		}
		for _, opt := range q.Options {
			item.Options = append(item.Options, questionOptionItem{ID: opt.ID, Text: opt.Text})
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, items)
}

type answerInput struct {
	QuestionID    uint    `json:"question_id" binding:"required"`
	OptionID      *uint   `json:"option_id"`
	TextResponse  *string `json:"text_response"`
	ScaleResponse *int    `json:"scale_response"`
}

type submitRequest struct {
	Answers []answerInput `json:"answers" binding:"required,min=1,dive"`
}

// SubmitResponses 整体替换用户的答卷：先硬删除旧答案再写入新答案，
// 同一事务内完成，失败则保留旧答卷不变。
func (h *QuestionnaireHandler) SubmitResponses(c *gin.Context) {
	var req submitRequest
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

	rows, err := h.validateAnswers(ctx, req.Answers, userID)
	if err != nil {
		var valErr *answerValidationError
		if errors.As(err, &valErr) {
			BadRequest(c, valErr.Error())
			return
		}
		logger.Error("validate answers failed", slog.Any("error", err))
		Internal(c, "failed to validate answers")
		return
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 唯一索引含软删列之外的 (user_id, question_id)，
		// 必须硬删除旧答案，否则重新提交会撞索引。
		if err := tx.Unscoped().
			Where("user_id = ?", userID).
			Delete(&database.QuestionnaireResponse{}).Error; err != nil {
			return fmt.Errorf("clear previous responses: %w", err)
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert responses: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Error("submit responses failed", slog.Any("error", err))
		Internal(c, "failed to save responses")
		return
	}

	logger.Info("questionnaire submitted", slog.Int("answer_count", len(rows)))
	c.JSON(http.StatusCreated, gin.H{"saved": len(rows)})
}

// GetRecommendations 返回按匹配度降序的职业类别推荐。
func (h *QuestionnaireHandler) GetRecommendations(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	recommendations, err := h.recommender.Recommend(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, recommend.ErrNoResponses) {
			NotFound(c, "no questionnaire responses found")
			return
		}
		h.loggerFromContext(c).Error("recommend failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.Any("error", err),
		)
		Internal(c, "failed to compute recommendations")
		return
	}

	c.JSON(http.StatusOK, recommendations)
}

type answerValidationError struct {
	questionID uint
	reason     string
}

func (e *answerValidationError) Error() string {
	return fmt.Sprintf("question %d: %s", e.questionID, e.reason)
}

// validateAnswers 校验每条答案与问题类型匹配，返回可直接入库的行。
func (h *QuestionnaireHandler) validateAnswers(ctx context.Context, answers []answerInput, userID uint) ([]database.QuestionnaireResponse, error) {
	questionIDs := make([]uint, 0, len(answers))
	seen := make(map[uint]bool, len(answers))
	for _, a := range answers {
		if seen[a.QuestionID] {
			return nil, &answerValidationError{questionID: a.QuestionID, reason: "answered more than once"}
		}
		seen[a.QuestionID] = true
		questionIDs = append(questionIDs, a.QuestionID)
	}

	var questions []database.Question
	if err := h.db.WithContext(ctx).
		Preload("Options").
		Where("id IN ?", questionIDs).
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	byID := make(map[uint]database.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	rows := make([]database.QuestionnaireResponse, 0, len(answers))
	for _, a := range answers {
		question, ok := byID[a.QuestionID]
		if !ok {
			return nil, &answerValidationError{questionID: a.QuestionID, reason: "question not found"}
		}

		row := database.QuestionnaireResponse{
			UserID:     userID,
			QuestionID: a.QuestionID,
		}

		switch question.Type {
		case database.QuestionTypeMultipleChoice:
			if a.OptionID == nil {
				return nil, &answerValidationError{questionID: a.QuestionID, reason: "option_id required"}
			}
			if !optionBelongsToQuestion(question, *a.OptionID) {
				return nil, &answerValidationError{questionID: a.QuestionID, reason: "option does not belong to question"}
			}
			row.OptionID = a.OptionID
		case database.QuestionTypeScale:
			if a.ScaleResponse == nil {
				return nil, &answerValidationError{questionID: a.QuestionID, reason: "scale_response required"}
			}
			if *a.ScaleResponse < 1 || *a.ScaleResponse > 5 {
				return nil, &answerValidationError{questionID: a.QuestionID, reason: "scale_response must be between 1 and 5"}
			}
			row.ScaleResponse = a.ScaleResponse
		case database.QuestionTypeText:
			if a.TextResponse == nil || strings.TrimSpace(*a.TextResponse) == "" {
				return nil, &answerValidationError{questionID: a.QuestionID, reason: "text_response required"}
			}
			row.TextResponse = a.TextResponse
		default:
			return nil, &answerValidationError{questionID: a.QuestionID, reason: "unsupported question type"}
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func optionBelongsToQuestion(question database.Question, optionID uint) bool {
	for _, opt := range question.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

func (h *QuestionnaireHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
