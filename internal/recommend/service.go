package recommend

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"careerforge/internal/database"
)

// ErrNoResponses 表示用户尚未提交任何问卷作答。
var ErrNoResponses = errors.New("no questionnaire responses")

// Service 读取用户的作答与教育经历，产出职业类别推荐。只读，无副作用。
type Service struct {
	db      *gorm.DB
	weights Weights
}

// NewService 构造推荐服务。
func NewService(db *gorm.DB, weights Weights) *Service {
	return &Service{db: db, weights: weights}
}

// Recommend 为指定用户生成按匹配分降序排列的类别列表。
// 用户没有任何作答时返回 ErrNoResponses，而不是空列表。
func (s *Service) Recommend(ctx context.Context, userID uint) ([]Recommendation, error) {
	rows, err := s.fetchResponseRows(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoResponses
	}

	fields, err := s.fetchEducationFields(ctx, userID)
	if err != nil {
		return nil, err
	}

	var categories []database.Category
	if err := s.db.WithContext(ctx).Order("id").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	infos := make([]CategoryInfo, 0, len(categories))
	for _, cat := range categories {
		infos = append(infos, CategoryInfo{
			ID:          cat.ID,
			Name:        cat.Name,
			Description: cat.Description,
		})
	}

	sums := s.weights.Accumulate(rows)
	return s.weights.Score(infos, sums, fields), nil
}

func (s *Service) fetchResponseRows(ctx context.Context, userID uint) ([]ResponseRow, error) {
	var rows []ResponseRow
	err := s.db.WithContext(ctx).
		Table("questionnaire_responses AS r").
		Select(
			"r.question_id AS question_id",
			"q.category_id AS category_id",
			"q.type AS question_type",
			"o.score AS option_score",
			"r.scale_response AS scale_response",
		).
		Joins("JOIN questions q ON q.id = r.question_id").
		Joins("LEFT JOIN question_options o ON o.id = r.option_id").
		Where("r.user_id = ? AND r.deleted_at IS NULL", userID).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}
	return rows, nil
}

// fetchEducationFields 汇总用户全部 CV 名下的教育经历专业字段。
func (s *Service) fetchEducationFields(ctx context.Context, userID uint) ([]string, error) {
	var fields []string
	err := s.db.WithContext(ctx).
		Table("educations AS e").
		Joins("JOIN personal_infos p ON p.id = e.personal_info_id").
		Where("p.user_id = ? AND e.field_of_study IS NOT NULL AND e.deleted_at IS NULL", userID).
		Pluck("e.field_of_study", &fields).Error
	if err != nil {
		return nil, fmt.Errorf("load education fields: %w", err)
	}
	return fields, nil
}
