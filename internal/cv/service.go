package cv

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"careerforge/internal/database"
)

// ErrCategoryNotFound 表示提交的类别 ID 在类别表中不存在。
var ErrCategoryNotFound = errors.New("category not found")

// DefaultProficiency 是技能缺省熟练度。
const DefaultProficiency = "intermediate"

// Service 负责 CV 的多表写入与删除。
// 所有写路径都在单个事务中执行：任一步失败则整体回滚，
// 不会留下孤立的 PersonalInfo、子表行或类别关联。
type Service struct {
	db *gorm.DB
}

// NewService 构造 CV 服务。
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create 在一个事务内依次写入 PersonalInfo、各子表行（按提交顺序）、
// CV 行与类别关联。提交时 PdfUrl 为空、Status 为 pending，
// PDF 由异步任务渲染后回填。重复调用会创建两份独立的 CV。
func (s *Service) Create(ctx context.Context, userID uint, in CreateInput) (*database.CV, error) {
	var created database.CV

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		info := database.PersonalInfo{
			UserID:   userID,
			FullName: in.PersonalInfo.FullName,
			Email:    in.PersonalInfo.Email,
			Phone:    in.PersonalInfo.Phone,
			Address:  in.PersonalInfo.Address,
			LinkedIn: in.PersonalInfo.LinkedIn,
			GitHub:   in.PersonalInfo.GitHub,
			Website:  in.PersonalInfo.Website,
			Summary:  in.PersonalInfo.Summary,
		}

		for _, e := range in.Education {
			info.Educations = append(info.Educations, database.Education{
				Institution:  e.Institution,
				Degree:       e.Degree,
				FieldOfStudy: e.FieldOfStudy,
				StartDate:    e.StartDate,
				EndDate:      e.EndDate,
				GPA:          e.GPA,
				Description:  e.Description,
			})
		}
		for _, e := range in.Experience {
			info.Experiences = append(info.Experiences, database.Experience{
				Company:     e.Company,
				Position:    e.Position,
				Location:    e.Location,
				StartDate:   e.StartDate,
				EndDate:     e.EndDate,
				IsCurrent:   e.IsCurrent,
				Description: e.Description,
			})
		}
		for _, sk := range in.Skills {
			proficiency := strings.TrimSpace(sk.Proficiency)
			if proficiency == "" {
				proficiency = DefaultProficiency
			}
			info.Skills = append(info.Skills, database.Skill{
				Name:        sk.Name,
				Proficiency: proficiency,
			})
		}
		for _, p := range in.Projects {
			info.Projects = append(info.Projects, database.Project{
				Name:         p.Name,
				Description:  p.Description,
				Technologies: p.Technologies,
				URL:          p.URL,
			})
		}

		if err := tx.Create(&info).Error; err != nil {
			return fmt.Errorf("create personal info: %w", err)
		}

		created = database.CV{
			UserID:         userID,
			PersonalInfoID: info.ID,
			Title:          in.Title,
			Template:       in.Template,
			IsPublic:       in.IsPublic,
			AISuggestions:  in.AISuggestions,
			Status:         database.CVStatusPending,
		}
		if err := tx.Create(&created).Error; err != nil {
			return fmt.Errorf("create cv: %w", err)
		}

		if err := linkCategories(tx, created.ID, in.Categories); err != nil {
			return err
		}

		created.PersonalInfo = info
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateMeta 只更新 CV 行的标量字段与类别关联。
func (s *Service) UpdateMeta(ctx context.Context, cvID uint, in UpdateInput) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{}
		if in.Title != nil {
			updates["title"] = *in.Title
		}
		if in.Template != nil {
			updates["template"] = *in.Template
		}
		if in.IsPublic != nil {
			updates["is_public"] = *in.IsPublic
		}
		if len(updates) > 0 {
			if err := tx.Model(&database.CV{}).Where("id = ?", cvID).Updates(updates).Error; err != nil {
				return fmt.Errorf("update cv: %w", err)
			}
		}

		if in.Categories != nil {
			if err := tx.Where("cv_id = ?", cvID).Delete(&database.CVCategory{}).Error; err != nil {
				return fmt.Errorf("clear cv categories: %w", err)
			}
			if err := linkCategories(tx, cvID, *in.Categories); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete 在一个事务内删除 CV、类别关联与其独占的 PersonalInfo 子树，
// 返回待清理的 PDF 对象键（可能为空）。对象删除由调用方兜底执行。
func (s *Service) Delete(ctx context.Context, target *database.CV) (objectKey string, err error) {
	objectKey = ObjectKeyFromPdfUrl(target.PdfUrl)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cv_id = ?", target.ID).Delete(&database.CVCategory{}).Error; err != nil {
			return fmt.Errorf("delete cv categories: %w", err)
		}
		if err := tx.Delete(&database.CV{}, target.ID).Error; err != nil {
			return fmt.Errorf("delete cv: %w", err)
		}

		infoID := target.PersonalInfoID
		for _, child := range []any{
			&database.Education{},
			&database.Experience{},
			&database.Skill{},
			&database.Project{},
		} {
			if err := tx.Where("personal_info_id = ?", infoID).Delete(child).Error; err != nil {
				return fmt.Errorf("delete personal info children: %w", err)
			}
		}
		if err := tx.Delete(&database.PersonalInfo{}, infoID).Error; err != nil {
			return fmt.Errorf("delete personal info: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return objectKey, nil
}

// ObjectKeyFromPdfUrl 把对外暴露的 /uploads/... 路径还原为存储对象键。
func ObjectKeyFromPdfUrl(pdfUrl string) string {
	return strings.TrimPrefix(strings.TrimSpace(pdfUrl), "/")
}

func linkCategories(tx *gorm.DB, cvID uint, categoryIDs []uint) error {
	for _, categoryID := range categoryIDs {
		var count int64
		if err := tx.Model(&database.Category{}).Where("id = ?", categoryID).Count(&count).Error; err != nil {
			return fmt.Errorf("check category %d: %w", categoryID, err)
		}
		if count == 0 {
			return fmt.Errorf("link category %d: %w", categoryID, ErrCategoryNotFound)
		}
		if err := tx.Create(&database.CVCategory{CVID: cvID, CategoryID: categoryID}).Error; err != nil {
			return fmt.Errorf("link category %d: %w", categoryID, err)
		}
	}
	return nil
}
