package recommend

import (
	"math"
	"sort"
	"strings"
)

// ResponseRow 表示一条问卷作答与其题目、选项分值的联表结果。
type ResponseRow struct {
	QuestionID    uint
	CategoryID    uint
	QuestionType  string
	OptionScore   *int
	ScaleResponse *int
}

// CategoryInfo 表示参与推荐的职业类别。
type CategoryInfo struct {
	ID          uint
	Name        string
	Description string
}

// Recommendation 是单个类别的匹配结果，MatchScore 取值 [0,100]。
type Recommendation struct {
	CategoryID  uint   `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MatchScore  int    `json:"match_score"`
}

// Weights 将类别 ID 显式映射到评分权重。
// 历史实现把权重硬编码在类别 ID 1..5 上；这里把映射做成配置，
// 默认值与历史行为完全一致。注意 WorkStyle 与 Values 两项
// 必须同时有累计分时才计入，缺一则整项跳过。
type Weights struct {
	InterestsCategoryID   uint
	SkillsCategoryID      uint
	WorkStyleCategoryID   uint
	ValuesCategoryID      uint
	PersonalityCategoryID uint

	Interests       float64
	Skills          float64
	WorkStyleValues float64
	Personality     float64

	EducationBonus float64
	ScaleFactor    int
}

// DefaultWeights 返回沿用种子数据顺序的默认权重表。
func DefaultWeights() Weights {
	return Weights{
		InterestsCategoryID:   1,
		SkillsCategoryID:      2,
		WorkStyleCategoryID:   3,
		ValuesCategoryID:      4,
		PersonalityCategoryID: 5,
		Interests:             0.3,
		Skills:                0.3,
		WorkStyleValues:       0.2,
		Personality:           0.2,
		EducationBonus:        20,
		ScaleFactor:           2,
	}
}

// Contribution 计算单条作答的数值贡献：
// 选择题取选项分值，量表题（1–5）乘以 ScaleFactor 对齐到选项分值区间，
// 文本题不参与评分。
func (w Weights) Contribution(row ResponseRow) int {
	switch row.QuestionType {
	case "multiple_choice":
		if row.OptionScore == nil {
			return 0
		}
		return *row.OptionScore
	case "scale":
		if row.ScaleResponse == nil {
			return 0
		}
		return *row.ScaleResponse * w.ScaleFactor
	default:
		return 0
	}
}

// Accumulate 将全部作答按所属类别求和。
func (w Weights) Accumulate(rows []ResponseRow) map[uint]int {
	sums := make(map[uint]int, len(rows))
	for _, row := range rows {
		sums[row.CategoryID] += w.Contribution(row)
	}
	return sums
}

// Score 为每个类别计算匹配分并按分值降序返回。
// 排序是稳定的：同分类别保持传入顺序。
func (w Weights) Score(categories []CategoryInfo, sums map[uint]int, educationFields []string) []Recommendation {
	result := make([]Recommendation, 0, len(categories))
	for _, cat := range categories {
		total := 0.0

		if s, ok := sums[w.InterestsCategoryID]; ok {
			total += float64(s) * w.Interests
		}
		if s, ok := sums[w.SkillsCategoryID]; ok {
			total += float64(s) * w.Skills
		}
		workStyle, hasWorkStyle := sums[w.WorkStyleCategoryID]
		values, hasValues := sums[w.ValuesCategoryID]
		if hasWorkStyle && hasValues {
			total += float64(workStyle+values) * w.WorkStyleValues
		}
		if s, ok := sums[w.PersonalityCategoryID]; ok {
			total += float64(s) * w.Personality
		}

		for _, field := range educationFields {
			if fieldMatchesCategory(field, cat.Name) {
				total += w.EducationBonus
			}
		}

		result = append(result, Recommendation{
			CategoryID:  cat.ID,
			Name:        cat.Name,
			Description: cat.Description,
			MatchScore:  clampScore(total),
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].MatchScore > result[j].MatchScore
	})
	return result
}

// fieldMatchesCategory 做大小写不敏感的双向子串匹配，
// 例如 "Computer Science" 与 "Computer Science Careers" 互相命中。
func fieldMatchesCategory(field, categoryName string) bool {
	f := strings.ToLower(strings.TrimSpace(field))
	c := strings.ToLower(strings.TrimSpace(categoryName))
	if f == "" || c == "" {
		return false
	}
	return strings.Contains(c, f) || strings.Contains(f, c)
}

func clampScore(total float64) int {
	if total < 0 {
		return 0
	}
	if total > 100 {
		return 100
	}
	return int(math.Round(total))
}
