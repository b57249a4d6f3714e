package cv

import "gorm.io/datatypes"

// CreateInput 是 CV 创建接口的完整负载。
// 必填项通过 binding 标签在入口处校验，写入前不会产生任何副作用。
type CreateInput struct {
	Title         string            `json:"title" binding:"required"`
	Template      string            `json:"template" binding:"required"`
	PersonalInfo  PersonalInfoInput `json:"personal_info" binding:"required"`
	Education     []EducationInput  `json:"education" binding:"dive"`
	Experience    []ExperienceInput `json:"experience" binding:"dive"`
	Skills        []SkillInput      `json:"skills" binding:"dive"`
	Projects      []ProjectInput    `json:"projects" binding:"dive"`
	Categories    []uint            `json:"categories"`
	AISuggestions datatypes.JSON    `json:"ai_suggestions"`
	IsPublic      bool              `json:"is_public"`
}

// PersonalInfoInput 表示个人信息段，full_name 与 email 必填。
type PersonalInfoInput struct {
	FullName string  `json:"full_name" binding:"required"`
	Email    string  `json:"email" binding:"required,email"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	LinkedIn *string `json:"linkedin"`
	GitHub   *string `json:"github"`
	Website  *string `json:"website"`
	Summary  *string `json:"summary"`
}

// EducationInput 表示一条教育经历。
type EducationInput struct {
	Institution  string  `json:"institution" binding:"required"`
	Degree       string  `json:"degree" binding:"required"`
	FieldOfStudy *string `json:"field_of_study"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
	GPA          *string `json:"gpa"`
	Description  *string `json:"description"`
}

// ExperienceInput 表示一条工作经历。
type ExperienceInput struct {
	Company     string  `json:"company" binding:"required"`
	Position    string  `json:"position" binding:"required"`
	Location    *string `json:"location"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	IsCurrent   bool    `json:"is_current"`
	Description *string `json:"description"`
}

// SkillInput 表示一项技能，Proficiency 缺省为 intermediate。
type SkillInput struct {
	Name        string `json:"name" binding:"required"`
	Proficiency string `json:"proficiency"`
}

// ProjectInput 表示一个项目经历。
type ProjectInput struct {
	Name         string  `json:"name" binding:"required"`
	Description  *string `json:"description"`
	Technologies *string `json:"technologies"`
	URL          *string `json:"url"`
}

// UpdateInput 只覆盖 CV 的标量字段与类别关联；
// 嵌套的个人信息在创建时一次写入，之后不可修改。
type UpdateInput struct {
	Title      *string `json:"title"`
	Template   *string `json:"template"`
	IsPublic   *bool   `json:"is_public"`
	Categories *[]uint `json:"categories"`
}
