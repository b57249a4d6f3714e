package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 用户角色。求职者创建简历并投递，招聘者发布职位并筛选。
const (
	RoleJobSeeker = "jobSeeker"
	RoleRecruiter = "recruiter"
)

// CV 的 PDF 生成状态。
const (
	CVStatusPending   = "pending"
	CVStatusCompleted = "completed"
	CVStatusFailed    = "failed"
)

// 问卷题目类型。
const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeScale          = "scale"
	QuestionTypeText           = "text"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Name         string `gorm:"size:128"`
	Email        string `gorm:"uniqueIndex;size:255"`
	PasswordHash string `gorm:"size:255"`
	Role         string `gorm:"size:32;default:jobSeeker"`

	CVs          []CV                    `gorm:"constraint:OnDelete:CASCADE"`
	Responses    []QuestionnaireResponse `gorm:"constraint:OnDelete:CASCADE"`
	JobListings  []JobListing            `gorm:"foreignKey:RecruiterID;constraint:OnDelete:CASCADE"`
	Applications []JobApplication        `gorm:"constraint:OnDelete:CASCADE"`
}

// Category 既是问卷题目的分组，也是推荐结果中的职业类别。
// 评分权重按类别 ID 约定（见 internal/recommend），种子顺序不可随意调整。
type Category struct {
	gorm.Model
	Name        string `gorm:"size:128"`
	Description string `gorm:"size:512"`

	Questions []Question `gorm:"constraint:OnDelete:CASCADE"`
}

// Question 表示问卷中的一道题。
type Question struct {
	gorm.Model
	CategoryID uint   `gorm:"index"`
	Text       string `gorm:"size:512"`
	Type       string `gorm:"size:32"`

	Options []QuestionOption `gorm:"constraint:OnDelete:CASCADE"`
}

// QuestionOption 表示选择题的一个选项及其分值。
type QuestionOption struct {
	gorm.Model
	QuestionID uint   `gorm:"index"`
	Text       string `gorm:"size:512"`
	Score      int
}

// QuestionnaireResponse 表示用户对某道题的作答。
// OptionID/TextResponse/ScaleResponse 三者按题目类型取其一；
// (user_id, question_id) 唯一，重新提交采用整体替换语义。
type QuestionnaireResponse struct {
	gorm.Model
	UserID        uint    `gorm:"uniqueIndex:idx_user_question"`
	QuestionID    uint    `gorm:"uniqueIndex:idx_user_question"`
	OptionID      *uint   `gorm:"index"`
	TextResponse  *string `gorm:"type:text"`
	ScaleResponse *int
}

// PersonalInfo 表示某份 CV 独占的个人信息。每次创建 CV 都会新建一份，不复用。
type PersonalInfo struct {
	gorm.Model
	UserID   uint    `gorm:"index"`
	FullName string  `gorm:"size:255"`
	Email    string  `gorm:"size:255"`
	Phone    *string `gorm:"size:64"`
	Address  *string `gorm:"size:512"`
	LinkedIn *string `gorm:"size:512"`
	GitHub   *string `gorm:"size:512"`
	Website  *string `gorm:"size:512"`
	Summary  *string `gorm:"type:text"`

	Educations  []Education  `gorm:"foreignKey:PersonalInfoID;constraint:OnDelete:CASCADE"`
	Experiences []Experience `gorm:"foreignKey:PersonalInfoID;constraint:OnDelete:CASCADE"`
	Skills      []Skill      `gorm:"foreignKey:PersonalInfoID;constraint:OnDelete:CASCADE"`
	Projects    []Project    `gorm:"foreignKey:PersonalInfoID;constraint:OnDelete:CASCADE"`
}

// Education 表示一条教育经历，生命周期绑定在 PersonalInfo 上。
type Education struct {
	gorm.Model
	PersonalInfoID uint    `gorm:"index"`
	Institution    string  `gorm:"size:255"`
	Degree         string  `gorm:"size:255"`
	FieldOfStudy   *string `gorm:"size:255"`
	StartDate      *string `gorm:"size:32"`
	EndDate        *string `gorm:"size:32"`
	GPA            *string `gorm:"size:16"`
	Description    *string `gorm:"type:text"`
}

// Experience 表示一条工作经历。
type Experience struct {
	gorm.Model
	PersonalInfoID uint    `gorm:"index"`
	Company        string  `gorm:"size:255"`
	Position       string  `gorm:"size:255"`
	Location       *string `gorm:"size:255"`
	StartDate      *string `gorm:"size:32"`
	EndDate        *string `gorm:"size:32"`
	IsCurrent      bool    `gorm:"default:false"`
	Description    *string `gorm:"type:text"`
}

// Skill 表示一项技能。
type Skill struct {
	gorm.Model
	PersonalInfoID uint   `gorm:"index"`
	Name           string `gorm:"size:128"`
	Proficiency    string `gorm:"size:32;default:intermediate"`
}

// Project 表示一个项目经历。
type Project struct {
	gorm.Model
	PersonalInfoID uint    `gorm:"index"`
	Name           string  `gorm:"size:255"`
	Description    *string `gorm:"type:text"`
	Technologies   *string `gorm:"size:512"`
	URL            *string `gorm:"size:512"`
}

// CV 表示用户创建的一份简历。PdfUrl 在异步渲染完成后回填，之前为空。
type CV struct {
	gorm.Model
	UserID         uint           `gorm:"index"`
	PersonalInfoID uint           `gorm:"index"`
	Title          string         `gorm:"size:255"`
	Template       string         `gorm:"size:64"`
	IsPublic       bool           `gorm:"default:false"`
	AISuggestions  datatypes.JSON `gorm:"type:json"`
	PdfUrl         string         `gorm:"size:512"`
	Status         string         `gorm:"size:32;default:pending"`

	PersonalInfo PersonalInfo `gorm:"constraint:OnDelete:CASCADE"`
	Categories   []Category   `gorm:"many2many:cv_categories;"`
}

// CVCategory 是 CV 与职业类别的多对多连接表。
type CVCategory struct {
	CVID       uint `gorm:"primaryKey"`
	CategoryID uint `gorm:"primaryKey"`
}

// 职位状态。
const (
	JobStatusActive = "Active"
	JobStatusClosed = "Closed"
	JobStatusDraft  = "Draft"
)

// JobListing 表示招聘者发布的职位。
type JobListing struct {
	gorm.Model
	RecruiterID  uint    `gorm:"index"`
	Title        string  `gorm:"size:255"`
	Company      string  `gorm:"size:255"`
	Location     string  `gorm:"size:255"`
	Description  string  `gorm:"type:text"`
	Requirements *string `gorm:"type:text"`
	Type         string  `gorm:"size:64"`
	SalaryRange  *string `gorm:"size:128"`
	Status       string  `gorm:"size:32;default:Active"`
}

// JobApplication 表示一次投递。(user_id, job_id) 唯一，
// 重复投递由唯一索引在存储层拦截，而非先查后插。
type JobApplication struct {
	gorm.Model
	JobID       uint    `gorm:"uniqueIndex:idx_user_job"`
	UserID      uint    `gorm:"uniqueIndex:idx_user_job"`
	CVID        uint    `gorm:"index"`
	Status      string  `gorm:"size:32;default:Applied"`
	CoverLetter *string `gorm:"type:text"`

	Job JobListing `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE"`
	CV  CV         `gorm:"foreignKey:CVID"`
}
