package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"careerforge/internal/auth"
	"careerforge/internal/config"
	"careerforge/internal/database"
)

// 类别按固定 ID 顺序写入：打分权重依赖 1–5 的位置约定，
// 之后的条目是纯职业类别，只作为推荐输出。
var seedCategories = []database.Category{
	{Model: gorm.Model{ID: 1}, Name: "Interests", Description: "What kind of work draws your attention"},
	{Model: gorm.Model{ID: 2}, Name: "Skills", Description: "What you are already good at"},
	{Model: gorm.Model{ID: 3}, Name: "Work Style", Description: "How you prefer to organize your work"},
	{Model: gorm.Model{ID: 4}, Name: "Values", Description: "What matters to you in a workplace"},
	{Model: gorm.Model{ID: 5}, Name: "Personality", Description: "How you interact with people and problems"},
	{Model: gorm.Model{ID: 6}, Name: "Computer Science Careers", Description: "Software, data and infrastructure roles"},
	{Model: gorm.Model{ID: 7}, Name: "Business Careers", Description: "Management, finance and operations roles"},
	{Model: gorm.Model{ID: 8}, Name: "Creative Careers", Description: "Design, media and communication roles"},
	{Model: gorm.Model{ID: 9}, Name: "Engineering Careers", Description: "Mechanical, civil and electrical roles"},
	{Model: gorm.Model{ID: 10}, Name: "Healthcare Careers", Description: "Clinical and care-oriented roles"},
}

type seedOption struct {
	Text  string
	Score int
}

type seedQuestion struct {
	CategoryID uint
	Text       string
	Type       string
	Options    []seedOption
}

var seedQuestions = []seedQuestion{
	{CategoryID: 1, Text: "Which activity would you rather spend an afternoon on?", Type: database.QuestionTypeMultipleChoice, Options: []seedOption{
		{Text: "Building or fixing something technical", Score: 10},
		{Text: "Planning a budget or a project timeline", Score: 8},
		{Text: "Sketching, writing or composing", Score: 6},
		{Text: "Helping someone work through a problem", Score: 4},
	}},
	{CategoryID: 1, Text: "How interested are you in learning new technologies?", Type: database.QuestionTypeScale},
	{CategoryID: 1, Text: "Describe a project or topic you could talk about for hours.", Type: database.QuestionTypeText},

	{CategoryID: 2, Text: "Which skill do colleagues most often ask you for?", Type: database.QuestionTypeMultipleChoice, Options: []seedOption{
		{Text: "Analysing data or debugging", Score: 10},
		{Text: "Organizing people and plans", Score: 8},
		{Text: "Visual or written communication", Score: 6},
		{Text: "Listening and mediating", Score: 4},
	}},
	{CategoryID: 2, Text: "How confident are you presenting work to a group?", Type: database.QuestionTypeScale},
	{CategoryID: 2, Text: "List the three skills you would put at the top of a CV.", Type: database.QuestionTypeText},

	{CategoryID: 3, Text: "Which working rhythm suits you best?", Type: database.QuestionTypeMultipleChoice, Options: []seedOption{
		{Text: "Deep focus on one task at a time", Score: 10},
		{Text: "Switching between several threads", Score: 8},
		{Text: "Short bursts with frequent breaks", Score: 6},
		{Text: "Steady routine with fixed hours", Score: 4},
	}},
	{CategoryID: 3, Text: "How comfortable are you with ambiguous, open-ended tasks?", Type: database.QuestionTypeScale},

	{CategoryID: 4, Text: "What matters most to you in a job offer?", Type: database.QuestionTypeMultipleChoice, Options: []seedOption{
		{Text: "Learning and growth", Score: 10},
		{Text: "Stability and security", Score: 8},
		{Text: "Impact on other people", Score: 6},
		{Text: "Compensation above all", Score: 4},
	}},
	{CategoryID: 4, Text: "How important is it that your employer's mission aligns with your own values?", Type: database.QuestionTypeScale},

	{CategoryID: 5, Text: "In a new group, which role do you naturally take?", Type: database.QuestionTypeMultipleChoice, Options: []seedOption{
		{Text: "The one who structures the discussion", Score: 10},
		{Text: "The one who challenges assumptions", Score: 8},
		{Text: "The one who keeps everyone on good terms", Score: 6},
		{Text: "The quiet one who delivers afterwards", Score: 4},
	}},
	{CategoryID: 5, Text: "How energized do you feel after a day of meetings?", Type: database.QuestionTypeScale},
}

func main() {
	var (
		recruiterEmail = flag.String("recruiter-email", "", "同时创建一个招聘方账号（可选）")
		recruiterName  = flag.String("recruiter-name", "Recruiter", "招聘方账号显示名")
		dbHost         = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
		dbPort         = flag.Int("db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
		dbName         = flag.String("db-name", "", "数据库名（可选，默认读 MYSQL_DATABASE）")
		dbUser         = flag.String("db-user", "", "数据库用户（可选，默认读 MYSQL_USER）")
		dbPass         = flag.String("db-password", "", "数据库密码（可选，默认读 MYSQL_PASSWORD）")
	)
	flag.Parse()

	dbCfg, err := loadDatabaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	if err := seedQuestionnaire(db); err != nil {
		log.Fatalf("seed questionnaire: %v", err)
	}

	if email := strings.TrimSpace(strings.ToLower(*recruiterEmail)); email != "" {
		if err := seedRecruiter(db, email, strings.TrimSpace(*recruiterName)); err != nil {
			log.Fatalf("seed recruiter: %v", err)
		}
	}
}

// seedQuestionnaire 幂等写入类别与题库：已有类别时整体跳过，
// 避免重复执行破坏 1–5 的 ID 约定。
func seedQuestionnaire(db *gorm.DB) error {
	var count int64
	if err := db.Model(&database.Category{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if count > 0 {
		fmt.Printf("categories already present (%d rows), skipping questionnaire seed\n", count)
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, category := range seedCategories {
			if err := tx.Create(&category).Error; err != nil {
				return fmt.Errorf("create category %q: %w", category.Name, err)
			}
		}

		for _, sq := range seedQuestions {
			question := database.Question{
				CategoryID: sq.CategoryID,
				Text:       sq.Text,
				Type:       sq.Type,
			}
			for _, opt := range sq.Options {
				question.Options = append(question.Options, database.QuestionOption{
					Text:  opt.Text,
					Score: opt.Score,
				})
			}
			if err := tx.Create(&question).Error; err != nil {
				return fmt.Errorf("create question %q: %w", sq.Text, err)
			}
		}

		fmt.Printf("seeded %d categories and %d questions\n", len(seedCategories), len(seedQuestions))
		return nil
	})
}

func seedRecruiter(db *gorm.DB, email, name string) error {
	var existing database.User
	switch err := db.Where("email = ?", email).First(&existing).Error; {
	case err == nil:
		return fmt.Errorf("user %q already exists", email)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return fmt.Errorf("query user: %w", err)
	}

	password, err := generateRandomPassword(24)
	if err != nil {
		return fmt.Errorf("generate password: %w", err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := database.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
		Role:         database.RoleRecruiter,
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Printf("已创建招聘方账号：\n")
	fmt.Printf("邮箱: %s\n", email)
	fmt.Printf("初始密码: %s\n", password)
	fmt.Printf("提示：该密码仅显示一次，请登录后尽快修改。\n")
	return nil
}

func loadDatabaseConfig(host string, port int, name, user, password string) (config.DatabaseConfig, error) {
	if strings.TrimSpace(host) == "" {
		host = os.Getenv("DATABASE_HOST")
	}
	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if strings.TrimSpace(name) == "" {
		name = os.Getenv("MYSQL_DATABASE")
	}
	if strings.TrimSpace(user) == "" {
		user = os.Getenv("MYSQL_USER")
	}
	if strings.TrimSpace(password) == "" {
		password = os.Getenv("MYSQL_PASSWORD")
	}

	if strings.TrimSpace(host) == "" {
		host = "localhost"
	}
	if port <= 0 {
		port = 3306
	}
	if strings.TrimSpace(name) == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (MYSQL_DATABASE)")
	}
	if strings.TrimSpace(user) == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (MYSQL_USER)")
	}
	if strings.TrimSpace(password) == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (MYSQL_PASSWORD)")
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     name,
		User:     user,
		Password: password,
	}, nil
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 24
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
