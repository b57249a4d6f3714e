package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"careerforge/internal/config"
)

// InitDatabase 使用配置初始化 MySQL 连接，并返回 GORM 数据库实例。
func InitDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap db: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// AllModels 按迁移顺序列出全部模型，供 AutoMigrate 使用。
func AllModels() []any {
	return []any{
		&User{},
		&Category{},
		&Question{},
		&QuestionOption{},
		&QuestionnaireResponse{},
		&PersonalInfo{},
		&Education{},
		&Experience{},
		&Skill{},
		&Project{},
		&CV{},
		&CVCategory{},
		&JobListing{},
		&JobApplication{},
	}
}
