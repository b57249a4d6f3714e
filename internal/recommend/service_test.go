package recommend

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"careerforge/internal/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedQuestionnaire(t *testing.T, db *gorm.DB) (mcQuestion, scaleQuestion database.Question, option database.QuestionOption) {
	t.Helper()

	categories := []database.Category{
		{Name: "Interests"},
		{Name: "Skills"},
		{Name: "Work Style"},
		{Name: "Values"},
		{Name: "Computer Science Careers"},
	}
	if err := db.Create(&categories).Error; err != nil {
		t.Fatalf("seed categories: %v", err)
	}

	mcQuestion = database.Question{CategoryID: categories[0].ID, Text: "Pick one", Type: database.QuestionTypeMultipleChoice}
	if err := db.Create(&mcQuestion).Error; err != nil {
		t.Fatalf("seed question: %v", err)
	}
	option = database.QuestionOption{QuestionID: mcQuestion.ID, Text: "A", Score: 8}
	if err := db.Create(&option).Error; err != nil {
		t.Fatalf("seed option: %v", err)
	}

	scaleQuestion = database.Question{CategoryID: categories[1].ID, Text: "Rate it", Type: database.QuestionTypeScale}
	if err := db.Create(&scaleQuestion).Error; err != nil {
		t.Fatalf("seed scale question: %v", err)
	}
	return mcQuestion, scaleQuestion, option
}

func TestRecommend_NoResponsesFails(t *testing.T) {
	db := newTestDB(t)
	seedQuestionnaire(t, db)
	svc := NewService(db, DefaultWeights())

	_, err := svc.Recommend(context.Background(), 42)
	if !errors.Is(err, ErrNoResponses) {
		t.Fatalf("expected ErrNoResponses, got %v", err)
	}
}

func TestRecommend_JoinsOptionScoresAndEducation(t *testing.T) {
	db := newTestDB(t)
	mcQ, scaleQ, opt := seedQuestionnaire(t, db)

	user := database.User{Name: "seeker", Email: "s@example.com", Role: database.RoleJobSeeker}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	scale := 4
	responses := []database.QuestionnaireResponse{
		{UserID: user.ID, QuestionID: mcQ.ID, OptionID: &opt.ID},
		{UserID: user.ID, QuestionID: scaleQ.ID, ScaleResponse: &scale},
	}
	if err := db.Create(&responses).Error; err != nil {
		t.Fatalf("seed responses: %v", err)
	}

	field := "Computer Science"
	info := database.PersonalInfo{
		UserID:   user.ID,
		FullName: "Seeker",
		Email:    "s@example.com",
		Educations: []database.Education{
			{Institution: "State University", Degree: "BSc", FieldOfStudy: &field},
		},
	}
	if err := db.Create(&info).Error; err != nil {
		t.Fatalf("seed personal info: %v", err)
	}

	svc := NewService(db, DefaultWeights())
	recs, err := svc.Recommend(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) != 5 {
		t.Fatalf("expected 5 recommendations, got %d", len(recs))
	}

	// 类别 1 8 分、类别 2 8 分 ⇒ 基础 4.8；
	// "Computer Science Careers" 额外 +20 ⇒ 25 并排到首位。
	if recs[0].Name != "Computer Science Careers" {
		t.Errorf("top recommendation = %q, want Computer Science Careers", recs[0].Name)
	}
	if recs[0].MatchScore != 25 {
		t.Errorf("top MatchScore = %d, want 25", recs[0].MatchScore)
	}
	for _, r := range recs[1:] {
		if r.MatchScore != 5 {
			t.Errorf("category %q MatchScore = %d, want 5", r.Name, r.MatchScore)
		}
	}
}
