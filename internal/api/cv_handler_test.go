package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"careerforge/internal/cv"
	"careerforge/internal/database"
	"careerforge/internal/tasks"
)

type fakeEnqueuer struct {
	enqueued []*asynq.Task
	err      error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.enqueued = append(f.enqueued, task)
	return &asynq.TaskInfo{ID: "task-1"}, nil
}

type fakeObjectStore struct {
	presigned []string
	deleted   []string
}

func (f *fakeObjectStore) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	f.presigned = append(f.presigned, objectKey)
	return "https://example.invalid/" + objectKey, nil
}

func (f *fakeObjectStore) DeleteObject(_ context.Context, objectKey string) error {
	f.deleted = append(f.deleted, objectKey)
	return nil
}

func sampleCreateInput() cv.CreateInput {
	return cv.CreateInput{
		Title:    "Backend Engineer CV",
		Template: "classic",
		PersonalInfo: cv.PersonalInfoInput{
			FullName: "Ada Lovelace",
			Email:    "ada@example.com",
		},
		Skills: []cv.SkillInput{{Name: "Go"}},
	}
}

func TestCreateCV_PersistsAndEnqueues(t *testing.T) {
	db := newTestDB(t)
	enqueuer := &fakeEnqueuer{}
	h := NewCVHandler(db, cv.NewService(db), enqueuer, &fakeObjectStore{}, nil)

	w := performJSON(t, h.CreateCV, http.MethodPost, "/api/cvs", sampleCreateInput(), 1)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}

	var resp cvResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != database.CVStatusPending {
		t.Fatalf("expected pending status, got %q", resp.Status)
	}
	if resp.PdfUrl != "" {
		t.Fatalf("pdf_url must be empty right after creation, got %q", resp.PdfUrl)
	}

	if len(enqueuer.enqueued) != 1 {
		t.Fatalf("expected 1 enqueued task, got %d", len(enqueuer.enqueued))
	}
	var payload tasks.PDFGeneratePayload
	if err := json.Unmarshal(enqueuer.enqueued[0].Payload(), &payload); err != nil {
		t.Fatalf("decode task payload: %v", err)
	}
	if payload.CVID != resp.ID {
		t.Fatalf("task cv id %d does not match created cv %d", payload.CVID, resp.ID)
	}
}

func TestCreateCV_EnqueueFailureStillCreates(t *testing.T) {
	db := newTestDB(t)
	enqueuer := &fakeEnqueuer{err: context.DeadlineExceeded}
	h := NewCVHandler(db, cv.NewService(db), enqueuer, &fakeObjectStore{}, nil)

	w := performJSON(t, h.CreateCV, http.MethodPost, "/api/cvs", sampleCreateInput(), 1)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}

	var count int64
	if err := db.Model(&database.CV{}).Count(&count).Error; err != nil {
		t.Fatalf("count cvs: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected cv committed despite enqueue failure, got %d rows", count)
	}
}

func TestCreateCV_UnknownCategoryRolledBack(t *testing.T) {
	db := newTestDB(t)
	h := NewCVHandler(db, cv.NewService(db), &fakeEnqueuer{}, &fakeObjectStore{}, nil)

	input := sampleCreateInput()
	input.Categories = []uint{777}

	w := performJSON(t, h.CreateCV, http.MethodPost, "/api/cvs", input, 1)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}

	var cvCount, infoCount int64
	db.Model(&database.CV{}).Count(&cvCount)
	db.Model(&database.PersonalInfo{}).Count(&infoCount)
	if cvCount != 0 || infoCount != 0 {
		t.Fatalf("expected full rollback, got cvs=%d personal_infos=%d", cvCount, infoCount)
	}
}

func performCVRequest(t *testing.T, handler gin.HandlerFunc, method, cvID string, payload any, userID uint) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = newJSONRequest(t, method, "/api/cvs/"+cvID, payload)
	c.Params = gin.Params{{Key: "id", Value: cvID}}
	c.Set("userID", userID)

	handler(c)
	return w
}

func TestGetDownloadLink_PendingReturnsConflict(t *testing.T) {
	db := newTestDB(t)
	store := &fakeObjectStore{}
	h := NewCVHandler(db, cv.NewService(db), &fakeEnqueuer{}, store, nil)

	created := createCVForTest(t, h, 1)

	w := performCVRequest(t, h.GetDownloadLink, http.MethodGet, created, nil, 1)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 while pending, got %d body=%s", w.Code, w.Body.String())
	}
	if len(store.presigned) != 0 {
		t.Fatalf("no presign expected while pending")
	}

	// 模拟 worker 回填后应返回签名链接。
	if err := db.Model(&database.CV{}).Where("id = ?", created).Updates(map[string]any{
		"status":  database.CVStatusCompleted,
		"pdf_url": "/uploads/cv-1.pdf",
	}).Error; err != nil {
		t.Fatalf("backfill cv: %v", err)
	}

	w = performCVRequest(t, h.GetDownloadLink, http.MethodGet, created, nil, 1)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	if len(store.presigned) != 1 || store.presigned[0] != "uploads/cv-1.pdf" {
		t.Fatalf("expected presign of uploads/cv-1.pdf, got %v", store.presigned)
	}
}

func TestDeleteCV_RemovesRowAndObject(t *testing.T) {
	db := newTestDB(t)
	store := &fakeObjectStore{}
	h := NewCVHandler(db, cv.NewService(db), &fakeEnqueuer{}, store, nil)

	created := createCVForTest(t, h, 1)
	if err := db.Model(&database.CV{}).Where("id = ?", created).Updates(map[string]any{
		"status":  database.CVStatusCompleted,
		"pdf_url": "/uploads/cv-del.pdf",
	}).Error; err != nil {
		t.Fatalf("backfill cv: %v", err)
	}

	w := performCVRequest(t, h.DeleteCV, http.MethodDelete, created, nil, 1)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d body=%s", w.Code, w.Body.String())
	}

	var count int64
	if err := db.Model(&database.CV{}).Count(&count).Error; err != nil {
		t.Fatalf("count cvs: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected cv removed, %d rows left", count)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "uploads/cv-del.pdf" {
		t.Fatalf("expected object cleanup, got %v", store.deleted)
	}
}

func TestDeleteCV_OtherUsersCVNotFound(t *testing.T) {
	db := newTestDB(t)
	h := NewCVHandler(db, cv.NewService(db), &fakeEnqueuer{}, &fakeObjectStore{}, nil)

	created := createCVForTest(t, h, 1)

	w := performCVRequest(t, h.DeleteCV, http.MethodDelete, created, nil, 2)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestListPublicCVs_FiltersByVisibilityAndCategory(t *testing.T) {
	db := newTestDB(t)
	h := NewCVHandler(db, cv.NewService(db), &fakeEnqueuer{}, &fakeObjectStore{}, nil)

	category := database.Category{Name: "Computer Science Careers"}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}

	publicInput := sampleCreateInput()
	publicInput.Title = "Public CV"
	publicInput.IsPublic = true
	publicInput.Categories = []uint{category.ID}
	publicID := createCVForTestWithInput(t, h, 1, publicInput)

	privateInput := sampleCreateInput()
	privateInput.Title = "Private CV"
	createCVForTestWithInput(t, h, 1, privateInput)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/public/cvs?category="+uintToParam(category.ID), nil)

	h.ListPublicCVs(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var items []publicCVItem
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(items) != 1 || items[0].ID != publicID {
		t.Fatalf("expected only the public cv %d, got %+v", publicID, items)
	}
}

func createCVForTest(t *testing.T, h *CVHandler, userID uint) string {
	t.Helper()
	return uintToParam(createCVForTestWithInput(t, h, userID, sampleCreateInput()))
}

func createCVForTestWithInput(t *testing.T, h *CVHandler, userID uint, input cv.CreateInput) uint {
	t.Helper()
	w := performJSON(t, h.CreateCV, http.MethodPost, "/api/cvs", input, userID)
	if w.Code != http.StatusCreated {
		t.Fatalf("create cv: expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var resp cvResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return resp.ID
}

