package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"careerforge/internal/application"
	"careerforge/internal/database"
)

func seedJobFixture(t *testing.T, db *gorm.DB) (seeker database.User, recruiter database.User, job database.JobListing, cvRow database.CV) {
	t.Helper()

	seeker = database.User{Name: "Seeker", Email: "seeker@example.com", Role: database.RoleJobSeeker}
	recruiter = database.User{Name: "Recruiter", Email: "recruiter@example.com", Role: database.RoleRecruiter}
	for _, u := range []*database.User{&seeker, &recruiter} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	job = database.JobListing{
		RecruiterID: recruiter.ID,
		Title:       "Go Engineer",
		Company:     "Acme",
		Location:    "Remote",
		Description: "Build backend services",
		Type:        "full-time",
		Status:      database.JobStatusActive,
	}
	if err := db.Create(&job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}

	info := database.PersonalInfo{FullName: "Seeker", Email: "seeker@example.com"}
	if err := db.Create(&info).Error; err != nil {
		t.Fatalf("seed personal info: %v", err)
	}
	cvRow = database.CV{
		UserID:         seeker.ID,
		PersonalInfoID: info.ID,
		Title:          "My CV",
		Template:       "classic",
		Status:         database.CVStatusCompleted,
	}
	if err := db.Create(&cvRow).Error; err != nil {
		t.Fatalf("seed cv: %v", err)
	}
	return seeker, recruiter, job, cvRow
}

func TestApply_DuplicateReturnsConflict(t *testing.T) {
	db := newTestDB(t)
	seeker, _, job, cvRow := seedJobFixture(t, db)
	h := NewApplicationHandler(db, nil)

	payload := applyRequest{JobID: job.ID, CVID: cvRow.ID}

	w := performJSON(t, h.Apply, http.MethodPost, "/api/applications", payload, seeker.ID)
	if w.Code != http.StatusCreated {
		t.Fatalf("first apply: expected 201 got %d body=%s", w.Code, w.Body.String())
	}

	w = performJSON(t, h.Apply, http.MethodPost, "/api/applications", payload, seeker.ID)
	if w.Code != http.StatusConflict {
		t.Fatalf("second apply: expected 409 got %d body=%s", w.Code, w.Body.String())
	}

	var count int64
	if err := db.Model(&database.JobApplication{}).Count(&count).Error; err != nil {
		t.Fatalf("count applications: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 application, got %d", count)
	}
}

func TestApply_ClosedJobRejected(t *testing.T) {
	db := newTestDB(t)
	seeker, _, job, cvRow := seedJobFixture(t, db)
	if err := db.Model(&job).Update("status", database.JobStatusClosed).Error; err != nil {
		t.Fatalf("close job: %v", err)
	}
	h := NewApplicationHandler(db, nil)

	w := performJSON(t, h.Apply, http.MethodPost, "/api/applications", applyRequest{JobID: job.ID, CVID: cvRow.ID}, seeker.ID)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestApply_ForeignCVRejected(t *testing.T) {
	db := newTestDB(t)
	_, recruiter, job, cvRow := seedJobFixture(t, db)
	h := NewApplicationHandler(db, nil)

	// cvRow 属于 seeker，以 recruiter 的身份投递应查不到。
	w := performJSON(t, h.Apply, http.MethodPost, "/api/applications", applyRequest{JobID: job.ID, CVID: cvRow.ID}, recruiter.ID)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d body=%s", w.Code, w.Body.String())
	}
}

func performStatusUpdate(t *testing.T, h *ApplicationHandler, appID string, payload updateStatusRequest, userID uint) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = newJSONRequest(t, http.MethodPatch, "/api/applications/"+appID+"/status", payload)
	c.Params = gin.Params{{Key: "id", Value: appID}}
	c.Set("userID", userID)

	h.UpdateStatus(c)
	return w
}

func TestUpdateStatus_FollowsTransitionTable(t *testing.T) {
	db := newTestDB(t)
	seeker, recruiter, job, cvRow := seedJobFixture(t, db)
	h := NewApplicationHandler(db, nil)

	app := database.JobApplication{
		JobID:  job.ID,
		UserID: seeker.ID,
		CVID:   cvRow.ID,
		Status: string(application.StatusApplied),
	}
	if err := db.Create(&app).Error; err != nil {
		t.Fatalf("seed application: %v", err)
	}
	appID := uintToParam(app.ID)

	// Applied → Offered 不在流转表里。
	w := performStatusUpdate(t, h, appID, updateStatusRequest{Status: "Offered"}, recruiter.ID)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid transition: expected 400 got %d body=%s", w.Code, w.Body.String())
	}

	w = performStatusUpdate(t, h, appID, updateStatusRequest{Status: "Shortlisted"}, recruiter.ID)
	if w.Code != http.StatusOK {
		t.Fatalf("valid transition: expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var reloaded database.JobApplication
	if err := db.First(&reloaded, app.ID).Error; err != nil {
		t.Fatalf("reload application: %v", err)
	}
	if reloaded.Status != string(application.StatusShortlisted) {
		t.Fatalf("expected Shortlisted, got %s", reloaded.Status)
	}
}

func TestUpdateStatus_OnlyJobOwner(t *testing.T) {
	db := newTestDB(t)
	seeker, _, job, cvRow := seedJobFixture(t, db)
	h := NewApplicationHandler(db, nil)

	app := database.JobApplication{
		JobID:  job.ID,
		UserID: seeker.ID,
		CVID:   cvRow.ID,
		Status: string(application.StatusApplied),
	}
	if err := db.Create(&app).Error; err != nil {
		t.Fatalf("seed application: %v", err)
	}

	stranger := database.User{Name: "Other", Email: "other@example.com", Role: database.RoleRecruiter}
	if err := db.Create(&stranger).Error; err != nil {
		t.Fatalf("seed stranger: %v", err)
	}

	w := performStatusUpdate(t, h, uintToParam(app.ID), updateStatusRequest{Status: "Shortlisted"}, stranger.ID)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d body=%s", w.Code, w.Body.String())
	}
}
