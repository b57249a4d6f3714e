package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"careerforge/internal/database"
	"careerforge/internal/pdf"
	"careerforge/internal/tasks"
)

type fakeStore struct {
	uploaded map[string][]byte
}

func (s *fakeStore) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) (*minio.UploadInfo, error) {
	b, _ := io.ReadAll(reader)
	s.uploaded[objectName] = b
	return &minio.UploadInfo{}, nil
}

type fakePublisher struct {
	channels []string
	payloads [][]byte
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channels = append(p.channels, channel)
	if b, ok := message.([]byte); ok {
		p.payloads = append(p.payloads, b)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

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

func seedPendingCV(t *testing.T, db *gorm.DB) *database.CV {
	t.Helper()
	cv := &database.CV{
		UserID:   3,
		Title:    "Pending CV",
		Template: "classic",
		Status:   database.CVStatusPending,
		PersonalInfo: database.PersonalInfo{
			UserID:   3,
			FullName: "Worker Test",
			Email:    "w@example.com",
		},
	}
	if err := db.Create(cv).Error; err != nil {
		t.Fatalf("seed cv: %v", err)
	}
	return cv
}

func newHandler(db *gorm.DB, store *fakeStore, pub *fakePublisher, render Renderer) *PDFTaskHandler {
	h := NewPDFTaskHandler(db, store, pub, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.render = render
	return h
}

func TestProcessTask_UploadsAndBackfills(t *testing.T) {
	db := newTestDB(t)
	cv := seedPendingCV(t, db)
	store := &fakeStore{uploaded: map[string][]byte{}}
	pub := &fakePublisher{}

	h := newHandler(db, store, pub, func(doc pdf.Document) ([]byte, error) {
		return []byte("%PDF-fake " + doc.FullName), nil
	})

	task, err := tasks.NewPDFGenerateTask(cv.ID, "corr-1")
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}

	if len(store.uploaded) != 1 {
		t.Fatalf("uploaded %d objects, want 1", len(store.uploaded))
	}
	for key := range store.uploaded {
		if !strings.HasPrefix(key, "uploads/cv-") || !strings.HasSuffix(key, ".pdf") {
			t.Errorf("object key %q, want uploads/cv-<id>-<ts>.pdf", key)
		}
	}

	var reloaded database.CV
	if err := db.First(&reloaded, cv.ID).Error; err != nil {
		t.Fatalf("reload cv: %v", err)
	}
	if reloaded.Status != database.CVStatusCompleted {
		t.Errorf("status = %q, want completed", reloaded.Status)
	}
	if !strings.HasPrefix(reloaded.PdfUrl, "/uploads/cv-") {
		t.Errorf("pdf_url = %q, want /uploads/cv-... path", reloaded.PdfUrl)
	}

	if len(pub.channels) != 1 || pub.channels[0] != "user_notify:3" {
		t.Fatalf("notify channels = %v, want [user_notify:3]", pub.channels)
	}
	var msg PDFGenerationNotifyMessage
	if err := json.Unmarshal(pub.payloads[0], &msg); err != nil {
		t.Fatalf("unmarshal notify: %v", err)
	}
	if msg.Status != database.CVStatusCompleted || msg.CVID != cv.ID || msg.PdfUrl != reloaded.PdfUrl {
		t.Errorf("notify message = %+v, want completed for cv %d", msg, cv.ID)
	}
}

func TestProcessTask_MissingCVSkips(t *testing.T) {
	db := newTestDB(t)
	store := &fakeStore{uploaded: map[string][]byte{}}
	pub := &fakePublisher{}
	h := newHandler(db, store, pub, func(pdf.Document) ([]byte, error) {
		t.Fatal("render must not run for a missing cv")
		return nil, nil
	})

	task, err := tasks.NewPDFGenerateTask(999, "corr-2")
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	// 行已被删除：任务应当静默完成而不是无限重试。
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if len(pub.channels) != 0 {
		t.Errorf("unexpected notifications: %v", pub.channels)
	}
}

func TestProcessTask_RenderErrorPropagatesForRetry(t *testing.T) {
	db := newTestDB(t)
	cv := seedPendingCV(t, db)
	store := &fakeStore{uploaded: map[string][]byte{}}
	pub := &fakePublisher{}
	h := newHandler(db, store, pub, func(pdf.Document) ([]byte, error) {
		return nil, context.DeadlineExceeded
	})

	task, err := tasks.NewPDFGenerateTask(cv.ID, "corr-3")
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := h.ProcessTask(context.Background(), task); err == nil {
		t.Fatal("expected render error to propagate so asynq retries")
	}

	// 非最终尝试：状态保持 pending，不发失败通知。
	var reloaded database.CV
	if err := db.First(&reloaded, cv.ID).Error; err != nil {
		t.Fatalf("reload cv: %v", err)
	}
	if reloaded.Status != database.CVStatusPending {
		t.Errorf("status = %q, want pending while retries remain", reloaded.Status)
	}
	if len(pub.channels) != 0 {
		t.Errorf("unexpected notifications: %v", pub.channels)
	}
}

var _ asynq.Handler = (*PDFTaskHandler)(nil)
