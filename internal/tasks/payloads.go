package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypePDFGenerate = "pdf:generate"
)

// PDFGeneratePayload 描述生成 CV PDF 所需的最小信息。
type PDFGeneratePayload struct {
	CVID          uint   `json:"cv_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewPDFGenerateTask 构造一个新的 CV PDF 生成任务。
func NewPDFGenerateTask(cvID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PDFGeneratePayload{
		CVID:          cvID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePDFGenerate, payload), nil
}
