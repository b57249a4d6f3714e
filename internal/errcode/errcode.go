package errcode

// 通知消息中的错误码约定：
// - 0：无错误
// - 5xxx：系统错误（PDF 渲染/上传失败，任务已耗尽重试）
const (
	OK          = 0
	SystemError = 5000
)
