package types

// OutcomeStatus 单个任务的最终状态
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
)

// UploadOutcome 单个视频任务的发布结果
type UploadOutcome struct {
	Status   OutcomeStatus `json:"status"`
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Warnings []string      `json:"warnings,omitempty"`
}

// Success 状态是否为成功
func (o UploadOutcome) Success() bool {
	return o.Status == OutcomeSuccess
}

// StageResult 发布流水线中单个阶段的执行记录
type StageResult struct {
	Stage    string `json:"stage"`
	OK       bool   `json:"ok"`
	Attempts int    `json:"attempts"`
	Detail   string `json:"detail,omitempty"`
}

// BatchReport 批量发布报告，结果顺序与输入条目一致
type BatchReport struct {
	Total        int             `json:"total_videos"`
	SuccessCount int             `json:"success_count"`
	Results      []UploadOutcome `json:"results"`
}

// Append 追加一个结果并维护成功计数
func (r *BatchReport) Append(o UploadOutcome) {
	r.Results = append(r.Results, o)
	if o.Success() {
		r.SuccessCount++
	}
}
