package types

import (
	"fmt"
	"time"
)

// NotLoggedInError 账号从未登录或凭证文件缺失
type NotLoggedInError struct {
	Account string
}

func (e *NotLoggedInError) Error() string {
	return fmt.Sprintf("账号 %s 未登录，请先执行登录", e.Account)
}

// SessionExpiredError 凭证存在但已失效，需要重新登录
type SessionExpiredError struct {
	Account string
	Reason  string
}

func (e *SessionExpiredError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("账号 %s 的登录状态已失效，请重新登录", e.Account)
	}
	return fmt.Sprintf("账号 %s 的登录状态已失效: %s", e.Account, e.Reason)
}

// UnknownTargetError 定位器表中不存在请求的逻辑目标
type UnknownTargetError struct {
	Target string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("未知的页面目标: %s", e.Target)
}

// StageTimeoutError 某个发布阶段在预算时间内未出现完成信号
type StageTimeoutError struct {
	Stage  string
	Budget time.Duration
}

func (e *StageTimeoutError) Error() string {
	return fmt.Sprintf("阶段 %s 超时（预算 %v）", e.Stage, e.Budget)
}

// NewStageTimeout 构造阶段超时错误
func NewStageTimeout(stage string, budget time.Duration) *StageTimeoutError {
	return &StageTimeoutError{Stage: stage, Budget: budget}
}

// InvalidPlanError 批量计划参数不合法
// 仅在每日条数小于等于0或每日时间点为空时产生。
type InvalidPlanError struct {
	Reason string
}

func (e *InvalidPlanError) Error() string {
	return fmt.Sprintf("批量计划不合法: %s", e.Reason)
}

// PartialMetadataWarning 部分标签未被编辑器接受
// 属于警告而非失败，发布仍按成功处理。
type PartialMetadataWarning struct {
	Requested int
	Accepted  int
}

func (e *PartialMetadataWarning) Error() string {
	return fmt.Sprintf("标签未全部生效: 期望 %d 个，实际 %d 个", e.Requested, e.Accepted)
}

// NetworkError 网络请求失败
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("网络错误: %s - %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NewNetworkError 构造网络错误
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err}
}

// TimeoutError 操作超时（页面加载、网络请求等，区别于阶段超时）
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("操作超时: %s - %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// NewTimeoutError 构造超时错误
func NewTimeoutError(op string, err error) *TimeoutError {
	return &TimeoutError{Op: op, Err: err}
}
