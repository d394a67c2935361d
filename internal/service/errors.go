package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput 参数校验失败（在任何写入之前返回）
	ErrInvalidInput = errors.New("invalid input")
	// ErrPatientNotFound 患者不存在
	ErrPatientNotFound = errors.New("patient not found")
	// ErrReminderNotFound 提醒不存在或不属于该患者
	ErrReminderNotFound = errors.New("reminder not found")
	// ErrReminderInactive 提醒已被软删除
	ErrReminderInactive = errors.New("reminder is inactive")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
