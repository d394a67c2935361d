package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidTime 时间格式非法
var ErrInvalidTime = errors.New("invalid time of day")

const (
	PeriodAM = "AM"
	PeriodPM = "PM"
)

// To24Hour 将 12 小时制输入转换为存储用的 "HH:MM"
// 12 AM -> 00:MM，12 PM -> 12:MM
func To24Hour(hour, minute int, period string) (string, error) {
	if hour < 1 || hour > 12 {
		return "", fmt.Errorf("%w: hour %d out of range 1-12", ErrInvalidTime, hour)
	}
	if minute < 0 || minute > 59 {
		return "", fmt.Errorf("%w: minute %d out of range 0-59", ErrInvalidTime, minute)
	}

	h := hour % 12
	switch strings.ToUpper(strings.TrimSpace(period)) {
	case PeriodAM:
	case PeriodPM:
		h += 12
	default:
		return "", fmt.Errorf("%w: period %q must be AM or PM", ErrInvalidTime, period)
	}
	return fmt.Sprintf("%02d:%02d", h, minute), nil
}

// ParseTime24 解析 "HH:MM"（小时允许一位数字，分钟必须两位）
func ParseTime24(s string) (hour, minute int, err error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hs) == 0 || len(hs) > 2 || len(ms) != 2 {
		return 0, 0, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidTime, s)
	}
	hour, err = strconv.Atoi(hs)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: bad hour in %q", ErrInvalidTime, s)
	}
	minute, err = strconv.Atoi(ms)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: bad minute in %q", ErrInvalidTime, s)
	}
	return hour, minute, nil
}

// NormalizeTime24 校验并规范化为两位小时，如 "9:05" -> "09:05"
func NormalizeTime24(s string) (string, error) {
	h, m, err := ParseTime24(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

// To12Hour 将 "HH:MM" 转回 12 小时制
func To12Hour(s string) (hour, minute int, period string, err error) {
	h, m, err := ParseTime24(s)
	if err != nil {
		return 0, 0, "", err
	}
	period = PeriodAM
	if h >= 12 {
		period = PeriodPM
	}
	hour = h % 12
	if hour == 0 {
		hour = 12
	}
	return hour, m, period, nil
}

// DisplayTime 展示用时间，如 "14:30" -> "2:30 PM"
func DisplayTime(s string) (string, error) {
	h, m, p, err := To12Hour(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%02d %s", h, m, p), nil
}
