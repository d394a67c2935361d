package domain

import "math"

// Location 设备坐标，只作为内嵌值存在
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// Valid 坐标是否可用（拒绝 NaN/Inf 与越界值）
func (l *Location) Valid() bool {
	if l == nil {
		return false
	}
	for _, v := range []float64{l.Latitude, l.Longitude, l.Accuracy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180 &&
		l.Accuracy >= 0
}
