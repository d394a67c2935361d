package service

import (
	"strings"

	"wisefido-sos/internal/domain"
)

// DefaultPatientName 所有姓名字段都为空时使用
const DefaultPatientName = "Patient"

// NameResolver 从患者文档中取一个候选姓名
type NameResolver func(patient *domain.Patient) string

// DefaultNameResolvers fullName → name → displayName
var DefaultNameResolvers = []NameResolver{
	func(p *domain.Patient) string { return p.FullName },
	func(p *domain.Patient) string { return p.Name },
	func(p *domain.Patient) string { return p.DisplayName },
}

// ResolvePatientName 按顺序取第一个非空姓名
func ResolvePatientName(patient *domain.Patient, resolvers ...NameResolver) string {
	if patient == nil {
		return DefaultPatientName
	}
	if len(resolvers) == 0 {
		resolvers = DefaultNameResolvers
	}
	for _, resolve := range resolvers {
		if name := strings.TrimSpace(resolve(patient)); name != "" {
			return name
		}
	}
	return DefaultPatientName
}
