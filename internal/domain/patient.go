package domain

// Patient 患者（对应 patients/{id} 文档）
// 姓名字段有多个历史来源：fullName 优先，其次 name、displayName
type Patient struct {
	PatientID          string             `json:"-"`
	FullName           string             `json:"fullName,omitempty"`
	Name               string             `json:"name,omitempty"`
	DisplayName        string             `json:"displayName,omitempty"`
	AssignedCaregivers []string           `json:"assignedCaregivers,omitempty"`
	SOSSettings        *SOSSettings       `json:"sosSettings,omitempty"`
	EmergencyContacts  []EmergencyContact `json:"emergencyContacts,omitempty"`
}

// SOSSettings 患者的 SOS 设置
type SOSSettings struct {
	EnableSOS           bool   `json:"enableSOS"`
	RequireConfirmation bool   `json:"requireConfirmation"`
	SendLocation        *bool  `json:"sendLocation,omitempty"`
	SendNotification    bool   `json:"sendNotification"`
	SendMessage         bool   `json:"sendMessage"`
	VibrationPattern    string `json:"vibrationPattern,omitempty"`
	SoundAlert          bool   `json:"soundAlert"`
}

// EmergencyContact 紧急联系人
type EmergencyContact struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation"`
}

// AllowsLocation 是否允许在 SOS 中附带位置；只有显式 sendLocation=false 才禁止
func (p *Patient) AllowsLocation() bool {
	if p == nil || p.SOSSettings == nil || p.SOSSettings.SendLocation == nil {
		return true
	}
	return *p.SOSSettings.SendLocation
}

// RelationStatus 患者-护理人员关系状态
type RelationStatus string

const (
	RelationActive   RelationStatus = "active"
	RelationInactive RelationStatus = "inactive"
	RelationPending  RelationStatus = "pending"
)

// CaregiverRelation 患者与护理人员的关联（对应 patientCaregiverRelations）
// 由外部建档流程创建，这里只读 status=active 的记录
type CaregiverRelation struct {
	RelationID  string         `json:"-"`
	PatientID   string         `json:"patientId"`
	CaregiverID string         `json:"caregiverId"`
	Status      RelationStatus `json:"status"`
}
