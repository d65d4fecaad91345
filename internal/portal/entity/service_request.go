package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// 请求状态
const (
	StatusSubmitted  = 1
	StatusApproved   = 2
	StatusRejected   = 3
	StatusInProgress = 4
	StatusCompleted  = 5
)

var statusNames = map[int]string{
	StatusSubmitted:  "submitted",
	StatusApproved:   "approved",
	StatusRejected:   "rejected",
	StatusInProgress: "in_progress",
	StatusCompleted:  "completed",
}

// 状态只能向前流转
var statusTransitions = map[int][]int{
	StatusSubmitted:  {StatusApproved, StatusRejected},
	StatusApproved:   {StatusInProgress},
	StatusInProgress: {StatusCompleted},
}

// StatusName 状态编码
func StatusName(id int) string {
	if name, ok := statusNames[id]; ok {
		return name
	}
	return "unknown"
}

// StatusIDByName 根据状态编码查找ID
func StatusIDByName(name string) (int, bool) {
	for id, n := range statusNames {
		if n == name {
			return id, true
		}
	}
	return 0, false
}

// CanTransition 判断状态流转是否合法
func CanTransition(from, to int) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// 优先级 1-4
var priorityText = map[int]string{
	1: "Low",
	2: "Medium",
	3: "High",
	4: "Critical",
}

// PriorityText 优先级显示文本
func PriorityText(p *int) string {
	if p == nil {
		return "Not Set"
	}
	if text, ok := priorityText[*p]; ok {
		return text
	}
	return "Unknown"
}

// RequestStatus 请求状态字典
type RequestStatus struct {
	StatusID    int    `json:"status_id" gorm:"column:status_id;primaryKey"`
	Name        string `json:"name" gorm:"size:32;not null;uniqueIndex"`
	Description string `json:"description" gorm:"size:255"`
}

func (RequestStatus) TableName() string {
	return "request_statuses"
}

// DefaultRequestStatuses 初始化用的状态字典
func DefaultRequestStatuses() []RequestStatus {
	return []RequestStatus{
		{StatusID: StatusSubmitted, Name: "submitted", Description: "Request received"},
		{StatusID: StatusApproved, Name: "approved", Description: "Approved by staff"},
		{StatusID: StatusRejected, Name: "rejected", Description: "Rejected by staff"},
		{StatusID: StatusInProgress, Name: "in_progress", Description: "Work in progress"},
		{StatusID: StatusCompleted, Name: "completed", Description: "Work completed"},
	}
}

// ServiceRequest 服务请求
type ServiceRequest struct {
	RequestID      int64               `json:"request_id" gorm:"column:request_id;primaryKey;autoIncrement"`
	UserID         int                 `json:"user_id" gorm:"not null;index"`
	ServiceID      int                 `json:"service_id" gorm:"not null;index"`
	PackageID      *int                `json:"package_id"`
	StatusID       int                 `json:"status_id" gorm:"not null;index"`
	RequestDetails JSON                `json:"request_details" gorm:"type:jsonb"`
	Priority       *int                `json:"priority"`
	RequestedDate  time.Time           `json:"requested_date"`
	ApprovedBy     *int                `json:"approved_by"`
	ApprovedDate   *time.Time          `json:"approved_date"`
	CompletionDate *time.Time          `json:"completion_date"`
	TotalAmount    decimal.NullDecimal `json:"total_amount" gorm:"type:numeric(12,2)"`
	Notes          string              `json:"notes" gorm:"type:text"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`

	// 关联
	Service   *Service                 `json:"service,omitempty" gorm:"foreignKey:ServiceID;references:ServiceID"`
	Documents []ServiceRequestDocument `json:"documents,omitempty" gorm:"foreignKey:RequestID;references:RequestID"`

	// 非数据库字段
	StatusName   string `json:"status_name,omitempty" gorm:"-"`
	PriorityText string `json:"priority_text,omitempty" gorm:"-"`
}

func (ServiceRequest) TableName() string {
	return "service_requests"
}

// Decorate 填充显示字段
func (r *ServiceRequest) Decorate() {
	r.StatusName = StatusName(r.StatusID)
	r.PriorityText = PriorityText(r.Priority)
}

// ServiceRequestDocument 服务请求附件
type ServiceRequestDocument struct {
	DocumentID  int64     `json:"document_id" gorm:"column:document_id;primaryKey;autoIncrement"`
	RequestID   *int64    `json:"request_id" gorm:"index"`
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	FilePath    string    `json:"file_path" gorm:"size:512;not null"`
	ContentType string    `json:"content_type" gorm:"size:128"`
	FileSize    int64     `json:"file_size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

func (ServiceRequestDocument) TableName() string {
	return "service_request_documents"
}
