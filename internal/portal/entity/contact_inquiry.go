package entity

import "time"

// ContactInquiry 联系咨询
type ContactInquiry struct {
	InquiryID int64      `json:"inquiry_id" gorm:"column:inquiry_id;primaryKey;autoIncrement"`
	FullName  string     `json:"full_name" gorm:"size:128;not null"`
	Email     string     `json:"email" gorm:"size:128;not null"`
	Phone     string     `json:"phone" gorm:"size:32"`
	Company   string     `json:"company" gorm:"size:128"`
	Subject   string     `json:"subject" gorm:"size:255;not null"`
	Message   string     `json:"message" gorm:"type:text;not null"`
	IsRead    bool       `json:"is_read" gorm:"not null;index"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (ContactInquiry) TableName() string {
	return "contact_inquiries"
}
