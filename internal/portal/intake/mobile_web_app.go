package intake

import "time"

// MobileWebAppRequest 移动/Web应用开发申请
type MobileWebAppRequest struct {
	ServiceID           int          `form:"-"`
	ProjectName         string       `form:"project_name" label:"Project Name" validate:"notblank"`
	ProjectDescription  string       `form:"project_description"`
	Platform            string       `form:"platform"`
	DevelopmentType     string       `form:"development_type"`
	PreferredStartDate  *time.Time   `form:"preferred_start_date" time_format:"2006-01-02"`
	PreferredEndDate    *time.Time   `form:"preferred_end_date" time_format:"2006-01-02"`
	PrimaryContactName  string       `form:"primary_contact_name"`
	PrimaryContactEmail string       `form:"primary_contact_email" label:"Primary Contact Email" validate:"omitempty,email"`
	PrimaryContactPhone string       `form:"primary_contact_phone"`
	AdditionalNotes     string       `form:"additional_notes"`
	SupportingDocuments []Attachment `form:"-"`
}

func (*MobileWebAppRequest) ServiceType() ServiceType { return ServiceTypeMobileWebApp }

// MobileWebAppHandler 移动/Web应用处理器
type MobileWebAppHandler struct{}

func (MobileWebAppHandler) ServiceType() ServiceType { return ServiceTypeMobileWebApp }
func (MobileWebAppHandler) ServiceTypeName() string  { return "MobileWebApp" }

func (MobileWebAppHandler) Validate(p Payload) (bool, string) {
	m, ok := p.(*MobileWebAppRequest)
	if !ok || m == nil {
		return false, "Invalid model type"
	}
	if ok, msg := validateStruct(m); !ok {
		return false, msg
	}
	return checkDateRange(m.PreferredStartDate, m.PreferredEndDate, "Preferred Start Date", "Preferred End Date")
}

func (MobileWebAppHandler) ExtractDetails(p Payload) (Details, error) {
	m, ok := p.(*MobileWebAppRequest)
	if !ok || m == nil {
		return nil, ErrInvalidPayloadShape
	}
	return Details{}.
		Add("ProjectName", m.ProjectName).
		Add("ProjectDescription", m.ProjectDescription).
		Add("Platform", m.Platform).
		Add("DevelopmentType", m.DevelopmentType).
		Add("PreferredStartDate", date(m.PreferredStartDate)).
		Add("PreferredEndDate", date(m.PreferredEndDate)).
		Add("PrimaryContactName", m.PrimaryContactName).
		Add("PrimaryContactEmail", m.PrimaryContactEmail).
		Add("PrimaryContactPhone", m.PrimaryContactPhone).
		Add("AdditionalNotes", m.AdditionalNotes), nil
}

func (MobileWebAppHandler) GetAttachments(p Payload) []Attachment {
	m, ok := p.(*MobileWebAppRequest)
	if !ok || m == nil {
		return nil
	}
	return compact(m.SupportingDocuments)
}

func (MobileWebAppHandler) GetServiceID(p Payload) int {
	if m, ok := p.(*MobileWebAppRequest); ok && m != nil {
		return m.ServiceID
	}
	return 0
}
