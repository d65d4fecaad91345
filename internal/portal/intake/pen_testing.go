package intake

import "time"

// PenTestingRequest 渗透测试申请
type PenTestingRequest struct {
	ServiceID              int          `form:"-"`
	CompanyName            string       `form:"company_name" label:"Company Name" validate:"notblank,max=128"`
	PrimaryContactName     string       `form:"primary_contact_name" label:"Primary Contact Name" validate:"notblank"`
	PrimaryContactEmail    string       `form:"primary_contact_email" label:"Primary Contact Email" validate:"notblank,email"`
	PrimaryContactPhone    string       `form:"primary_contact_phone"`
	TestingType            string       `form:"testing_type" label:"Testing Type" validate:"notblank,oneof=web_application network mobile api social_engineering wireless"`
	TargetScope            string       `form:"target_scope" label:"Target Scope" validate:"notblank"`
	TargetURLs             []string     `form:"target_urls" label:"Target URLs" validate:"dive,url"`
	NumberOfIPs            *int         `form:"number_of_ips" label:"Number Of IPs" validate:"omitempty,min=1"`
	Environment            string       `form:"environment" label:"Environment" validate:"omitempty,oneof=production staging development"`
	ComplianceRequirements []string     `form:"compliance_requirements"`
	PreferredStartDate     *time.Time   `form:"preferred_start_date" time_format:"2006-01-02"`
	PreferredEndDate       *time.Time   `form:"preferred_end_date" time_format:"2006-01-02"`
	AuthorizationConfirmed bool         `form:"authorization_confirmed"`
	AdditionalNotes        string       `form:"additional_notes"`
	SupportingDocuments    []Attachment `form:"-"`
}

func (*PenTestingRequest) ServiceType() ServiceType { return ServiceTypePenTesting }

// PenTestingHandler 渗透测试处理器
type PenTestingHandler struct{}

func (PenTestingHandler) ServiceType() ServiceType { return ServiceTypePenTesting }
func (PenTestingHandler) ServiceTypeName() string  { return "PenTesting" }

func (PenTestingHandler) Validate(p Payload) (bool, string) {
	m, ok := p.(*PenTestingRequest)
	if !ok || m == nil {
		return false, "Invalid model type"
	}
	if ok, msg := validateStruct(m); !ok {
		return false, msg
	}
	if !m.AuthorizationConfirmed {
		return false, "You must confirm you are authorized to request testing of the target systems"
	}
	return checkDateRange(m.PreferredStartDate, m.PreferredEndDate, "Preferred Start Date", "Preferred End Date")
}

func (PenTestingHandler) ExtractDetails(p Payload) (Details, error) {
	m, ok := p.(*PenTestingRequest)
	if !ok || m == nil {
		return nil, ErrInvalidPayloadShape
	}
	return Details{}.
		Add("CompanyName", m.CompanyName).
		Add("PrimaryContactName", m.PrimaryContactName).
		Add("PrimaryContactEmail", m.PrimaryContactEmail).
		Add("PrimaryContactPhone", m.PrimaryContactPhone).
		Add("TestingType", m.TestingType).
		Add("TargetScope", m.TargetScope).
		Add("TargetURLs", optStrings(m.TargetURLs)).
		Add("NumberOfIPs", optInt(m.NumberOfIPs)).
		Add("Environment", m.Environment).
		Add("ComplianceRequirements", optStrings(m.ComplianceRequirements)).
		Add("PreferredStartDate", date(m.PreferredStartDate)).
		Add("PreferredEndDate", date(m.PreferredEndDate)).
		Add("AuthorizationConfirmed", m.AuthorizationConfirmed).
		Add("AdditionalNotes", m.AdditionalNotes), nil
}

func (PenTestingHandler) GetAttachments(p Payload) []Attachment {
	m, ok := p.(*PenTestingRequest)
	if !ok || m == nil {
		return nil
	}
	return compact(m.SupportingDocuments)
}

func (PenTestingHandler) GetServiceID(p Payload) int {
	if m, ok := p.(*PenTestingRequest); ok && m != nil {
		return m.ServiceID
	}
	return 0
}
