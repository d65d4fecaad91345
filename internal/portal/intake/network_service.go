package intake

import (
	"strings"
	"time"
)

// NetworkServiceRequest 网络服务申请
type NetworkServiceRequest struct {
	ServiceID                    int          `form:"-"`
	RequestType                  string       `form:"request_type"`
	Priority                     string       `form:"priority" label:"Priority" validate:"omitempty,oneof=Low Medium High Critical"`
	PrimaryContactName           string       `form:"primary_contact_name" label:"Primary Contact Name" validate:"notblank"`
	PrimaryContactEmail          string       `form:"primary_contact_email" label:"Primary Contact Email" validate:"notblank,email"`
	PrimaryContactPhone          string       `form:"primary_contact_phone"`
	Department                   string       `form:"department" label:"Department" validate:"notblank"`
	Location                     string       `form:"location" label:"Location" validate:"notblank"`
	RoomNumber                   string       `form:"room_number"`
	NumberOfPorts                *int         `form:"number_of_ports" label:"Number Of Ports" validate:"omitempty,min=1"`
	PortType                     string       `form:"port_type"`
	NetworkSpeed                 string       `form:"network_speed"`
	VlanAssignment               string       `form:"vlan_assignment"`
	WirelessAccessRequired       bool         `form:"wireless_access_required"`
	NetworkName                  string       `form:"network_name"`
	SpecialSecurityRequired      bool         `form:"special_security_required"`
	SecurityRequirementsDetails  string       `form:"security_requirements_details"`
	EquipmentDetails             string       `form:"equipment_details"`
	HardwareInstallationRequired bool         `form:"hardware_installation_required"`
	HardwareDetails              string       `form:"hardware_details"`
	RequestedCompletionDate      *time.Time   `form:"requested_completion_date" time_format:"2006-01-02"`
	IsUrgent                     bool         `form:"is_urgent"`
	UrgencyJustification         string       `form:"urgency_justification"`
	PreferredInstallationTime    string       `form:"preferred_installation_time"`
	AvailableDays                []string     `form:"available_days"`
	BusinessJustification        string       `form:"business_justification"`
	AdditionalNotes              string       `form:"additional_notes"`
	BudgetCode                   string       `form:"budget_code"`
	ManagerName                  string       `form:"manager_name"`
	ManagerEmail                 string       `form:"manager_email" label:"Manager Email" validate:"omitempty,email"`
	AcknowledgeApproval          bool         `form:"acknowledge_approval"`
	SubmittedDate                *time.Time   `form:"submitted_date" time_format:"2006-01-02"`
	SubmittedBy                  string       `form:"submitted_by"`
	AdditionalDocuments          []Attachment `form:"-"`
}

func (*NetworkServiceRequest) ServiceType() ServiceType { return ServiceTypeNetworkService }

// NetworkServiceHandler 网络服务处理器
type NetworkServiceHandler struct{}

func (NetworkServiceHandler) ServiceType() ServiceType { return ServiceTypeNetworkService }
func (NetworkServiceHandler) ServiceTypeName() string  { return "NetworkService" }

func (NetworkServiceHandler) Validate(p Payload) (bool, string) {
	m, ok := p.(*NetworkServiceRequest)
	if !ok || m == nil {
		return false, "Invalid model type"
	}
	if ok, msg := validateStruct(m); !ok {
		return false, msg
	}
	if m.IsUrgent && strings.TrimSpace(m.UrgencyJustification) == "" {
		return false, "Urgency Justification is required for urgent requests"
	}
	if m.SpecialSecurityRequired && strings.TrimSpace(m.SecurityRequirementsDetails) == "" {
		return false, "Security Requirements Details is required when special security is requested"
	}
	return true, ""
}

func (NetworkServiceHandler) ExtractDetails(p Payload) (Details, error) {
	m, ok := p.(*NetworkServiceRequest)
	if !ok || m == nil {
		return nil, ErrInvalidPayloadShape
	}
	return Details{}.
		Add("ServiceId", m.ServiceID).
		Add("RequestType", m.RequestType).
		Add("Priority", m.Priority).
		Add("PrimaryContactName", m.PrimaryContactName).
		Add("PrimaryContactEmail", m.PrimaryContactEmail).
		Add("PrimaryContactPhone", m.PrimaryContactPhone).
		Add("Department", m.Department).
		Add("Location", m.Location).
		Add("RoomNumber", m.RoomNumber).
		Add("NumberOfPorts", optInt(m.NumberOfPorts)).
		Add("PortType", m.PortType).
		Add("NetworkSpeed", m.NetworkSpeed).
		Add("VlanAssignment", m.VlanAssignment).
		Add("WirelessAccessRequired", m.WirelessAccessRequired).
		Add("NetworkName", m.NetworkName).
		Add("SpecialSecurityRequired", m.SpecialSecurityRequired).
		Add("SecurityRequirementsDetails", m.SecurityRequirementsDetails).
		Add("EquipmentDetails", m.EquipmentDetails).
		Add("HardwareInstallationRequired", m.HardwareInstallationRequired).
		Add("HardwareDetails", m.HardwareDetails).
		Add("RequestedCompletionDate", date(m.RequestedCompletionDate)).
		Add("IsUrgent", m.IsUrgent).
		Add("UrgencyJustification", m.UrgencyJustification).
		Add("PreferredInstallationTime", m.PreferredInstallationTime).
		Add("AvailableDays", optStrings(m.AvailableDays)).
		Add("BusinessJustification", m.BusinessJustification).
		Add("AdditionalNotes", m.AdditionalNotes).
		Add("BudgetCode", m.BudgetCode).
		Add("ManagerName", m.ManagerName).
		Add("ManagerEmail", m.ManagerEmail).
		Add("AcknowledgeApproval", m.AcknowledgeApproval).
		Add("SubmittedDate", date(m.SubmittedDate)).
		Add("SubmittedBy", m.SubmittedBy), nil
}

func (NetworkServiceHandler) GetAttachments(p Payload) []Attachment {
	m, ok := p.(*NetworkServiceRequest)
	if !ok || m == nil {
		return nil
	}
	return compact(m.AdditionalDocuments)
}

func (NetworkServiceHandler) GetServiceID(p Payload) int {
	if m, ok := p.(*NetworkServiceRequest); ok && m != nil {
		return m.ServiceID
	}
	return 0
}

var priorityLevels = map[string]int{"Low": 1, "Medium": 2, "High": 3, "Critical": 4}

// Priority 表单优先级映射为 1-4，紧急请求至少为 High
func (NetworkServiceHandler) Priority(p Payload) *int {
	m, ok := p.(*NetworkServiceRequest)
	if !ok || m == nil {
		return nil
	}
	level, ok := priorityLevels[m.Priority]
	if m.IsUrgent && level < 3 {
		level, ok = 3, true
	}
	if !ok {
		return nil
	}
	return &level
}
