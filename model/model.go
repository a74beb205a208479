package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	IsStaff  bool   `json:"is_staff"`
}

type Form struct {
	ID             uuid.UUID `json:"id"`
	Version        int       `json:"version"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	CreatedBy      int       `json:"created_by"`
	IsPublic       bool      `json:"is_public"`
	AccessPassword string    `json:"-"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Fields         []Field   `json:"fields,omitempty"`
}

type Field struct {
	ID         uuid.UUID       `json:"id"`
	FormID     uuid.UUID       `json:"form_id"`
	Label      string          `json:"label"`
	FieldType  string          `json:"field_type"`
	IsRequired bool            `json:"is_required"`
	Options    json.RawMessage `json:"options"`
	OrderNum   int             `json:"order_num"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type ProcessType string

const (
	ProcessLinear ProcessType = "linear"
	ProcessFree   ProcessType = "free"
)

var ProcessTypes = []Choice{
	{Value: string(ProcessLinear), Label: "Linear Process"},
	{Value: string(ProcessFree), Label: "Free Process"},
}

func (t ProcessType) Valid() bool {
	return t == ProcessLinear || t == ProcessFree
}

type Process struct {
	ID             uuid.UUID     `json:"id"`
	Version        int           `json:"version"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	ProcessType    ProcessType   `json:"process_type"`
	CreatedBy      int           `json:"created_by"`
	IsPublic       bool          `json:"is_public"`
	AccessPassword string        `json:"-"`
	IsActive       bool          `json:"is_active"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	StepCount      int           `json:"step_count"`
	Steps          []ProcessStep `json:"steps,omitempty"`
}

type ProcessStep struct {
	ID              uuid.UUID `json:"id"`
	ProcessID       uuid.UUID `json:"process_id"`
	FormID          uuid.UUID `json:"form_id"`
	StepName        string    `json:"step_name"`
	StepDescription string    `json:"step_description"`
	OrderNum        int       `json:"order_num"`
	IsMandatory     bool      `json:"is_mandatory"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Response struct {
	ID          uuid.UUID `json:"id"`
	FormID      uuid.UUID `json:"form_id"`
	SubmittedBy *int      `json:"submitted_by,omitempty"`
	Submitter   string    `json:"submitter,omitempty"`
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent"`
	SubmittedAt time.Time `json:"submitted_at"`
	Answers     []Answer  `json:"answers,omitempty"`
}

type Answer struct {
	ID         uuid.UUID `json:"id"`
	ResponseID uuid.UUID `json:"response_id"`
	FieldID    uuid.UUID `json:"field_id"`
	FieldLabel string    `json:"field_label,omitempty"`
	Value      string    `json:"value"`
	CreatedAt  time.Time `json:"created_at"`
}

// AnswerInput is a single submitted (field, value) pair. FieldID is kept as
// the raw client string so invalid identifiers can be reported back verbatim.
type AnswerInput struct {
	FieldID string `json:"field_id"`
	Value   string `json:"value"`
}

type ReportType string

const (
	ReportSummary  ReportType = "summary"
	ReportDetailed ReportType = "detailed"
)

func (t ReportType) Valid() bool {
	return t == ReportSummary || t == ReportDetailed
}

type ScheduleType string

const (
	ScheduleManual  ScheduleType = "manual"
	ScheduleWeekly  ScheduleType = "weekly"
	ScheduleMonthly ScheduleType = "monthly"
)

func (t ScheduleType) Valid() bool {
	return t == ScheduleManual || t == ScheduleWeekly || t == ScheduleMonthly
}

const DeliveryEmail = "email"

type Report struct {
	ID             int          `json:"id"`
	FormID         uuid.UUID    `json:"form_id"`
	Type           ReportType   `json:"type"`
	ScheduleType   ScheduleType `json:"schedule_type"`
	DeliveryMethod string       `json:"delivery_method"`
	NextRun        *time.Time   `json:"next_run"`
	CreatedBy      int          `json:"created_by"`
	CreatedAt      time.Time    `json:"created_at"`
	IsActive       bool         `json:"is_active"`
}

type FormView struct {
	ID        int       `json:"id"`
	FormID    uuid.UUID `json:"form_id"`
	UserID    *int      `json:"user_id,omitempty"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	ViewedAt  time.Time `json:"viewed_at"`
}

type Category struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   int       `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type EntityCategory struct {
	ID         int       `json:"id"`
	Entity     EntityRef `json:"entity"`
	CategoryID int       `json:"category_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Choice is a value/label pair used by type catalogs.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
