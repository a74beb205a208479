package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mbolis/formify/catalog"
	"github.com/mbolis/formify/httpx"
	"github.com/mbolis/formify/log"
	"github.com/mbolis/formify/model"
	"github.com/mbolis/formify/routes/middlewares"
	"github.com/mbolis/formify/service"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	err := v.RegisterValidation("field_type", func(fl validator.FieldLevel) bool {
		return catalog.Known(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
	return v
}

type formRequest struct {
	Title          string `json:"title" validate:"required,max=255"`
	Description    string `json:"description"`
	IsPublic       *bool  `json:"is_public"`
	AccessPassword string `json:"access_password" validate:"max=128"`
	IsActive       *bool  `json:"is_active"`
	Version        int    `json:"version" validate:"gte=0"`
}

func (req formRequest) form() model.Form {
	return model.Form{
		Version:        req.Version,
		Title:          req.Title,
		Description:    req.Description,
		IsPublic:       boolOr(req.IsPublic, true),
		AccessPassword: req.AccessPassword,
		IsActive:       boolOr(req.IsActive, true),
	}
}

type fieldRequest struct {
	Label      string          `json:"label" validate:"required,max=255"`
	FieldType  string          `json:"field_type" validate:"omitempty,field_type"`
	IsRequired bool            `json:"is_required"`
	Options    json.RawMessage `json:"options"`
	OrderNum   int             `json:"order_num" validate:"gte=0"`
}

type reorderRequest struct {
	OrderNum int `json:"order_num" validate:"required,gte=1"`
}

type processRequest struct {
	Title          string `json:"title" validate:"required,max=255"`
	Description    string `json:"description"`
	ProcessType    string `json:"process_type" validate:"omitempty,oneof=linear free"`
	IsPublic       *bool  `json:"is_public"`
	AccessPassword string `json:"access_password" validate:"max=128"`
	IsActive       *bool  `json:"is_active"`
	Version        int    `json:"version" validate:"gte=0"`
}

func (req processRequest) process() model.Process {
	return model.Process{
		Version:        req.Version,
		Title:          req.Title,
		Description:    req.Description,
		ProcessType:    model.ProcessType(req.ProcessType),
		IsPublic:       boolOr(req.IsPublic, true),
		AccessPassword: req.AccessPassword,
		IsActive:       boolOr(req.IsActive, true),
	}
}

type stepRequest struct {
	FormID          string `json:"form_id" validate:"required,uuid"`
	StepName        string `json:"step_name" validate:"required,max=255"`
	StepDescription string `json:"step_description"`
	OrderNum        int    `json:"order_num" validate:"gte=0"`
	IsMandatory     *bool  `json:"is_mandatory"`
}

type stepUpdateRequest struct {
	StepName        string `json:"step_name" validate:"required,max=255"`
	StepDescription string `json:"step_description"`
	IsMandatory     *bool  `json:"is_mandatory"`
}

type submitRequest struct {
	Password string              `json:"password"`
	Answers  []model.AnswerInput `json:"answers"`
}

type validateAccessRequest struct {
	FormID   string `json:"form_id" validate:"required,uuid"`
	Password string `json:"password"`
}

type completeStepRequest struct {
	StepID   string              `json:"step_id" validate:"required,uuid"`
	Password string              `json:"password"`
	Answers  []model.AnswerInput `json:"answers"`
}

type reportRequest struct {
	FormID         string `json:"form_id" validate:"required,uuid"`
	Type           string `json:"type" validate:"required,oneof=summary detailed"`
	ScheduleType   string `json:"schedule_type" validate:"omitempty,oneof=manual weekly monthly"`
	DeliveryMethod string `json:"delivery_method" validate:"omitempty,oneof=email"`
	IsActive       *bool  `json:"is_active"`
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

type linkRequest struct {
	EntityType string `json:"entity_type" validate:"required,oneof=form process"`
	EntityID   string `json:"entity_id" validate:"required,uuid"`
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// decode reads the JSON body into v and validates it. On failure the
// response is already written.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
		return false
	}

	err := validate.Struct(v)
	if err == nil {
		return true
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		httpx.LogInternalError(w, r, "request.validate", err)
		return false
	}
	msgs := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		msgs[i] = describe(fe)
	}
	log.Debugf("request.validate: %s", strings.Join(msgs, "; "))
	httpx.Detail(w, r, http.StatusBadRequest, strings.Join(msgs, " "))
	return false
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", fe.Field())
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID.", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", fe.Field(), fe.Param())
	case "field_type":
		return fmt.Sprintf("Unknown field type '%v'.", fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be at least %s.", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid.", fe.Field())
	}
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.get_url_param."+name)
		return id, false
	}
	return id, true
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.get_url_param."+name)
		return id, false
	}
	return id, true
}

// queryUUID reads a required UUID query parameter, answering 400 with a
// detail message when it is missing or malformed.
func queryUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		httpx.Detail(w, r, http.StatusBadRequest, name+" is required.")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httpx.Detail(w, r, http.StatusBadRequest, name+" must be a valid UUID.")
		return uuid.Nil, false
	}
	return id, true
}

// owner is the authenticated user behind the admin API.
func owner(r *http.Request) int {
	id, _ := middlewares.UserID(r)
	return id
}

func submitter(r *http.Request) service.Submitter {
	by := service.Submitter{
		IPAddress: httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
	if id, ok := middlewares.UserID(r); ok {
		by.UserID = &id
	}
	return by
}

func created(w http.ResponseWriter, r *http.Request, v any) {
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, v)
}
