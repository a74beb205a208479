// Package catalog knows the available field types and validates the
// type-specific options a field carries.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mbolis/formify/model"
)

type FieldType string

const (
	Text        FieldType = "text"
	Textarea    FieldType = "textarea"
	Email       FieldType = "email"
	Date        FieldType = "date"
	Number      FieldType = "number"
	Select      FieldType = "select"
	Radio       FieldType = "radio"
	Checkbox    FieldType = "checkbox"
	Multiselect FieldType = "multiselect"
	Rating      FieldType = "rating"
	File        FieldType = "file"
)

// Options is implemented by one struct per field type.
type Options interface {
	Type() FieldType
}

type entry struct {
	label string
	new   func(FieldType) Options
}

var catalog = []FieldType{Text, Textarea, Email, Date, Number, Select, Radio, Checkbox, Multiselect, Rating, File}

var registry = map[FieldType]entry{
	Text:        {"Text Input", newFree},
	Textarea:    {"Text Area", newFree},
	Email:       {"Email Address", newFree},
	Date:        {"Date", newFree},
	Number:      {"Number", func(FieldType) Options { return &NumberOptions{} }},
	Select:      {"Dropdown Selection", newChoice},
	Radio:       {"Radio Buttons", newChoice},
	Checkbox:    {"Checkboxes", newChoice},
	Multiselect: {"Multiple Selection", newChoice},
	Rating:      {"Rating", func(FieldType) Options { return &RatingOptions{MinValue: 1, MaxValue: 5, Step: 1} }},
	File:        {"File Upload", func(FieldType) Options { return &FileOptions{} }},
}

// Types lists the field types in a fixed order, for client discovery.
func Types() []model.Choice {
	types := make([]model.Choice, len(catalog))
	for i, t := range catalog {
		types[i] = model.Choice{Value: string(t), Label: registry[t].label}
	}
	return types
}

func Known(t string) bool {
	_, ok := registry[FieldType(t)]
	return ok
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate decodes raw into the options struct of fieldType and checks it.
// Failures are *model.ValidationError naming every broken constraint.
func Validate(fieldType string, raw json.RawMessage) (Options, error) {
	e, ok := registry[FieldType(fieldType)]
	if !ok {
		return nil, model.Invalid("Unknown field type '%s'.", fieldType)
	}
	opts := e.new(FieldType(fieldType))

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, opts); err != nil {
			return nil, model.Invalid("Invalid options for field type '%s': %s", fieldType, err)
		}
	}

	var problems []string
	if err := validate.Struct(opts); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, err
		}
		seen := map[string]bool{}
		for _, fe := range verrs {
			msg := describe(opts, fe)
			if !seen[msg] {
				seen[msg] = true
				problems = append(problems, msg)
			}
		}
	}
	if c, ok := opts.(interface{ check() []string }); ok {
		problems = append(problems, c.check()...)
	}
	if len(problems) > 0 {
		return nil, model.Invalid("%s", strings.Join(problems, " "))
	}
	return opts, nil
}

// Encode returns the canonical JSON stored for opts.
func Encode(opts Options) (json.RawMessage, error) {
	b, err := json.Marshal(opts)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func describe(opts Options, fe validator.FieldError) string {
	if m, ok := opts.(interface{ messages() map[string]string }); ok {
		if msg, ok := m.messages()[fe.Field()+":"+fe.Tag()]; ok {
			return msg
		}
	}
	return fmt.Sprintf("Option '%s' failed '%s'.", fe.Field(), fe.Tag())
}
