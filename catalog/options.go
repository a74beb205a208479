package catalog

import "encoding/json"

type Choice struct {
	Value string `json:"value" validate:"required"`
	Label string `json:"label" validate:"required"`
}

type ChoiceOptions struct {
	fieldType FieldType
	Choices   []Choice `json:"choices" validate:"required,min=1,dive"`
}

func newChoice(t FieldType) Options { return &ChoiceOptions{fieldType: t} }

func (o *ChoiceOptions) Type() FieldType { return o.fieldType }

func (o *ChoiceOptions) messages() map[string]string {
	required := "Field type '" + string(o.fieldType) + "' requires choices in options."
	return map[string]string{
		"choices:required": required,
		"choices:min":      required,
		"value:required":   "Each choice must have 'value' and 'label' keys.",
		"label:required":   "Each choice must have 'value' and 'label' keys.",
	}
}

type RatingOptions struct {
	MinValue float64 `json:"min_value"`
	MaxValue float64 `json:"max_value" validate:"gtfield=MinValue"`
	Step     float64 `json:"step" validate:"gt=0"`
}

func (*RatingOptions) Type() FieldType { return Rating }

func (*RatingOptions) messages() map[string]string {
	return map[string]string{
		"max_value:gtfield": "Rating min_value must be less than max_value.",
		"step:gt":           "Rating step must be greater than 0.",
	}
}

type FileOptions struct {
	AllowedTypes []string `json:"allowed_types" validate:"required,min=1,dive,required"`
	MaxSize      *float64 `json:"max_size,omitempty" validate:"omitempty,gt=0"`
}

func (*FileOptions) Type() FieldType { return File }

func (*FileOptions) messages() map[string]string {
	return map[string]string{
		"allowed_types:required": "File field requires allowed_types in options.",
		"allowed_types:min":      "File field requires allowed_types in options.",
		"max_size:gt":            "max_size must be a positive number.",
	}
}

type NumberOptions struct {
	MinValue *float64 `json:"min_value,omitempty"`
	MaxValue *float64 `json:"max_value,omitempty"`
	Step     *float64 `json:"step,omitempty" validate:"omitempty,gt=0"`
}

func (*NumberOptions) Type() FieldType { return Number }

func (*NumberOptions) messages() map[string]string {
	return map[string]string{
		"step:gt": "Number step must be a positive number.",
	}
}

func (o *NumberOptions) check() []string {
	if o.MinValue != nil && o.MaxValue != nil && *o.MinValue >= *o.MaxValue {
		return []string{"Number min_value must be less than max_value."}
	}
	return nil
}

// FreeOptions holds the options of types without constraints, kept as sent.
type FreeOptions struct {
	fieldType FieldType
	Values    map[string]any
}

func newFree(t FieldType) Options { return &FreeOptions{fieldType: t} }

func (o *FreeOptions) Type() FieldType { return o.fieldType }

func (o *FreeOptions) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &o.Values)
}

func (o *FreeOptions) MarshalJSON() ([]byte, error) {
	if o.Values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(o.Values)
}
