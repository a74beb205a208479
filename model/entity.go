package model

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type EntityKind string

const (
	EntityForm    EntityKind = "form"
	EntityProcess EntityKind = "process"
)

// EntityRef points at either a Form or a Process. The zero value is invalid.
type EntityRef struct {
	kind EntityKind
	id   uuid.UUID
}

func FormRef(id uuid.UUID) EntityRef {
	return EntityRef{EntityForm, id}
}

func ProcessRef(id uuid.UUID) EntityRef {
	return EntityRef{EntityProcess, id}
}

func ParseEntityRef(kind, id string) (EntityRef, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return EntityRef{}, Invalid("invalid entity id %q", id)
	}
	switch EntityKind(kind) {
	case EntityForm:
		return FormRef(uid), nil
	case EntityProcess:
		return ProcessRef(uid), nil
	}
	return EntityRef{}, Invalid("entity type must be one of: form, process")
}

func (r EntityRef) Kind() EntityKind { return r.kind }
func (r EntityRef) ID() uuid.UUID    { return r.id }

func (r EntityRef) String() string {
	return fmt.Sprintf("%s:%s", r.kind, r.id)
}

// Match calls exactly one of the given functions depending on the variant.
func (r EntityRef) Match(form, process func(uuid.UUID) error) error {
	switch r.kind {
	case EntityForm:
		return form(r.id)
	case EntityProcess:
		return process(r.id)
	}
	return Invalid("invalid entity reference")
}

type entityRefJSON struct {
	Type string    `json:"entity_type"`
	ID   uuid.UUID `json:"entity_id"`
}

func (r EntityRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(entityRefJSON{string(r.kind), r.id})
}

func (r *EntityRef) UnmarshalJSON(b []byte) error {
	var v struct {
		Type string `json:"entity_type"`
		ID   string `json:"entity_id"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	ref, err := ParseEntityRef(v.Type, v.ID)
	if err != nil {
		return err
	}
	*r = ref
	return nil
}
