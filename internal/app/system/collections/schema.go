// Package collections describes the editable content collections: which
// fields each one has, how they are entered, and how they are ordered.
//
// The definitions live in schemas.yaml, embedded at build time, and drive the
// generic admin editor and the public pages alike.
package collections

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Kind is the input kind of a field.
type Kind string

const (
	KindText       Kind = "text"
	KindTextarea   Kind = "textarea"
	KindHTML       Kind = "html"
	KindNumber     Kind = "number"
	KindDate       Kind = "date"
	KindBool       Kind = "bool"
	KindEmail      Kind = "email"
	KindURL        Kind = "url"
	KindSelect     Kind = "select"
	KindCategories Kind = "categories"
	KindImage      Kind = "image"
)

var knownKinds = map[Kind]bool{
	KindText: true, KindTextarea: true, KindHTML: true, KindNumber: true,
	KindDate: true, KindBool: true, KindEmail: true, KindURL: true,
	KindSelect: true, KindCategories: true, KindImage: true,
}

// Field is one editable field of a document.
type Field struct {
	Key      string   `yaml:"key"`
	Label    string   `yaml:"label"`
	Kind     Kind     `yaml:"kind"`
	Required bool     `yaml:"required"`
	Help     string   `yaml:"help"`
	Max      int      `yaml:"max"` // max length in runes for string kinds
	Options  []string `yaml:"options"`
}

// FoldedKey is where the folded copy of a categories field is stored.
func (f Field) FoldedKey() string { return f.Key + "_ci" }

// Schema is a multi-document content collection.
type Schema struct {
	Name     string   `yaml:"name"`
	Label    string   `yaml:"label"`
	Singular string   `yaml:"singular"`
	Sort     string   `yaml:"sort"`
	Summary  []string `yaml:"summary"`
	Fields   []Field  `yaml:"fields"`
}

// Collection returns the database collection name.
func (s *Schema) Collection() string { return s.Name }

// SortField returns the sort key and whether it is descending.
func (s *Schema) SortField() (string, bool) {
	if strings.HasPrefix(s.Sort, "-") {
		return s.Sort[1:], true
	}
	return s.Sort, false
}

// FieldSet returns the fields as a form layout.
func (s *Schema) FieldSet() FieldSet { return FieldSet(s.Fields) }

// Singleton is a collection holding one document at a well-known id.
type Singleton struct {
	Slug       string  `yaml:"slug"`
	Collection string  `yaml:"collection"`
	ID         string  `yaml:"id"`
	Label      string  `yaml:"label"`
	Fields     []Field `yaml:"fields"`
}

// FieldSet returns the fields as a form layout.
func (s *Singleton) FieldSet() FieldSet { return FieldSet(s.Fields) }

// Assignment is a page section filled with copies of items from Source.
type Assignment struct {
	Name       string `yaml:"name"`
	Collection string `yaml:"collection"`
	Label      string `yaml:"label"`
	Source     string `yaml:"source"`
}

// Registry holds every definition.
type Registry struct {
	Collections []*Schema     `yaml:"collections"`
	Singletons  []*Singleton  `yaml:"singletons"`
	Assignments []*Assignment `yaml:"assignments"`

	byName       map[string]*Schema
	bySlug       map[string]*Singleton
	byAssignment map[string]*Assignment
}

// ErrUnknownCollection is returned for names not present in the registry.
var ErrUnknownCollection = errors.New("unknown collection")

// Parse decodes and validates a registry definition.
func Parse(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse collection schemas: %w", err)
	}
	if err := reg.index(); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *Registry) index() error {
	r.byName = make(map[string]*Schema, len(r.Collections))
	r.bySlug = make(map[string]*Singleton, len(r.Singletons))
	r.byAssignment = make(map[string]*Assignment, len(r.Assignments))

	for _, s := range r.Collections {
		if s.Name == "" {
			return errors.New("collection without a name")
		}
		if _, dup := r.byName[s.Name]; dup {
			return fmt.Errorf("collection %q defined twice", s.Name)
		}
		if err := checkFields(s.Name, s.Fields); err != nil {
			return err
		}
		if s.Singular == "" {
			s.Singular = s.Label
		}
		r.byName[s.Name] = s
	}
	for _, s := range r.Singletons {
		if s.Slug == "" || s.Collection == "" || s.ID == "" {
			return fmt.Errorf("singleton %q needs slug, collection and id", s.Label)
		}
		if _, dup := r.bySlug[s.Slug]; dup {
			return fmt.Errorf("singleton %q defined twice", s.Slug)
		}
		if err := checkFields(s.Slug, s.Fields); err != nil {
			return err
		}
		r.bySlug[s.Slug] = s
	}
	for _, a := range r.Assignments {
		if a.Name == "" || a.Collection == "" {
			return errors.New("assignment needs name and collection")
		}
		if _, ok := r.byName[a.Source]; !ok {
			return fmt.Errorf("assignment %q: source %q is not a collection", a.Name, a.Source)
		}
		r.byAssignment[a.Name] = a
	}
	return nil
}

func checkFields(owner string, fields []Field) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Key == "" {
			return fmt.Errorf("%s: field without a key", owner)
		}
		if strings.HasPrefix(f.Key, "_") || f.Key == "id" || f.Key == "created_at" || f.Key == "updated_at" {
			return fmt.Errorf("%s: field key %q is reserved", owner, f.Key)
		}
		if seen[f.Key] {
			return fmt.Errorf("%s: field %q defined twice", owner, f.Key)
		}
		seen[f.Key] = true
		if !knownKinds[f.Kind] {
			return fmt.Errorf("%s: field %q has unknown kind %q", owner, f.Key, f.Kind)
		}
		if f.Kind == KindSelect && len(f.Options) == 0 {
			return fmt.Errorf("%s: select field %q has no options", owner, f.Key)
		}
	}
	return nil
}

// Collection looks up a content collection by name.
func (r *Registry) Collection(name string) (*Schema, error) {
	if s, ok := r.byName[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
}

// Singleton looks up a singleton by slug.
func (r *Registry) Singleton(slug string) (*Singleton, error) {
	if s, ok := r.bySlug[slug]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, slug)
}

// Assignment looks up an assignment section by name.
func (r *Registry) Assignment(name string) (*Assignment, error) {
	if a, ok := r.byAssignment[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
}

//go:embed schemas.yaml
var defaultSchemas []byte

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry built from the embedded schemas.yaml.
// It panics if the embedded file is invalid, which the package tests catch.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := Parse(defaultSchemas)
		if err != nil {
			panic(err)
		}
		defaultReg = reg
	})
	return defaultReg
}
