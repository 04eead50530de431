// Package metabase holds the reflected model of the JVM class library and
// the on-disk cache it is loaded from.
package metabase

import (
	"slices"
	"sort"
)

// RootClassName is the class every other class resolves to through its
// superclass chain.
const RootClassName = "java.lang.Object"

// EnumBaseClass is the superclass of every synthesized enum type.
const EnumBaseClass = "java.lang.Enum"

// ConstructorName is the method bucket holding constructors.
const ConstructorName = "<init>"

// Library is the in-memory metabase: every known class keyed by its fully
// qualified dotted name.
//
// A Library is read-only after Load. The custom class registry is the only
// writer, and it is not safe for concurrent use; drivers that compile units
// in parallel give each unit its own Clone.
type Library struct {
	Classes map[string]*Class `json:"classes"`
}

// Class is one JVM class or interface.
type Class struct {
	Name        string               `json:"-"`
	Package     string               `json:"package"`
	SuperClass  string               `json:"superClass,omitempty"`
	Interfaces  []string             `json:"interfaces"`
	Metatype    string               `json:"metatype"`
	Attributes  []string             `json:"attributes"`
	Annotations []string             `json:"annotations,omitempty"`
	Methods     map[string][]*Method `json:"methods"`
	Properties  map[string]*Property `json:"properties"`
	RootClass   bool                 `json:"rootClass,omitempty"`
}

// Method is one overload of a method name.
type Method struct {
	Name        string   `json:"name,omitempty"`
	Args        []Arg    `json:"args"`
	ReturnType  string   `json:"returnType"`
	Signature   string   `json:"signature"`
	Attributes  []string `json:"attributes"`
	Annotations []string `json:"annotations,omitempty"`
	Exceptions  []string `json:"exceptions,omitempty"`
	Instance    bool     `json:"instance"`

	// Only set for methods of custom classes.
	HasAction bool   `json:"hasAction,omitempty"`
	Action    string `json:"action,omitempty"`

	// Owner is the class declaring this overload. Filled in by Link.
	Owner string `json:"-"`
}

// Arg is a method parameter. Parameter names are not part of the model.
type Arg struct {
	Type string `json:"type"`
}

// Property is a field or constant.
type Property struct {
	Name        string   `json:"name,omitempty"`
	Type        string   `json:"type"`
	Attributes  []string `json:"attributes"`
	Annotations []string `json:"annotations,omitempty"`
	Metatype    string   `json:"metatype"`
	Value       string   `json:"value,omitempty"`
	EnumValues  []string `json:"enumValues,omitempty"`
	InnerType   string   `json:"innerType,omitempty"`

	Owner string `json:"-"`
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{Classes: make(map[string]*Class)}
}

// Class returns the named class or nil.
func (l *Library) Class(name string) *Class {
	if l == nil {
		return nil
	}
	return l.Classes[name]
}

// Has reports whether the named class exists.
func (l *Library) Has(name string) bool {
	return l.Class(name) != nil
}

// Root returns the name of the root class. Falls back to RootClassName when
// no class carries the root marker.
func (l *Library) Root() string {
	for name, c := range l.Classes {
		if c.RootClass {
			return name
		}
	}
	return RootClassName
}

// Add inserts a class under name. An existing entry is never replaced;
// Add reports false in that case.
func (l *Library) Add(name string, c *Class) bool {
	if _, exists := l.Classes[name]; exists {
		return false
	}
	if c.Methods == nil {
		c.Methods = make(map[string][]*Method)
	}
	if c.Properties == nil {
		c.Properties = make(map[string]*Property)
	}
	l.Classes[name] = c
	linkClass(name, c)
	return true
}

// Names returns all class names, sorted.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.Classes))
	for name := range l.Classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Link fills in the back references that are not part of the serialized
// form and marks the root class.
func (l *Library) Link() {
	for name, c := range l.Classes {
		if c.SuperClass == "" && !c.RootClass && c.Metatype != "interface" {
			c.RootClass = true
		}
		if c.Methods == nil {
			c.Methods = make(map[string][]*Method)
		}
		if c.Properties == nil {
			c.Properties = make(map[string]*Property)
		}
		linkClass(name, c)
	}
}

func linkClass(name string, c *Class) {
	c.Name = name
	for mname, overloads := range c.Methods {
		for _, m := range overloads {
			if m.Name == "" {
				m.Name = mname
			}
			m.Owner = name
		}
	}
	for pname, p := range c.Properties {
		if p.Name == "" {
			p.Name = pname
		}
		p.Owner = name
	}
}

// Clone returns a deep copy suitable for per-unit isolated registration.
func (l *Library) Clone() *Library {
	out := NewLibrary()
	for name, c := range l.Classes {
		out.Classes[name] = c.clone()
	}
	return out
}

func (c *Class) clone() *Class {
	cp := *c
	cp.Interfaces = slices.Clone(c.Interfaces)
	cp.Attributes = slices.Clone(c.Attributes)
	cp.Annotations = slices.Clone(c.Annotations)
	cp.Methods = make(map[string][]*Method, len(c.Methods))
	for name, overloads := range c.Methods {
		dup := make([]*Method, len(overloads))
		for i, m := range overloads {
			mc := *m
			mc.Args = slices.Clone(m.Args)
			mc.Attributes = slices.Clone(m.Attributes)
			mc.Annotations = slices.Clone(m.Annotations)
			mc.Exceptions = slices.Clone(m.Exceptions)
			dup[i] = &mc
		}
		cp.Methods[name] = dup
	}
	cp.Properties = make(map[string]*Property, len(c.Properties))
	for name, p := range c.Properties {
		pc := *p
		pc.Attributes = slices.Clone(p.Attributes)
		pc.Annotations = slices.Clone(p.Annotations)
		pc.EnumValues = slices.Clone(p.EnumValues)
		cp.Properties[name] = &pc
	}
	return &cp
}

// SimpleName returns the class name without its package.
func (c *Class) SimpleName() string {
	if c.Package != "" && len(c.Name) > len(c.Package)+1 {
		return c.Name[len(c.Package)+1:]
	}
	for i := len(c.Name) - 1; i >= 0; i-- {
		if c.Name[i] == '.' {
			return c.Name[i+1:]
		}
	}
	return c.Name
}

// IsInterface reports whether the class is an interface.
func (c *Class) IsInterface() bool {
	return c.Metatype == "interface" || slices.Contains(c.Attributes, "interface")
}

// HasAttribute reports whether attr is in the method's attribute list.
func (m *Method) HasAttribute(attr string) bool {
	return slices.Contains(m.Attributes, attr)
}

// IsConstructor reports whether the method is an instance or class initializer.
func (m *Method) IsConstructor() bool {
	return m.Name == ConstructorName || m.Name == "<clinit>"
}

// ArgTypes returns the declared parameter types in order.
func (m *Method) ArgTypes() []string {
	types := make([]string, len(m.Args))
	for i, a := range m.Args {
		types[i] = a.Type
	}
	return types
}

// HasAttribute reports whether attr is in the property's attribute list.
func (p *Property) HasAttribute(attr string) bool {
	return slices.Contains(p.Attributes, attr)
}

// Writable reports whether the property has a setter: neither final nor
// private.
func (p *Property) Writable() bool {
	return !p.HasAttribute("final") && !p.HasAttribute("private")
}

// IsStatic reports whether the property belongs to the class rather than an
// instance.
func (p *Property) IsStatic() bool {
	return p.HasAttribute("static")
}
