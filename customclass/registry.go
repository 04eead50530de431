// Package customclass synthesizes JVM classes from declarative definitions
// and registers them into the class library so the resolver and emitter
// treat them like reflected classes.
package customclass

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"slices"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/tliron/commonlog"

	"github.com/chazu/loopbridge/metabase"
	"github.com/chazu/loopbridge/typelib"
)

var log = commonlog.GetLogger("loopbridge.customclass")

var fingerprintMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("customclass: failed to create CBOR enc mode: %v", err))
	}
	fingerprintMode = em
}

// EnumType is the pseudo-type marking a property as a nested enum.
const EnumType = "enum"

// Definition is a declarative class definition.
type Definition struct {
	Name        string        `toml:"name" cbor:"1,keyasint"`
	Package     string        `toml:"package,omitempty" cbor:"2,keyasint,omitempty"`
	Extends     string        `toml:"extends,omitempty" cbor:"3,keyasint,omitempty"`
	Implements  []string      `toml:"implements,omitempty" cbor:"4,keyasint,omitempty"`
	Attributes  []string      `toml:"attributes,omitempty" cbor:"5,keyasint,omitempty"`
	Annotations []string      `toml:"annotations,omitempty" cbor:"6,keyasint,omitempty"`
	Methods     []MethodDef   `toml:"methods,omitempty" cbor:"7,keyasint,omitempty"`
	Properties  []PropertyDef `toml:"properties,omitempty" cbor:"8,keyasint,omitempty"`
}

// MethodDef defines one method overload. Name "<init>" defines a
// constructor.
type MethodDef struct {
	Name        string   `toml:"name" cbor:"1,keyasint"`
	Args        []string `toml:"args,omitempty" cbor:"2,keyasint,omitempty"`
	Returns     string   `toml:"returns,omitempty" cbor:"3,keyasint,omitempty"`
	Attributes  []string `toml:"attributes,omitempty" cbor:"4,keyasint,omitempty"`
	Annotations []string `toml:"annotations,omitempty" cbor:"5,keyasint,omitempty"`
	Signature   string   `toml:"signature,omitempty" cbor:"6,keyasint,omitempty"`
	// Action is the script body invoked when the VM calls the method.
	Action string `toml:"action,omitempty" cbor:"7,keyasint,omitempty"`
}

// PropertyDef defines a field, a constant or (Type "enum") a nested enum.
type PropertyDef struct {
	Name        string   `toml:"name" cbor:"1,keyasint"`
	Type        string   `toml:"type" cbor:"2,keyasint"`
	Value       string   `toml:"value,omitempty" cbor:"3,keyasint,omitempty"`
	Values      []string `toml:"values,omitempty" cbor:"4,keyasint,omitempty"`
	Attributes  []string `toml:"attributes,omitempty" cbor:"5,keyasint,omitempty"`
	Annotations []string `toml:"annotations,omitempty" cbor:"6,keyasint,omitempty"`
}

// Fingerprint is the hex SHA-1 of the canonical CBOR encoding.
func (d *Definition) Fingerprint() (string, error) {
	data, err := fingerprintMode.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("customclass: fingerprint %s: %w", d.Name, err)
	}
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

// Action is one method overload whose body is a script callback.
type Action struct {
	Class  string
	Method string
	// Index is the overload's position in its method bucket.
	Index int
	// Name is the bridge function bound to the callback.
	Name   string
	Body   string
	Target *metabase.Method
}

// Registry registers custom classes into a library. It is not safe for
// concurrent use.
type Registry struct {
	lib   *metabase.Library
	types *typelib.Resolver
	appID string

	order        []string
	nested       map[string]bool
	fingerprints map[string]string
	conflicts    []string
}

// NewRegistry returns a registry writing into the library behind types.
// appID is the default package.
func NewRegistry(types *typelib.Resolver, appID string) *Registry {
	return &Registry{
		lib:          types.Library(),
		types:        types,
		appID:        appID,
		nested:       make(map[string]bool),
		fingerprints: make(map[string]string),
	}
}

// QualifiedName returns the fully qualified name def registers under.
func (r *Registry) QualifiedName(def *Definition) string {
	pkg := def.Package
	if pkg == "" {
		pkg = r.appID
	}
	if pkg == "" {
		return def.Name
	}
	return pkg + "." + def.Name
}

// Define registers def. If the name is already in the library the existing
// class is returned unchanged and a warning is logged.
func (r *Registry) Define(def Definition) (*metabase.Class, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("customclass: class definition without a name")
	}
	name := r.QualifiedName(&def)

	fp, err := def.Fingerprint()
	if err != nil {
		return nil, err
	}

	if existing := r.lib.Class(name); existing != nil {
		if prev, ok := r.fingerprints[name]; ok && prev == fp {
			log.Warningf("%s is already defined in metabase with an identical definition. Skip.", name)
		} else {
			log.Warningf("%s is already defined in metabase. Skip.", name)
			r.conflicts = append(r.conflicts, name)
		}
		return existing, nil
	}

	c := &metabase.Class{
		Package:     def.Package,
		SuperClass:  def.Extends,
		Interfaces:  slices.Clone(def.Implements),
		Attributes:  slices.Clone(def.Attributes),
		Annotations: slices.Clone(def.Annotations),
		Metatype:    "class",
	}
	if c.Package == "" {
		c.Package = r.appID
	}
	if c.SuperClass == "" {
		c.SuperClass = r.lib.Root()
	}
	if len(c.Attributes) == 0 {
		c.Attributes = []string{"public"}
	}
	if slices.Contains(c.Attributes, "interface") {
		c.Metatype = "interface"
	}
	if c.Interfaces == nil {
		c.Interfaces = []string{}
	}

	methods := slices.Clone(def.Methods)
	if !slices.ContainsFunc(methods, func(m MethodDef) bool { return m.Name == metabase.ConstructorName }) {
		if err := r.checkDefaultConstructor(name, c.SuperClass); err != nil {
			return nil, err
		}
		methods = append(methods, MethodDef{
			Name:       metabase.ConstructorName,
			Attributes: []string{"public"},
			Signature:  "()V",
		})
	}

	// The class must be visible before signatures are computed so methods
	// may refer to it and to its nested types.
	r.lib.Add(name, c)
	var enums []string
	fail := func(err error) (*metabase.Class, error) {
		delete(r.lib.Classes, name)
		r.types.Forget(name)
		for _, e := range enums {
			delete(r.lib.Classes, e)
			delete(r.nested, e)
			r.types.Forget(e)
		}
		return nil, err
	}

	for _, pd := range def.Properties {
		p, enum, err := r.property(name, c, &def, pd)
		if err != nil {
			return fail(err)
		}
		if enum != "" {
			enums = append(enums, enum)
		}
		c.Properties[pd.Name] = p
	}

	for _, md := range methods {
		m, err := r.method(name, md)
		if err != nil {
			return fail(err)
		}
		c.Methods[md.Name] = append(c.Methods[md.Name], m)
	}

	r.order = append(r.order, name)
	r.fingerprints[name] = fp
	log.Debugf("registered custom class %s", name)
	return c, nil
}

func (r *Registry) checkDefaultConstructor(class, super string) error {
	sc := r.lib.Class(super)
	if sc == nil {
		return fmt.Errorf("customclass: superclass %s of %s is not a known class", super, class)
	}
	ctors := sc.Methods[metabase.ConstructorName]
	if len(ctors) == 0 {
		return nil
	}
	for _, m := range ctors {
		if len(m.Args) == 0 && !m.HasAttribute("private") {
			return nil
		}
	}
	return fmt.Errorf("customclass: %s needs a constructor: superclass %s has no usable default constructor", class, super)
}

func (r *Registry) method(class string, md MethodDef) (*metabase.Method, error) {
	m := &metabase.Method{
		Name:        md.Name,
		Args:        make([]metabase.Arg, len(md.Args)),
		ReturnType:  md.Returns,
		Attributes:  slices.Clone(md.Attributes),
		Annotations: slices.Clone(md.Annotations),
		Exceptions:  []string{},
		Instance:    !slices.Contains(md.Attributes, "static"),
		HasAction:   md.Action != "",
		Action:      md.Action,
		Owner:       class,
	}
	for i, a := range md.Args {
		m.Args[i] = metabase.Arg{Type: a}
	}
	if m.ReturnType == "" {
		m.ReturnType = "void"
	}
	if m.Attributes == nil {
		m.Attributes = []string{}
	}

	m.Signature = md.Signature
	if m.Signature == "" {
		sig, err := r.types.MethodSignature(md.Args, m.ReturnType)
		if err != nil {
			return nil, fmt.Errorf("customclass: %s.%s: %w", class, md.Name, err)
		}
		m.Signature = sig
	}
	return m, nil
}

func (r *Registry) property(class string, c *metabase.Class, def *Definition, pd PropertyDef) (*metabase.Property, string, error) {
	p := &metabase.Property{
		Name:        pd.Name,
		Value:       pd.Value,
		Attributes:  slices.Clone(pd.Attributes),
		Annotations: slices.Clone(pd.Annotations),
		Owner:       class,
	}
	if p.Attributes == nil {
		p.Attributes = []string{}
	}

	if pd.Type == EnumType {
		p.Type = class + "$" + pd.Name
		p.Metatype = "enum"
		p.EnumValues = slices.Clone(pd.Values)
		if !r.defineEnum(c, p) {
			return p, "", nil
		}
		return p, p.Type, nil
	}

	p.Type = pd.Type
	if slices.ContainsFunc(def.Properties, func(o PropertyDef) bool { return o.Name == pd.Type }) {
		p.Type = class + "$" + pd.Type
		p.InnerType = pd.Type
	}
	p.Metatype = "field"
	if p.HasAttribute("final") {
		p.Metatype = "constant"
	}
	return p, "", nil
}

// defineEnum registers the nested enum class behind p.
func (r *Registry) defineEnum(outer *metabase.Class, p *metabase.Property) bool {
	if r.lib.Has(p.Type) {
		log.Warningf("%s is already defined in metabase. Skip.", p.Type)
		return false
	}
	e := &metabase.Class{
		Package:    outer.Package,
		SuperClass: metabase.EnumBaseClass,
		Interfaces: []string{},
		Metatype:   "class",
		Attributes: slices.Clone(p.Attributes),
		Properties: make(map[string]*metabase.Property, len(p.EnumValues)),
	}
	for _, v := range p.EnumValues {
		e.Properties[v] = &metabase.Property{
			Name:       v,
			Type:       p.Type,
			Metatype:   "field",
			Attributes: []string{"final", "public", "static"},
		}
	}
	r.lib.Add(p.Type, e)
	r.nested[p.Type] = true
	return true
}

// Classes returns the registered top-level classes in definition order.
func (r *Registry) Classes() []string {
	return slices.Clone(r.order)
}

// Conflicts returns, in definition order, the names whose redefinition was
// skipped although it differed from the class already registered.
func (r *Registry) Conflicts() []string {
	return slices.Clone(r.conflicts)
}

// IsNested reports whether name was synthesized as a nested enum.
func (r *Registry) IsNested(name string) bool {
	return r.nested[name]
}

// Actions returns every method of class carrying a script action, ordered by
// method name and then overload index. Constructors never carry actions.
func (r *Registry) Actions(class string) []Action {
	c := r.lib.Class(class)
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Methods))
	for name := range c.Methods {
		if name != metabase.ConstructorName {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []Action
	for _, name := range names {
		for i, m := range c.Methods[name] {
			if !m.HasAction {
				continue
			}
			out = append(out, Action{
				Class:  class,
				Method: name,
				Index:  i,
				Name:   typelib.ActionName(class, name, i),
				Body:   m.Action,
				Target: m,
			})
		}
	}
	return out
}
