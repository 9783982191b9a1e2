package ioc

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/junioryono/ioc/internal/reflection"
)

// TypeReflect holds everything the annotations of one class declare. It is
// built once per class by ReflectStore.Create and cached for the lifetime of
// the store.
type TypeReflect struct {
	Type reflect.Type

	// Annotations lists the annotation occurrences in declaration order,
	// followed by those derived from struct tags.
	Annotations []Annotation

	// Provides are the extra tokens the class is bound under.
	Provides []ProvideMeta

	// Refs are bindings scoped to other target classes.
	Refs []RefMeta

	// ClassProviders are private providers visible only to this class.
	ClassProviders []ProviderSpec

	// Properties are the annotated fields in declaration order.
	Properties []*PropertyMeta

	Methods map[string]*MethodMeta

	// Extends is the extension chain: embedded structs depth-first, then
	// explicit Extends annotations.
	Extends []reflect.Type

	Singleton bool
	TTL       time.Duration
	HasTTL    bool
	AutoRuns  []AutoRunMeta

	constructor *reflection.FuncInfo
	params      []*ParamMeta
	paramAnns   []Annotation
	paramsOnce  sync.Once
	paramsErr   error

	mu       sync.RWMutex
	injector *Injector
}

// PropertyMeta describes an annotated field.
type PropertyMeta struct {
	Name  string
	Type  reflect.Type
	Index []int

	// Injected is set when the field carries an Inject annotation or an
	// inject struct tag.
	Injected bool
	Token    Token // nil injects by field type
	Alias    string
	Optional bool
	Default  Token

	Annotations []Annotation
}

// Key returns the canonical key injected into the property.
func (p *PropertyMeta) Key() Key {
	if p.Token == nil {
		return KeyOf(p.Type, p.Alias)
	}
	return KeyOf(p.Token, p.Alias)
}

// ParamMeta describes a constructor parameter.
type ParamMeta struct {
	Index   int
	Type    reflect.Type
	Token   Token // nil resolves by parameter type
	Alias   string
	Default Token
}

// Key returns the canonical key resolved for the parameter.
func (p *ParamMeta) Key() Key {
	if p.Token == nil {
		return KeyOf(p.Type, p.Alias)
	}
	return KeyOf(p.Token, p.Alias)
}

// MethodMeta describes an exported method of a class.
type MethodMeta struct {
	Name        string
	Params      []reflect.Type
	Out         []reflect.Type
	Annotations []Annotation
}

// HasAnnotation reports whether the class declares an annotation named name.
func (r *TypeReflect) HasAnnotation(name string) bool {
	for _, a := range r.Annotations {
		if a.Name == name {
			return true
		}
	}
	return false
}

// ClassAnnotations returns the first class-level occurrence of every
// annotation name, in declaration order.
func (r *TypeReflect) ClassAnnotations() []Annotation {
	seen := make(map[string]bool)
	var result []Annotation
	for _, a := range r.Annotations {
		if a.Target != TargetClass || seen[a.Name] {
			continue
		}
		seen[a.Name] = true
		result = append(result, a)
	}
	return result
}

// AnnotationsFor returns the annotations attached to target kinds, in
// declaration order.
func (r *TypeReflect) AnnotationsFor(targets ...Target) []Annotation {
	var result []Annotation
	for _, a := range r.Annotations {
		for _, t := range targets {
			if a.Target == t {
				result = append(result, a)
				break
			}
		}
	}
	return result
}

// AnnotationNames returns the distinct annotation names in declaration order.
func (r *TypeReflect) AnnotationNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, a := range r.Annotations {
		if !seen[a.Name] {
			seen[a.Name] = true
			names = append(names, a.Name)
		}
	}
	return names
}

// Property returns the annotated property named name.
func (r *TypeReflect) Property(name string) *PropertyMeta {
	for _, p := range r.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// HasConstructor reports whether the class declares a constructor function.
func (r *TypeReflect) HasConstructor() bool {
	return r.constructor != nil
}

// Params returns the constructor parameters. They are computed on first use
// and cached.
func (r *TypeReflect) Params() ([]*ParamMeta, error) {
	r.paramsOnce.Do(func() {
		if r.constructor == nil {
			if len(r.paramAnns) > 0 {
				r.paramsErr = InvalidAnnotationError{
					Type:       r.Type,
					Annotation: AnnotationParam,
					Cause:      fmt.Errorf("class has no constructor"),
				}
			}
			return
		}

		params := make([]*ParamMeta, len(r.constructor.Parameters))
		for i, p := range r.constructor.Parameters {
			params[i] = &ParamMeta{Index: p.Index, Type: p.Type}
		}

		for _, a := range r.paramAnns {
			if a.Index < 0 || a.Index >= len(params) {
				r.paramsErr = InvalidAnnotationError{
					Type:       r.Type,
					Annotation: a.Name,
					Member:     a.Member,
					Cause:      fmt.Errorf("parameter index %d out of range", a.Index),
				}
				return
			}
			meta, _ := a.Metadata.(InjectMeta)
			params[a.Index].Token = meta.Token
			params[a.Index].Alias = meta.Alias
			params[a.Index].Default = meta.Default
		}

		r.params = params
	})

	return r.params, r.paramsErr
}

// Injector returns the injector that owns the class registration, or nil
// when the class is not registered.
func (r *TypeReflect) Injector() *Injector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.injector
}

func (r *TypeReflect) attach(inj *Injector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.injector == nil {
		r.injector = inj
	}
}

func (r *TypeReflect) detach(inj *Injector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.injector == inj {
		r.injector = nil
	}
}

// MetadataParser derives TypeReflect metadata from one annotation occurrence.
type MetadataParser func(r *TypeReflect, a Annotation) error

// ReflectStore caches the TypeReflect of every class seen by a container.
type ReflectStore struct {
	mu       sync.RWMutex
	reflects map[reflect.Type]*TypeReflect
	parsers  map[string]MetadataParser
	analyzer *reflection.Analyzer
}

// NewReflectStore creates an empty store with the built-in metadata parsers.
func NewReflectStore() *ReflectStore {
	s := &ReflectStore{
		reflects: make(map[reflect.Type]*TypeReflect),
		analyzer: reflection.New(),
	}

	s.parsers = map[string]MetadataParser{
		AnnotationSingleton:   parseSingleton,
		AnnotationProvidedAs:  parseProvidedAs,
		AnnotationRefs:        parseRefs,
		AnnotationProviders:   parseProviders,
		AnnotationExtends:     s.parseExtends,
		AnnotationInject:      parseInject,
		AnnotationParam:       parseParam,
		AnnotationConstructor: s.parseConstructor,
		AnnotationAutoRun:     parseAutoRun,
		AnnotationTTL:         parseTTL,
	}

	return s
}

// RegisterParser sets the metadata parser for annotations named name,
// replacing any previous parser. It affects classes reflected afterwards.
func (s *ReflectStore) RegisterParser(name string, parser MetadataParser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parsers[name] = parser
}

// Get returns the TypeReflect of the class behind token. ok is false when
// the class was never reflected.
func (s *ReflectStore) Get(token Token) (*TypeReflect, bool) {
	t, ok := KeyOf(token).Class()
	if !ok {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reflects[t]
	return r, ok
}

// Has reports whether the class behind token was reflected.
func (s *ReflectStore) Has(token Token) bool {
	_, ok := s.Get(token)
	return ok
}

// Len returns the number of reflected classes.
func (s *ReflectStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reflects)
}

// Create returns the TypeReflect of the class behind token, building it from
// the class declarations and struct tags on first use. No pipeline runs.
func (s *ReflectStore) Create(token Token) (*TypeReflect, error) {
	key := KeyOf(token)
	t, ok := key.Class()
	if !ok {
		return nil, RegistrationError{Type: key.Type(), Key: key, Operation: "reflect", Cause: ErrNotAClass}
	}

	s.mu.RLock()
	r, ok := s.reflects[t]
	s.mu.RUnlock()
	if ok {
		return r, nil
	}

	r, err := s.build(t)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.reflects[t]; ok {
		return existing, nil
	}
	s.reflects[t] = r
	return r, nil
}

// IsExtends reports whether the class behind token is base, extends base
// through its extension chain, or implements base when base is an interface.
func (s *ReflectStore) IsExtends(token Token, base Token) bool {
	t := KeyOf(token).Type()
	b := KeyOf(base).Type()
	if t == nil || b == nil {
		return false
	}

	if t == b {
		return true
	}

	if b.Kind() == reflect.Interface {
		if t.Implements(b) {
			return true
		}
		if t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(b) {
			return true
		}
	}

	if t.Kind() != reflect.Struct {
		return false
	}

	r, err := s.Create(t)
	if err != nil {
		return false
	}

	for _, ancestor := range r.Extends {
		if ancestor == b {
			return true
		}
	}

	return false
}

func (s *ReflectStore) build(t reflect.Type) (*TypeReflect, error) {
	info, err := s.analyzer.AnalyzeClass(t)
	if err != nil {
		return nil, InvalidAnnotationError{Type: t, Annotation: AnnotationInject, Cause: err}
	}

	r := &TypeReflect{
		Type:    t,
		Methods: make(map[string]*MethodMeta, len(info.Methods)),
		Extends: append([]reflect.Type(nil), info.Ancestors...),
	}

	for _, m := range info.Methods {
		r.Methods[m.Name] = &MethodMeta{Name: m.Name, Params: m.Params, Out: m.Out}
	}

	declared := Declarations(t)
	explicit := make(map[string]bool)
	for _, a := range declared {
		if a.Name == AnnotationInject && a.Target == TargetProperty {
			explicit[a.Member] = true
		}
	}

	r.Annotations = append(r.Annotations, declared...)
	for _, f := range info.Fields {
		if explicit[f.Name] {
			continue
		}

		meta := InjectMeta{Alias: f.Alias, Optional: f.Optional}
		if f.Token != "" {
			meta.Token = f.Token
		}

		r.Annotations = append(r.Annotations, Annotation{
			Name:     AnnotationInject,
			Target:   TargetProperty,
			Member:   f.Name,
			Metadata: meta,
		})
	}

	for i := range r.Annotations {
		a := r.Annotations[i]
		if a.Name == "" {
			return nil, InvalidAnnotationError{Type: t, Annotation: "<unnamed>", Cause: fmt.Errorf("annotation name cannot be empty")}
		}

		if err := r.attachMember(a); err != nil {
			return nil, err
		}

		s.mu.RLock()
		parser := s.parsers[a.Name]
		s.mu.RUnlock()

		if parser == nil {
			continue
		}

		if err := parser(r, a); err != nil {
			if _, ok := err.(InvalidAnnotationError); ok {
				return nil, err
			}
			return nil, InvalidAnnotationError{Type: t, Annotation: a.Name, Member: a.Member, Cause: err}
		}
	}

	sort.SliceStable(r.AutoRuns, func(i, j int) bool {
		return r.AutoRuns[i].Order < r.AutoRuns[j].Order
	})

	return r, nil
}

// attachMember records a member annotation on its property or method.
func (r *TypeReflect) attachMember(a Annotation) error {
	switch a.Target {
	case TargetProperty:
		p, err := r.ensureProperty(a)
		if err != nil {
			return err
		}
		p.Annotations = append(p.Annotations, a)

	case TargetMethod:
		if a.Member == "constructor" {
			return nil
		}
		m, ok := r.Methods[a.Member]
		if !ok {
			return InvalidAnnotationError{
				Type:       r.Type,
				Annotation: a.Name,
				Member:     a.Member,
				Cause:      fmt.Errorf("no exported method %s on %s", a.Member, formatType(reflect.PointerTo(r.Type))),
			}
		}
		m.Annotations = append(m.Annotations, a)
	}

	return nil
}

func (r *TypeReflect) ensureProperty(a Annotation) (*PropertyMeta, error) {
	if p := r.Property(a.Member); p != nil {
		return p, nil
	}

	field, ok := r.Type.FieldByName(a.Member)
	if !ok {
		return nil, InvalidAnnotationError{
			Type:       r.Type,
			Annotation: a.Name,
			Member:     a.Member,
			Cause:      fmt.Errorf("no field %s", a.Member),
		}
	}

	if !field.IsExported() {
		return nil, InvalidAnnotationError{
			Type:       r.Type,
			Annotation: a.Name,
			Member:     a.Member,
			Cause:      fmt.Errorf("field is not exported"),
		}
	}

	// Fields promoted through embedded pointers are not settable on a
	// freshly built instance.
	current := r.Type
	for _, i := range field.Index[:len(field.Index)-1] {
		current = current.Field(i).Type
		if current.Kind() == reflect.Pointer {
			return nil, InvalidAnnotationError{
				Type:       r.Type,
				Annotation: a.Name,
				Member:     a.Member,
				Cause:      fmt.Errorf("field is promoted through an embedded pointer"),
			}
		}
	}

	p := &PropertyMeta{Name: field.Name, Type: field.Type, Index: field.Index}
	r.Properties = append(r.Properties, p)
	return p, nil
}

func parseSingleton(r *TypeReflect, _ Annotation) error {
	r.Singleton = true
	return nil
}

func parseProvidedAs(r *TypeReflect, a Annotation) error {
	meta, ok := a.Metadata.(ProvideMeta)
	if !ok || meta.Token == nil {
		return ErrNilToken
	}
	r.Provides = append(r.Provides, meta)
	return nil
}

func parseRefs(r *TypeReflect, a Annotation) error {
	meta, ok := a.Metadata.(RefMeta)
	if !ok || meta.Provide == nil {
		return ErrNilToken
	}
	if meta.Target == nil {
		return fmt.Errorf("reference target cannot be nil")
	}
	r.Refs = append(r.Refs, meta)
	return nil
}

func parseProviders(r *TypeReflect, a Annotation) error {
	specs, _ := a.Metadata.([]ProviderSpec)
	for _, spec := range specs {
		if err := spec.validate(); err != nil {
			return err
		}
	}
	r.ClassProviders = append(r.ClassProviders, specs...)
	return nil
}

func (s *ReflectStore) parseExtends(r *TypeReflect, a Annotation) error {
	base := KeyOf(a.Metadata).Type()
	if base == nil {
		return fmt.Errorf("base must be a type token, got %T", a.Metadata)
	}

	chain := []reflect.Type{base}
	if base.Kind() == reflect.Struct {
		info, err := s.analyzer.AnalyzeClass(base)
		if err != nil {
			return err
		}
		chain = append(chain, info.Ancestors...)
	}

	for _, t := range chain {
		if t == r.Type || containsType(r.Extends, t) {
			continue
		}
		r.Extends = append(r.Extends, t)
	}
	return nil
}

func parseInject(r *TypeReflect, a Annotation) error {
	p := r.Property(a.Member)
	if p == nil {
		return fmt.Errorf("no property %s", a.Member)
	}

	meta, _ := a.Metadata.(InjectMeta)
	p.Injected = true
	p.Token = meta.Token
	p.Alias = meta.Alias
	p.Optional = meta.Optional
	p.Default = meta.Default
	return nil
}

func parseParam(r *TypeReflect, a Annotation) error {
	if _, ok := a.Metadata.(InjectMeta); !ok {
		return fmt.Errorf("metadata must be InjectMeta, got %T", a.Metadata)
	}
	r.paramAnns = append(r.paramAnns, a)
	return nil
}

func (s *ReflectStore) parseConstructor(r *TypeReflect, a Annotation) error {
	if r.constructor != nil {
		return fmt.Errorf("constructor declared more than once")
	}

	info, err := s.analyzer.AnalyzeFunc(a.Metadata)
	if err != nil {
		return err
	}

	if len(info.Returns) != 1 || normalizeType(info.Returns[0]) != r.Type {
		return fmt.Errorf("constructor %v must return %s or %s",
			info.Type, formatType(reflect.PointerTo(r.Type)), formatType(r.Type))
	}

	r.constructor = info
	return nil
}

func parseAutoRun(r *TypeReflect, a Annotation) error {
	meta, ok := a.Metadata.(AutoRunMeta)
	if !ok {
		return fmt.Errorf("metadata must be AutoRunMeta, got %T", a.Metadata)
	}
	r.AutoRuns = append(r.AutoRuns, meta)
	return nil
}

func parseTTL(r *TypeReflect, a Annotation) error {
	d, ok := a.Metadata.(time.Duration)
	if !ok {
		return fmt.Errorf("metadata must be time.Duration, got %T", a.Metadata)
	}
	r.TTL = d
	r.HasTTL = true
	return nil
}

func containsType(types []reflect.Type, t reflect.Type) bool {
	for _, existing := range types {
		if existing == t {
			return true
		}
	}
	return false
}
