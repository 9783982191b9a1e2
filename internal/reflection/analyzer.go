package reflection

import (
	"fmt"
	"reflect"
	"sync"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// Analyzer performs reflection-based analysis of classes and constructor
// functions. It caches analysis results for performance.
type Analyzer struct {
	mu      sync.RWMutex
	classes map[reflect.Type]*ClassInfo
	funcs   map[reflect.Type]*FuncInfo
}

// ClassInfo contains analyzed information about a struct type.
type ClassInfo struct {
	Type reflect.Type

	// Fields lists the fields carrying an inject tag, in declaration order.
	// Fields of embedded structs are promoted and carry the full index path.
	Fields []FieldInfo

	// Ancestors is the embedded-struct chain, depth-first in field order.
	Ancestors []reflect.Type

	// Methods lists the exported methods of the pointer type.
	Methods []MethodInfo
}

// FieldInfo describes a struct field tagged for injection.
type FieldInfo struct {
	Name     string
	Type     reflect.Type
	Index    []int
	Tag      string
	Token    string // inject:"token", empty means by field type
	Alias    string // alias:"name"
	Optional bool   // optional:"true"
}

// MethodInfo describes an exported method of a class, without its receiver.
type MethodInfo struct {
	Name   string
	Params []reflect.Type
	Out    []reflect.Type
}

// FuncInfo contains analyzed information about a constructor function.
type FuncInfo struct {
	Type           reflect.Type
	Value          reflect.Value
	Parameters     []ParameterInfo
	Returns        []reflect.Type
	HasErrorReturn bool
	IsVariadic     bool
}

// ParameterInfo describes a single function parameter.
type ParameterInfo struct {
	Type  reflect.Type
	Index int
}

// TagInfo contains parsed struct tag information.
type TagInfo struct {
	Inject   bool
	Token    string
	Alias    string
	Optional bool
	Ignore   bool
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		classes: make(map[reflect.Type]*ClassInfo),
		funcs:   make(map[reflect.Type]*FuncInfo),
	}
}

// AnalyzeClass analyzes a struct type or pointer to struct type.
func (a *Analyzer) AnalyzeClass(t reflect.Type) (*ClassInfo, error) {
	if t == nil {
		return nil, fmt.Errorf("class type cannot be nil")
	}

	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("class must be a struct, got %v", t.Kind())
	}

	a.mu.RLock()
	if cached, ok := a.classes[t]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	info := &ClassInfo{Type: t}

	if err := a.analyzeFields(info, t, nil, map[reflect.Type]bool{t: true}); err != nil {
		return nil, err
	}

	ptr := reflect.PointerTo(t)
	for i := 0; i < ptr.NumMethod(); i++ {
		m := ptr.Method(i)
		mi := MethodInfo{Name: m.Name}
		// In(0) is the receiver.
		for j := 1; j < m.Type.NumIn(); j++ {
			mi.Params = append(mi.Params, m.Type.In(j))
		}
		for j := 0; j < m.Type.NumOut(); j++ {
			mi.Out = append(mi.Out, m.Type.Out(j))
		}
		info.Methods = append(info.Methods, mi)
	}

	a.mu.Lock()
	a.classes[t] = info
	a.mu.Unlock()

	return info, nil
}

// analyzeFields walks the fields of t, collecting injectable fields and the
// embedded ancestor chain. seen guards against recursive embedding through
// pointers.
func (a *Analyzer) analyzeFields(info *ClassInfo, t reflect.Type, prefix []int, seen map[reflect.Type]bool) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		if field.Anonymous {
			embedded := field.Type
			if embedded.Kind() == reflect.Pointer {
				embedded = embedded.Elem()
			}

			if embedded.Kind() == reflect.Struct && !seen[embedded] {
				seen[embedded] = true
				info.Ancestors = append(info.Ancestors, embedded)

				// Promoted fields are only reachable without allocation
				// through value embedding.
				if field.Type.Kind() == reflect.Struct {
					if err := a.analyzeFields(info, embedded, index, seen); err != nil {
						return err
					}
				} else if err := a.collectAncestors(info, embedded, seen); err != nil {
					return err
				}
				continue
			}
		}

		tag := ParseFieldTags(field.Tag)
		if !tag.Inject || tag.Ignore {
			continue
		}

		if !field.IsExported() {
			return fmt.Errorf("field %s.%s is tagged for injection but is not exported", t.Name(), field.Name)
		}

		info.Fields = append(info.Fields, FieldInfo{
			Name:     field.Name,
			Type:     field.Type,
			Index:    index,
			Tag:      string(field.Tag),
			Token:    tag.Token,
			Alias:    tag.Alias,
			Optional: tag.Optional,
		})
	}

	return nil
}

// collectAncestors records the embedded chain below a pointer-embedded struct.
func (a *Analyzer) collectAncestors(info *ClassInfo, t reflect.Type, seen map[reflect.Type]bool) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.Anonymous {
			continue
		}

		embedded := field.Type
		if embedded.Kind() == reflect.Pointer {
			embedded = embedded.Elem()
		}

		if embedded.Kind() != reflect.Struct || seen[embedded] {
			continue
		}

		seen[embedded] = true
		info.Ancestors = append(info.Ancestors, embedded)
		if err := a.collectAncestors(info, embedded, seen); err != nil {
			return err
		}
	}

	return nil
}

// AnalyzeFunc analyzes a constructor function.
func (a *Analyzer) AnalyzeFunc(fn any) (*FuncInfo, error) {
	if fn == nil {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	val := reflect.ValueOf(fn)
	if val.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %T", fn)
	}

	if val.IsNil() {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	// Closures and method values share code pointers, so only the signature
	// is cached and the value is attached per call.
	typ := val.Type()

	a.mu.RLock()
	cached, ok := a.funcs[typ]
	a.mu.RUnlock()
	if ok {
		info := *cached
		info.Value = val
		return &info, nil
	}

	info := &FuncInfo{
		Type:       typ,
		Value:      val,
		IsVariadic: typ.IsVariadic(),
	}

	for i := 0; i < typ.NumIn(); i++ {
		info.Parameters = append(info.Parameters, ParameterInfo{Type: typ.In(i), Index: i})
	}

	for i := 0; i < typ.NumOut(); i++ {
		out := typ.Out(i)
		if i == typ.NumOut()-1 && out.Implements(errType) {
			info.HasErrorReturn = true
			continue
		}
		info.Returns = append(info.Returns, out)
	}

	if len(info.Returns) > 1 {
		return nil, fmt.Errorf("constructor %v must return a single value and an optional error", typ)
	}

	a.mu.Lock()
	a.funcs[typ] = info
	a.mu.Unlock()

	result := *info
	return &result, nil
}

// ParseFieldTags parses struct field tags for injection annotations.
func ParseFieldTags(tag reflect.StructTag) TagInfo {
	info := TagInfo{}

	if val, ok := tag.Lookup("inject"); ok {
		info.Inject = true
		if val == "-" {
			info.Ignore = true
		} else {
			info.Token = val
		}
	}

	if val, ok := tag.Lookup("optional"); ok {
		info.Optional = val == "true"
	}

	if val, ok := tag.Lookup("alias"); ok {
		info.Alias = val
	}

	return info
}

// Clear clears the analysis caches.
func (a *Analyzer) Clear() {
	a.mu.Lock()
	a.classes = make(map[reflect.Type]*ClassInfo)
	a.funcs = make(map[reflect.Type]*FuncInfo)
	a.mu.Unlock()
}

// CacheSize returns the number of cached analyses.
func (a *Analyzer) CacheSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.classes) + len(a.funcs)
}
