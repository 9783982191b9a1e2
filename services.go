package ioc

import "reflect"

// GetServices returns the bindings visible from the injector whose concrete
// type extends or implements any of bases. The injector is searched first,
// then its ancestors. Keys shadowed by a nearer injector, reference bindings
// and duplicates of the same concrete type are skipped.
//
// Example:
//
//	set := inj.GetServices(ioc.TypeOf[Animal]())
//	animals, err := set.Instances()
func (inj *Injector) GetServices(bases ...Token) *ProviderSet {
	store := inj.container.reflects
	return inj.GetServicesFunc(func(_ Key, entry ProviderEntry) bool {
		for _, base := range bases {
			if store.IsExtends(entry.Type, base) {
				return true
			}
		}
		return false
	})
}

// GetServicesFunc is GetServices with a custom filter. The filter only sees
// bindings with a known concrete type.
func (inj *Injector) GetServicesFunc(filter func(key Key, entry ProviderEntry) bool) *ProviderSet {
	set := newProviderSet()
	if filter == nil {
		return set
	}

	seenKeys := make(map[Key]bool)
	seenTypes := make(map[reflect.Type]bool)

	for cur := inj; cur != nil; cur = cur.parent {
		owner := cur
		owner.Iterate(func(key Key, entry ProviderEntry) bool {
			if seenKeys[key] {
				return true
			}
			seenKeys[key] = true

			if key.IsRef() || entry.Type == nil || seenTypes[entry.Type] {
				return true
			}

			if filter(key, entry) {
				seenTypes[entry.Type] = true
				set.add(key, entry, owner)
			}
			return true
		}, false)
	}

	return set
}
