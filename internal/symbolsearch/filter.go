package symbolsearch

import (
	"slices"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/errors"
)

// Filter is a named set of kinds to search.
type Filter struct {
	Name        string
	Description string
	Kinds       []Kind
}

var filters = map[string]Filter{
	"c": {Name: "c", Description: "C++ classes", Kinds: []Kind{KindClass, KindStruct}},
	"t": {Name: "t", Description: "Types", Kinds: []Kind{KindClass, KindStruct, KindUnion, KindEnum}},
	"m": {Name: "m", Description: "Functions", Kinds: []Kind{KindFunction, KindMethod, KindStaticMethod, KindClassMethod}},
	"e": {Name: "e", Description: "Enums and enum constants", Kinds: []Kind{KindEnum, KindEnumConstant}},
}

var defaultKinds = []Kind{
	KindFunction,
	KindMethod,
	KindStaticMethod,
	KindClassMethod,
	KindClass,
	KindStruct,
	KindUnion,
	KindEnum,
	KindEnumConstant,
}

// LookupFilter returns the filter registered under name.
func LookupFilter(name string) (Filter, error) {
	f, ok := filters[name]
	if !ok {
		return Filter{}, apperrors.NewConfigurationError(apperrors.ErrUnknownFilter, "filter", name)
	}
	f.Kinds = slices.Clone(f.Kinds)
	return f, nil
}

// Filters lists the named filters sorted by name.
func Filters() []Filter {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		f.Kinds = slices.Clone(f.Kinds)
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DefaultKinds returns the kinds searched when no filter is set, in search
// order.
func DefaultKinds() []Kind {
	return slices.Clone(defaultKinds)
}

// validateKinds checks that kinds is a non-empty list of kinds some tier
// delivers.
func validateKinds(kinds []Kind) error {
	if len(kinds) == 0 {
		return apperrors.NewConfigurationError(apperrors.ErrUnknownKind, "kinds", "[]")
	}
	for _, k := range kinds {
		if _, ok := tierOf(k); !ok {
			return apperrors.NewConfigurationError(apperrors.ErrUnknownKind, "kinds", string(k))
		}
	}
	return nil
}
