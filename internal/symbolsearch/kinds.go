package symbolsearch

import (
	apperrors "github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/errors"
)

// Kind names a symbol kind as stored in snapshots, e.g. "function".
type Kind string

const (
	KindUnknown                   Kind = "<unknown>"
	KindModule                    Kind = "module"
	KindNamespace                 Kind = "namespace"
	KindInlineNamespace           Kind = "inline-namespace"
	KindNamespaceAlias            Kind = "namespace-alias"
	KindMacro                     Kind = "macro"
	KindEnum                      Kind = "enum"
	KindEnumClass                 Kind = "enum-class"
	KindStruct                    Kind = "struct"
	KindClass                     Kind = "class"
	KindUnion                     Kind = "union"
	KindLambda                    Kind = "lambda"
	KindTypedef                   Kind = "typedef"
	KindTypeAlias                 Kind = "type-alias"
	KindEnumConstant              Kind = "enum-constant"
	KindVariable                  Kind = "variable"
	KindField                     Kind = "field"
	KindStaticProperty            Kind = "static-property"
	KindFunction                  Kind = "function"
	KindMethod                    Kind = "method"
	KindStaticMethod              Kind = "static-method"
	KindConstructor               Kind = "constructor"
	KindDestructor                Kind = "destructor"
	KindOperator                  Kind = "operator"
	KindConversionFunction        Kind = "conversion-function"
	KindUsing                     Kind = "using"
	KindParameter                 Kind = "parameter"
	KindTemplateTypeParameter     Kind = "template-type-parameter"
	KindTemplateTemplateParameter Kind = "template-template-parameter"
	KindNonTypeTemplateParameter  Kind = "non-type-template-parameter"
	KindConcept                   Kind = "concept"

	// KindClassMethod has no storage code. Snapshots that carry it serve
	// it under its name only.
	KindClassMethod Kind = "class-method"
)

// kindTable is indexed by the numeric kind code stored in snapshots.
var kindTable = [...]Kind{
	KindUnknown,
	KindModule,
	KindNamespace,
	KindInlineNamespace,
	KindNamespaceAlias,
	KindMacro,
	KindEnum,
	KindEnumClass,
	KindStruct,
	KindClass,
	KindUnion,
	KindLambda,
	KindTypedef,
	KindTypeAlias,
	KindEnumConstant,
	KindVariable,
	KindField,
	KindStaticProperty,
	KindFunction,
	KindMethod,
	KindStaticMethod,
	KindConstructor,
	KindDestructor,
	KindOperator,
	KindConversionFunction,
	KindUsing,
	KindParameter,
	KindTemplateTypeParameter,
	KindTemplateTemplateParameter,
	KindNonTypeTemplateParameter,
	KindConcept,
}

var kindCodes = func() map[Kind]int {
	m := make(map[Kind]int, len(kindTable))
	for code, k := range kindTable {
		m[k] = code
	}
	return m
}()

// KindFromCode translates a stored kind code.
func KindFromCode(code int) (Kind, bool) {
	if code < 0 || code >= len(kindTable) {
		return "", false
	}
	return kindTable[code], true
}

// Code returns the stored code of k.
func (k Kind) Code() (int, bool) {
	code, ok := kindCodes[k]
	return code, ok
}

// CanBeParent reports whether entries of kind k may enclose other symbols.
func (k Kind) CanBeParent() bool {
	switch k {
	case KindNamespace, KindClass, KindStruct, KindEnum:
		return true
	}
	return false
}

// ParseKind validates a kind name.
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	if _, ok := kindCodes[k]; ok || k == KindClassMethod {
		return k, nil
	}
	return "", apperrors.NewConfigurationError(apperrors.ErrUnknownKind, "kind", name)
}

// Kinds returns every kind with a storage code, in code order.
func Kinds() []Kind {
	return append([]Kind(nil), kindTable[:]...)
}
