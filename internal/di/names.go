package di

import (
	"reflect"
	"strings"
)

// TypeName is the registry key for T: the package path plus type name,
// prefixed with "*" per pointer level.
func TypeName[T any]() string {
	return nameOf(reflect.TypeFor[T]())
}

func nameOf(t reflect.Type) string {
	if t == nil {
		return ""
	}
	var stars strings.Builder
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		stars.WriteByte('*')
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return stars.String() + t.String()
	}
	return stars.String() + t.PkgPath() + "." + t.Name()
}
