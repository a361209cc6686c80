package runner

import (
	"errors"
	"fmt"
	"os"
	"reflect"
)

// ExpandTemplates expands ${VAR} references in place across the struct
// pointed to by in. Strings, *string and []string fields are only touched
// when they carry a `template` tag (`template:"-"` opts out). Nested structs,
// *struct, []struct and []*struct are always walked. map[string]string values
// are always expanded. Nil pointers, slices and maps are left as they are.
func ExpandTemplates[T any](in *T, variables map[string]string) error {
	if in == nil {
		return nil
	}

	x := expander{variables: variables}
	v := reflect.ValueOf(in).Elem()
	switch v.Kind() {
	case reflect.Struct:
		return x.structValue(v)
	case reflect.Slice:
		return x.slice(v, true)
	default:
		return fmt.Errorf("ExpandTemplates expects *struct or *[]struct; got *%s", v.Type())
	}
}

type expander struct {
	variables map[string]string
}

func (x expander) structValue(v reflect.Value) error {
	typ := v.Type()
	for i := range typ.NumField() {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}

		tag, tagged := sf.Tag.Lookup("template")
		if err := x.field(v.Field(i), tagged && tag != "-"); err != nil {
			return fmt.Errorf("%s: %w", sf.Name, err)
		}
	}
	return nil
}

// field expands a single value. templated reports whether string-like values
// at this position opted into expansion.
func (x expander) field(field reflect.Value, templated bool) error {
	switch field.Kind() {
	case reflect.String:
		if !templated {
			return nil
		}
		return x.setString(field)

	case reflect.Ptr:
		if field.IsNil() {
			return nil
		}
		elem := field.Elem()
		switch elem.Kind() {
		case reflect.String:
			if !templated {
				return nil
			}
			// Replace the pointer rather than writing through it, the
			// original string may be shared.
			expanded, err := Expand(elem.String(), x.variables)
			if err != nil {
				return err
			}
			ptr := reflect.New(elem.Type())
			ptr.Elem().SetString(expanded)
			field.Set(ptr)
			return nil
		case reflect.Struct:
			return x.structValue(elem)
		}
		return nil

	case reflect.Map:
		if field.IsNil() || field.Type().Key().Kind() != reflect.String || field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		expanded, err := ExpandMap(field.Interface().(map[string]string), x.variables)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(expanded))
		return nil

	case reflect.Struct:
		return x.structValue(field)

	case reflect.Slice:
		return x.slice(field, templated)
	}
	return nil
}

func (x expander) slice(v reflect.Value, templated bool) error {
	if v.IsNil() {
		return nil
	}

	elem := v.Type().Elem()
	if elem.Kind() == reflect.String && !templated {
		return nil
	}
	if elem.Kind() != reflect.String && elem.Kind() != reflect.Struct &&
		!(elem.Kind() == reflect.Ptr && elem.Elem().Kind() == reflect.Struct) {
		return nil
	}

	for i := range v.Len() {
		if err := x.field(v.Index(i), templated); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

func (x expander) setString(v reflect.Value) error {
	expanded, err := Expand(v.String(), x.variables)
	if err != nil {
		return err
	}
	v.SetString(expanded)
	return nil
}

// Expand replaces ${VAR} references in value using variables.
// Referencing a variable that is not in variables is an error.
func Expand(value string, variables map[string]string) (string, error) {
	var errs error

	result := os.Expand(value, func(key string) string {
		if val, ok := variables[key]; ok {
			return val
		}
		errs = errors.Join(errs, fmt.Errorf("variable %q is not defined or not in the allowed environment list", key))
		return ""
	})

	if errs != nil {
		return "", errs
	}

	return result, nil
}

// ExpandMap expands all values in a map[string]string.
func ExpandMap(values map[string]string, variables map[string]string) (map[string]string, error) {
	if values == nil {
		return nil, nil
	}

	result := make(map[string]string, len(values))
	var errs error

	for k, v := range values {
		expanded, err := Expand(v, variables)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		result[k] = expanded
	}

	if errs != nil {
		return nil, errs
	}

	return result, nil
}
