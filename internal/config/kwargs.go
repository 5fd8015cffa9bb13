package config

import (
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Kwargs is a keyword-argument bag decoded from a configuration kwargs block.
// Values stay as cty values until a consumer asks for a concrete Go type, so
// type validation happens where the argument is actually used.
type Kwargs map[string]cty.Value

// Has reports whether the named argument is present.
func (k Kwargs) Has(name string) bool {
	_, ok := k[name]
	return ok
}

// Value returns the raw cty value for name.
func (k Kwargs) Value(name string) (cty.Value, error) {
	v, ok := k[name]
	if !ok {
		return cty.NilVal, &AttrError{Name: name, Reason: "required argument is missing"}
	}
	return v, nil
}

// String converts the named argument to a string.
func (k Kwargs) String(name string) (string, error) {
	v, err := k.Value(name)
	if err != nil {
		return "", err
	}
	conv, err := convert.Convert(v, cty.String)
	if err != nil || conv.IsNull() {
		return "", &AttrError{Name: name, Reason: "expected a string"}
	}
	return conv.AsString(), nil
}

// StringDefault converts the named argument to a string, returning def when
// the argument is absent.
func (k Kwargs) StringDefault(name, def string) (string, error) {
	if !k.Has(name) {
		return def, nil
	}
	return k.String(name)
}

// Number converts the named argument to a float64.
func (k Kwargs) Number(name string) (float64, error) {
	v, err := k.Value(name)
	if err != nil {
		return 0, err
	}
	conv, err := convert.Convert(v, cty.Number)
	if err != nil || conv.IsNull() {
		return 0, &AttrError{Name: name, Reason: "expected a number"}
	}
	var f float64
	if err := gocty.FromCtyValue(conv, &f); err != nil {
		return 0, &AttrError{Name: name, Reason: err.Error()}
	}
	return f, nil
}

// Int converts the named argument to an int.
func (k Kwargs) Int(name string) (int, error) {
	v, err := k.Value(name)
	if err != nil {
		return 0, err
	}
	conv, err := convert.Convert(v, cty.Number)
	if err != nil || conv.IsNull() {
		return 0, &AttrError{Name: name, Reason: "expected a number"}
	}
	var i int
	if err := gocty.FromCtyValue(conv, &i); err != nil {
		return 0, &AttrError{Name: name, Reason: err.Error()}
	}
	return i, nil
}

// BoolDefault converts the named argument to a bool, returning def when the
// argument is absent.
func (k Kwargs) BoolDefault(name string, def bool) (bool, error) {
	if !k.Has(name) {
		return def, nil
	}
	v := k[name]
	conv, err := convert.Convert(v, cty.Bool)
	if err != nil || conv.IsNull() {
		return false, &AttrError{Name: name, Reason: "expected a bool"}
	}
	return conv.True(), nil
}

// Strings converts the named argument to a list of strings. A single string
// value is accepted and returned as a one-element list.
func (k Kwargs) Strings(name string) ([]string, error) {
	v, err := k.Value(name)
	if err != nil {
		return nil, err
	}
	if v.Type() == cty.String {
		return []string{v.AsString()}, nil
	}
	conv, err := convert.Convert(v, cty.List(cty.String))
	if err != nil || conv.IsNull() {
		return nil, &AttrError{Name: name, Reason: "expected a string or list of strings"}
	}
	out := make([]string, 0, conv.LengthInt())
	for it := conv.ElementIterator(); it.Next(); {
		_, el := it.Element()
		if el.IsNull() {
			return nil, &AttrError{Name: name, Reason: "list elements must not be null"}
		}
		out = append(out, el.AsString())
	}
	return out, nil
}

// StringsDefault is Strings with a fallback for an absent argument.
func (k Kwargs) StringsDefault(name string, def []string) ([]string, error) {
	if !k.Has(name) {
		return def, nil
	}
	return k.Strings(name)
}

// StringMap converts the named argument to a map of strings, preserving no
// particular order. Object and map values are both accepted.
func (k Kwargs) StringMap(name string) (map[string]string, error) {
	v, err := k.Value(name)
	if err != nil {
		return nil, err
	}
	conv, err := convert.Convert(v, cty.Map(cty.String))
	if err != nil || conv.IsNull() {
		return nil, &AttrError{Name: name, Reason: "expected a map of strings"}
	}
	out := make(map[string]string, conv.LengthInt())
	for it := conv.ElementIterator(); it.Next(); {
		key, el := it.Element()
		if el.IsNull() {
			return nil, &AttrError{Name: name, Reason: "map values must not be null"}
		}
		out[key.AsString()] = el.AsString()
	}
	return out, nil
}
