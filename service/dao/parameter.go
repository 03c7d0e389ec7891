package dao

import "slices"

// Parameter filters List results by a named field; a field matches any of Values.
type Parameter struct {
	Name   string
	Values []string
}

// Matches returns true when value is one of the parameter values.
func (p *Parameter) Matches(value string) bool {
	return slices.Contains(p.Values, value)
}

// NewParameter creates a filter parameter.
func NewParameter(name string, values ...string) *Parameter {
	return &Parameter{Name: name, Values: values}
}
