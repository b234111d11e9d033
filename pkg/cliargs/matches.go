// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package cliargs

import (
	"github.com/spf13/pflag"
)

// Matches is the read side of a parsed command line.
type Matches interface {
	// ValueOf returns the value of the named argument. A value is present when it
	// was given on the command line, taken from the environment or has a non-empty
	// default. Boolean switches are present only when set.
	ValueOf(name string) (string, bool)
	// ValuesOf returns every value of a repeatable argument.
	ValuesOf(name string) []string
}

// FlagMatches reads arguments from a parsed pflag set.
type FlagMatches struct {
	fs *pflag.FlagSet
}

func NewFlagMatches(fs *pflag.FlagSet) FlagMatches {
	return FlagMatches{fs: fs}
}

func (m FlagMatches) ValueOf(name string) (string, bool) {
	f := m.fs.Lookup(name)
	if f == nil {
		return "", false
	}
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		values := sv.GetSlice()
		if len(values) == 0 {
			return "", false
		}
		return values[0], true
	}
	value := f.Value.String()
	if f.Changed {
		return value, true
	}
	if f.Value.Type() == "bool" {
		return "", false
	}
	return value, value != ""
}

func (m FlagMatches) ValuesOf(name string) []string {
	f := m.fs.Lookup(name)
	if f == nil {
		return nil
	}
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		return sv.GetSlice()
	}
	if value, ok := m.ValueOf(name); ok {
		return []string{value}
	}
	return nil
}

// Bool reports a boolean flag, false when it is not defined.
func (m FlagMatches) Bool(name string) bool {
	v, err := m.fs.GetBool(name)
	return err == nil && v
}
