// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package cliargs

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// validatedValue is a string flag value validated when the flag is parsed.
type validatedValue struct {
	value    string
	typ      string
	validate Validator
}

func newValidatedValue(def, typ string, validate Validator) *validatedValue {
	return &validatedValue{value: def, typ: typ, validate: validate}
}

func (v *validatedValue) String() string { return v.value }

func (v *validatedValue) Set(s string) error {
	if v.validate != nil {
		if err := v.validate(s); err != nil {
			return err
		}
	}
	v.value = s
	return nil
}

func (v *validatedValue) Type() string { return v.typ }

// ApplyEnv fills every flag that declares an environment variable and was not given
// on the command line. The value goes through the flag's validator.
func ApplyEnv(fs *pflag.FlagSet) error {
	var firstErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if firstErr != nil || f.Changed {
			return
		}
		envs := f.Annotations[envAnnotation]
		if len(envs) == 0 {
			return
		}
		value, ok := os.LookupEnv(envs[0])
		if !ok || value == "" {
			return
		}
		if err := fs.Set(f.Name, value); err != nil {
			firstErr = errors.Wrapf(err, "invalid value of environment variable %s for argument '%s'", envs[0], f.Name)
		}
	})
	return firstErr
}
