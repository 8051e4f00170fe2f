/*
Copyright 2025 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package sqlerrors provides the error taxonomy used while planning SQL.
//
// Every error created by this package carries a Code. Codes survive
// wrapping with Wrap and Wrapf, so callers can classify a failure with
// Code(err) no matter how many layers of context were added on the way
// up. Stack traces are recorded at creation and printed with %+v when
// LogErrStacks is set.
package sqlerrors

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// LogErrStacks controls whether %+v prints the stack trace recorded when
// an error was created.
var LogErrStacks bool

// ErrorCode classifies planning errors.
type ErrorCode int

const (
	// Unknown is returned by Code for errors not created by this package.
	Unknown ErrorCode = iota
	// Configuration means the shared setup is wrong: a missing catalog
	// namespace, a reserved query context key, an invalid config file.
	Configuration
	// QueryContext means the per-query settings are malformed.
	QueryContext
	// Parse means the SQL text could not be parsed.
	Parse
	// Validation means the SQL parsed but refers to unknown objects or
	// uses unsupported constructs.
	Validation
	// PlanConstruction means a rule phase could not produce an
	// executable plan.
	PlanConstruction
	// Translation means the materializer met a physical operator it
	// cannot express natively. This is always a defect.
	Translation
	// Internal is used for broken invariants.
	Internal
)

var codeNames = map[ErrorCode]string{
	Unknown:          "UNKNOWN",
	Configuration:    "CONFIGURATION",
	QueryContext:     "QUERY_CONTEXT",
	Parse:            "PARSE",
	Validation:       "VALIDATION",
	PlanConstruction: "PLAN_CONSTRUCTION",
	Translation:      "TRANSLATION",
	Internal:         "INTERNAL",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// ErrorWithCode is implemented by errors that know their Code.
type ErrorWithCode interface {
	ErrorCode() ErrorCode
}

type sqlError struct {
	code ErrorCode
	err  error
}

// New returns an error with the supplied message and code.
func New(code ErrorCode, message string) error {
	return &sqlError{code: code, err: errors.New(message)}
}

// Errorf formats according to a format specifier and returns the string
// as a value that satisfies error, tagged with code.
func Errorf(code ErrorCode, format string, args ...any) error {
	return &sqlError{code: code, err: errors.Errorf(format, args...)}
}

func (e *sqlError) Error() string {
	return e.err.Error()
}

// ErrorCode implements ErrorWithCode.
func (e *sqlError) ErrorCode() ErrorCode {
	return e.code
}

// Format prints the stack trace for %+v when LogErrStacks is set.
func (e *sqlError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') && LogErrStacks {
			fmt.Fprintf(s, "%+v", e.err)
			return
		}
		fallthrough
	case 's':
		_, _ = io.WriteString(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

// Wrap returns an error annotating err with message.
// If err is nil, Wrap returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, message)
}

// Wrapf returns an error annotating err with the format specifier.
// If err is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// Code returns the code of the outermost coded error in err's chain, or
// Unknown when there is none.
func Code(err error) ErrorCode {
	if err == nil {
		return Unknown
	}
	var coded ErrorWithCode
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return Unknown
}

// Is reports whether err carries code.
func Is(err error, code ErrorCode) bool {
	return err != nil && Code(err) == code
}

// RootCause returns the innermost error that was not created by Wrap or Wrapf.
func RootCause(err error) error {
	return errors.Cause(err)
}
