package importer

import (
	"fmt"
)

// FormatError is returned when an export file does not match the expected
// schema: missing column, malformed date, undecodable number. It aborts
// processing of the file; there is no partial import.
type FormatError struct {
	// File is the name of the offending file.
	File string
	// Line is the 1-indexed line (or record index) inside the file, 0 when
	// the error applies to the file as a whole.
	Line int
	// Msg describes what was expected.
	Msg string
	// Err is the underlying cause, if any.
	Err error
}

func (e *FormatError) Error() string {
	location := e.File
	if e.Line > 0 {
		location = fmt.Sprintf("%s:%d", e.File, e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", location, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", location, e.Msg)
}

func (e *FormatError) Unwrap() error { return e.Err }

// NewFormatError creates a FormatError for a whole file.
func NewFormatError(file, msg string, err error) *FormatError {
	return &FormatError{File: file, Msg: msg, Err: err}
}

// NewFormatErrorAt creates a FormatError pointing at a specific line.
func NewFormatErrorAt(file string, line int, msg string, err error) *FormatError {
	return &FormatError{File: file, Line: line, Msg: msg, Err: err}
}

// UnmappedInstrumentError is returned when a record references an instrument
// that has no entry in the configured lookup table. This is a hard stop:
// routing a posting to a guessed account is a correctness violation, so the
// operator has to extend the table instead.
type UnmappedInstrumentError struct {
	// Instrument is the identifier that failed to resolve (ISIN, symbol, or
	// institution-specific name).
	Instrument string
	// Known lists the configured identifiers, for the error message.
	Known []string
}

func (e *UnmappedInstrumentError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("no account mapping for instrument %q", e.Instrument)
	}
	return fmt.Sprintf("no account mapping for instrument %q (configured: %v)", e.Instrument, e.Known)
}
