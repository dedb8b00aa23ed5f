// This file enforces the QDS measurement schema over the scanner's event
// stream. Each JSON object contributes exactly one measurement; the allowed
// keys are NAME, TYPE, UNIT, VALUE and the legacy key DECIMALS (ignored).
package qdsjson

import (
	"math"
	"strconv"

	"github.com/basekick-labs/qds-buffer/pkg/qds"
)

type scalarEvent uint8

const (
	evString scalarEvent = iota
	evInt64
	evUint64
	evDouble
	evBool
)

var eventNames = map[scalarEvent]string{
	evString: "string",
	evInt64:  "int64",
	evUint64: "uint64",
	evDouble: "double",
	evBool:   "bool",
}

// fieldValidator checks one recognized key's scalar and writes it into the
// measurement under construction.
type fieldValidator func(s *ParsingState, ev scalarEvent, raw string, val qds.Value, m *qds.Measurement) error

// ParsingState accumulates the measurement list while a document streams
// through. It implements Handler; a fresh state is required per Parse call.
type ParsingState struct {
	Data []qds.Measurement

	field            fieldValidator
	hasKey           bool
	elementCompleted bool
}

// NewState returns an empty parsing state.
func NewState() *ParsingState {
	return &ParsingState{}
}

// OnObjectBegin starts a new measurement.
func (s *ParsingState) OnObjectBegin() error {
	s.Data = append(s.Data, qds.Measurement{})
	s.elementCompleted = false
	return nil
}

// OnKey records the validator for a recognized key.
func (s *ParsingState) OnKey(key string) error {
	if len(s.Data) == 0 || s.elementCompleted {
		return &qds.ParsingError{Msg: "Entry '" + key + "' is not an object", Scope: "Validator.OnKey"}
	}
	fv, ok := fieldValidators[key]
	if !ok {
		return &qds.ParsingError{Msg: "Invalid key '" + key + "'", Scope: "Validator.OnKey"}
	}
	s.hasKey = true
	s.field = fv
	return nil
}

func (s *ParsingState) OnString(v string) error {
	return s.onScalar(evString, v, qds.StringValue(v))
}

func (s *ParsingState) OnInt64(v int64, raw string) error {
	return s.onScalar(evInt64, raw, qds.IntValue(v))
}

// OnUint64 narrows to int64 without a range check; values above the int64
// maximum are undefined input.
func (s *ParsingState) OnUint64(v uint64, raw string) error {
	return s.onScalar(evUint64, raw, qds.IntValue(int64(v)))
}

func (s *ParsingState) OnDouble(v float64, raw string) error {
	return s.onScalar(evDouble, raw, qds.DoubleValue(v))
}

func (s *ParsingState) OnBool(v bool) error {
	raw := "false"
	if v {
		raw = "true"
	}
	return s.onScalar(evBool, raw, qds.BoolValue(v))
}

func (s *ParsingState) onScalar(ev scalarEvent, raw string, val qds.Value) error {
	if len(s.Data) == 0 || s.elementCompleted {
		return &qds.ParsingError{Msg: "Entry '" + raw + "' is not an object", Scope: "Validator.OnValue"}
	}
	if !s.hasKey {
		return &qds.ParsingError{Msg: "Missing key for value '" + raw + "'", Scope: "Validator.OnValue"}
	}
	m := &s.Data[len(s.Data)-1]
	if s.field != nil {
		if err := s.field(s, ev, raw, val, m); err != nil {
			return err
		}
	}
	s.hasKey = false
	s.field = nil
	return nil
}

// OnObjectEnd closes the current measurement: required keys, value-tag
// consistency and the per-type constraints. A completed TIMESTAMP
// measurement is rotated to the front of the list.
func (s *ParsingState) OnObjectEnd() error {
	if len(s.Data) == 0 || s.elementCompleted {
		return &qds.ParsingError{Msg: "Invalid JSON", Scope: "Validator.OnObjectEnd"}
	}
	m := &s.Data[len(s.Data)-1]
	if m.Name == "" {
		return &qds.ParsingError{Msg: "Measurement missing NAME", Scope: "Validator.OnObjectEnd"}
	}
	if m.Type == qds.TypeNotSet {
		return &qds.ParsingError{Msg: "Measurement missing TYPE", Scope: "Validator.OnObjectEnd"}
	}
	if m.Value.IsEmpty() {
		return &qds.ParsingError{Msg: "Measurement missing VALUE", Scope: "Validator.OnObjectEnd"}
	}

	switch m.Type {
	case qds.TypeString, qds.TypeRef, qds.TypeForeignKey:
		if m.Value.Kind() != qds.ValueString {
			return typeMismatch(m.Name)
		}
	case qds.TypeInteger:
		if m.Value.Kind() != qds.ValueInt {
			return typeMismatch(m.Name)
		}
		if m.Value.Int() > math.MaxInt32 {
			return &qds.ParsingError{
				Msg:   "Invalid INTEGER value '" + strconv.FormatInt(m.Value.Int(), 10) + "'",
				Scope: "Validator.OnObjectEnd",
			}
		}
	case qds.TypeLong:
		if m.Value.Kind() != qds.ValueInt {
			return typeMismatch(m.Name)
		}
	case qds.TypeFloat:
		if m.Value.Kind() != qds.ValueDouble {
			return typeMismatch(m.Name)
		}
		if m.Value.Float() > math.MaxFloat32 {
			return &qds.ParsingError{
				Msg:   "Invalid FLOAT value '" + strconv.FormatFloat(m.Value.Float(), 'g', -1, 64) + "'",
				Scope: "Validator.OnObjectEnd",
			}
		}
	case qds.TypeDouble:
		if m.Value.Kind() != qds.ValueDouble {
			return typeMismatch(m.Name)
		}
	case qds.TypeBool:
		if m.Value.Kind() != qds.ValueBool {
			return typeMismatch(m.Name)
		}
	case qds.TypeWord:
		if m.Value.Kind() != qds.ValueString {
			return typeMismatch(m.Name)
		}
		if !validWord(m.Value.Str()) {
			return &qds.ParsingError{Msg: "Invalid WORD value '" + m.Value.Str() + "'", Scope: "Validator.OnObjectEnd"}
		}
	case qds.TypeTimestamp:
		if m.Value.Kind() != qds.ValueString {
			return typeMismatch(m.Name)
		}
		if !ValidTimestamp(m.Value.Str()) {
			return &qds.ParsingError{Msg: "Invalid TIMESTAMP value '" + m.Value.Str() + "'", Scope: "Validator.OnObjectEnd"}
		}
		// Timestamps lead the list: rotate the just-completed element to
		// the front, keeping the relative order of the others.
		last := s.Data[len(s.Data)-1]
		copy(s.Data[1:], s.Data[:len(s.Data)-1])
		s.Data[0] = last
	default:
		return &qds.ParsingError{Msg: "Measurement has bad TYPE", Scope: "Validator.OnObjectEnd"}
	}

	s.elementCompleted = true
	return nil
}

func typeMismatch(name string) error {
	return &qds.ParsingError{Msg: "VALUE of '" + name + "' does not match its TYPE", Scope: "Validator.OnObjectEnd"}
}

// validWord accepts exactly four hex digits.
func validWord(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

func wrongType(key, raw string, actual, expected scalarEvent) error {
	return &qds.ParsingError{
		Msg:   key + " value '" + raw + "' has wrong type (" + eventNames[actual] + "), should be " + eventNames[expected],
		Scope: "Validator.Field",
	}
}

var fieldValidators = map[string]fieldValidator{
	"NAME": func(s *ParsingState, ev scalarEvent, raw string, val qds.Value, m *qds.Measurement) error {
		if ev != evString {
			return wrongType("NAME", raw, ev, evString)
		}
		if m.Name != "" {
			return &qds.ParsingError{Msg: "Duplicate NAME key", Scope: "Validator.Field"}
		}
		m.Name = val.Str()
		return nil
	},
	"TYPE": func(s *ParsingState, ev scalarEvent, raw string, val qds.Value, m *qds.Measurement) error {
		if ev != evString {
			return wrongType("TYPE", raw, ev, evString)
		}
		if m.Type != qds.TypeNotSet {
			return &qds.ParsingError{Msg: "Duplicate TYPE key", Scope: "Validator.Field"}
		}
		t := qds.ParseMeasurementType(val.Str())
		if t == qds.TypeNotSet {
			return &qds.ParsingError{Msg: "Invalid TYPE value '" + raw + "'", Scope: "Validator.Field"}
		}
		m.Type = t
		return nil
	},
	"UNIT": func(s *ParsingState, ev scalarEvent, raw string, val qds.Value, m *qds.Measurement) error {
		if ev != evString {
			return wrongType("UNIT", raw, ev, evString)
		}
		if m.Unit != "" {
			return &qds.ParsingError{Msg: "Duplicate UNIT key", Scope: "Validator.Field"}
		}
		m.Unit = val.Str()
		return nil
	},
	"VALUE": func(s *ParsingState, ev scalarEvent, raw string, val qds.Value, m *qds.Measurement) error {
		if !m.Value.IsEmpty() {
			return &qds.ParsingError{Msg: "Duplicate VALUE key", Scope: "Validator.Field"}
		}
		m.Value = val
		return nil
	},
	// Legacy key set by VisionLine, ignore.
	"DECIMALS": func(s *ParsingState, ev scalarEvent, raw string, val qds.Value, m *qds.Measurement) error {
		return nil
	},
}
