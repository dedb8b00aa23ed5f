// Package qds holds the shared data model of the QDS buffer: measurements,
// buffer entries, reference data, reset/deletion bookkeeping and the error
// taxonomy.
//
// A QDS data set is a JSON array of measurement objects:
//
//	[
//	  {"NAME":"ProgramName","TYPE":"STRING","VALUE":"test"},
//	  {"NAME":"ProgramNumber","TYPE":"INT","VALUE":1}
//	]
package qds

import (
	gojson "github.com/goccy/go-json"
)

// MeasurementType is the declared data type of a measurement.
type MeasurementType uint8

const (
	TypeNotSet MeasurementType = iota
	TypeString
	TypeInteger
	TypeFloat
	TypeLong
	TypeDouble
	TypeBool
	TypeWord
	TypeTimestamp
	TypeRef
	TypeForeignKey
)

var typeNames = map[MeasurementType]string{
	TypeString:     "STRING",
	TypeInteger:    "INTEGER",
	TypeFloat:      "FLOAT",
	TypeLong:       "LONG",
	TypeDouble:     "DOUBLE",
	TypeBool:       "BOOL",
	TypeWord:       "WORD",
	TypeTimestamp:  "TIMESTAMP",
	TypeRef:        "REF",
	TypeForeignKey: "FOREIGN_KEY",
}

// String returns the wire literal of the type, or "" for TypeNotSet.
func (t MeasurementType) String() string {
	return typeNames[t]
}

// ParseMeasurementType converts a wire literal to a MeasurementType.
// "INT" is accepted as an alias for "INTEGER". Unknown literals map to
// TypeNotSet.
func ParseMeasurementType(s string) MeasurementType {
	switch s {
	case "STRING":
		return TypeString
	case "INTEGER", "INT":
		return TypeInteger
	case "FLOAT":
		return TypeFloat
	case "LONG":
		return TypeLong
	case "DOUBLE":
		return TypeDouble
	case "BOOL":
		return TypeBool
	case "WORD":
		return TypeWord
	case "TIMESTAMP":
		return TypeTimestamp
	case "REF":
		return TypeRef
	case "FOREIGN_KEY":
		return TypeForeignKey
	}
	return TypeNotSet
}

// Measurement is one named, typed, optionally unit-carrying value within a
// QDS data set. After validation, Name is non-empty, Type is set and the
// Value tag is consistent with Type.
type Measurement struct {
	Name  string
	Type  MeasurementType
	Unit  string
	Value Value
}

// measurementJSON fixes the key order of the serialized form:
// NAME, TYPE, UNIT (omitted when empty), VALUE.
type measurementJSON struct {
	Name  string `json:"NAME"`
	Type  string `json:"TYPE"`
	Unit  string `json:"UNIT,omitempty"`
	Value Value  `json:"VALUE"`
}

// ToJSON serializes a measurement list to its wire representation.
// VALUE carries the native JSON type of the measurement value; strings are
// fully escaped.
func ToJSON(list []Measurement) (string, error) {
	arr := make([]measurementJSON, len(list))
	for i, m := range list {
		arr[i] = measurementJSON{
			Name:  m.Name,
			Type:  m.Type.String(),
			Unit:  m.Unit,
			Value: m.Value,
		}
	}
	out, err := gojson.Marshal(arr)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
