package qdsjson

import "github.com/dlclark/regexp2"

// ISO-8601 date-time acceptance for TIMESTAMP measurements. Calendar dates
// (leap days only in valid leap years) and ordinal dates (001..366) are
// accepted; date hyphens, time colons and the timezone separator must be
// used consistently, which is what the backreferences enforce. Timezone is
// mandatory: Z or an offset with hours 00..23 and minutes 00..59.
//
// regexp2 rather than the standard engine: RE2 has no backreferences.
// Derived from https://stackoverflow.com/a/28022901.
var iso8601 = regexp2.MustCompile(
	`^(?:[1-9]\d{3}(-?)(?:(?:0[1-9]|1[0-2])\1(?:0[1-9]|1\d|2[0-8])|(?:0[13-9]|1[0-2])\1(?:29|30)`+
		`|(?:0[13578]|1[02])(?:\1)31|00[1-9]|0[1-9]\d|[12]\d{2}|3(?:[0-5]\d|6[0-5]))|(?:[1-9]\d(?:0`+
		`[48]|[2468][048]|[13579][26])|(?:[2468][048]|[13579][26])00)(?:(-?)02(?:\2)29|-?366))T(?:[01]`+
		`\d|2[0-3])(:?)[0-5]\d(?:\3[0-5]\d)?`+
		`(\.\d{1,6})?`+
		`(?:Z|[+-](?:[01]\d|2[0-3])(?:\3[0-5]\d)?)$`,
	regexp2.None)

// ValidTimestamp reports whether s is an acceptable TIMESTAMP literal.
func ValidTimestamp(s string) bool {
	ok, err := iso8601.MatchString(s)
	return err == nil && ok
}
