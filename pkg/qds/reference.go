package qds

// ReferenceData is an out-of-band binary blob associated with a data set by
// symbolic name (REF measurement type).
//
// ID 0 means the reference is registered but not yet bound to an entry; it
// is patched to the owning entry's ID once a data set referencing Name is
// accepted. Names are unique across the reference table.
type ReferenceData struct {
	ID      int64
	Name    string
	Format  string
	Content []byte
}
