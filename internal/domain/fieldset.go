package domain

// FieldSet is an ordered field name to value mapping. Insertion order is kept
// because it is the order the fields are rendered and signed in.
type FieldSet struct {
	names  []string
	values map[string]string
}

// NewFieldSet creates an empty field set
func NewFieldSet() *FieldSet {
	return &FieldSet{values: make(map[string]string)}
}

// FieldSetFromValues copies a posted form (first value per name) into a field set.
// Names are inserted in the order given by names; values without an entry in names are appended
// in map iteration order, which is irrelevant for positional verification.
func FieldSetFromValues(params map[string][]string, names ...string) *FieldSet {
	fs := NewFieldSet()
	for _, name := range names {
		if values, ok := params[name]; ok && len(values) > 0 {
			fs.Set(name, values[0])
		}
	}
	for name, values := range params {
		if fs.Has(name) || len(values) == 0 {
			continue
		}
		fs.Set(name, values[0])
	}
	return fs
}

// Set inserts a field, or replaces its value in place when it already exists
func (f *FieldSet) Set(name, value string) {
	if _, ok := f.values[name]; !ok {
		f.names = append(f.names, name)
	}
	f.values[name] = value
}

// Get returns a field value and whether it was present
func (f *FieldSet) Get(name string) (string, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Value returns a field value, or empty string when absent
func (f *FieldSet) Value(name string) string {
	return f.values[name]
}

// Has reports whether a field is present
func (f *FieldSet) Has(name string) bool {
	_, ok := f.values[name]
	return ok
}

// Delete removes a field
func (f *FieldSet) Delete(name string) {
	if _, ok := f.values[name]; !ok {
		return
	}
	delete(f.values, name)
	for i, n := range f.names {
		if n == name {
			f.names = append(f.names[:i], f.names[i+1:]...)
			break
		}
	}
}

// Names returns the field names in insertion order
func (f *FieldSet) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Len returns the number of fields
func (f *FieldSet) Len() int {
	return len(f.names)
}

// Clone returns an independent copy
func (f *FieldSet) Clone() *FieldSet {
	out := NewFieldSet()
	for _, name := range f.names {
		out.Set(name, f.values[name])
	}
	return out
}

// Map returns the fields as a plain map
func (f *FieldSet) Map() map[string]string {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// SignedMessage is a field set together with the MAC computed over it
type SignedMessage struct {
	Fields *FieldSet
	MAC    string
}
