package integration

// Payload is one schema-less product record from the ERP. Extractors check
// presence and type explicitly; absent keys mean "leave unchanged".
type Payload map[string]any

// Has reports whether key is present, even with a null value
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Get returns the raw value under key
func (p Payload) Get(key string) any {
	return p[key]
}

// Object returns the nested object under key
func (p Payload) Object(key string) (Payload, bool) {
	return AsObject(p[key])
}

// List returns the nested list under key
func (p Payload) List(key string) ([]any, bool) {
	v, ok := p[key].([]any)
	return v, ok
}

// AsObject converts a decoded JSON value into a Payload
func AsObject(v any) (Payload, bool) {
	switch t := v.(type) {
	case Payload:
		return t, true
	case map[string]any:
		return Payload(t), true
	}
	return nil, false
}
