package ports

// RequestContext exposes the parts of the incoming HTTP request the gateway core needs
// without tying it to net/http.
type RequestContext interface {
	// ClientIP returns the caller IP, honoring proxy headers
	ClientIP() string

	// RawFieldValue returns a request parameter, body before query string
	RawFieldValue(name string) (string, bool)
}

// StaticRequestContext is a RequestContext backed by fixed values, used by
// the admin CLI and tests.
type StaticRequestContext struct {
	IP     string
	Values map[string]string
}

// ClientIP implements RequestContext
func (s StaticRequestContext) ClientIP() string {
	return s.IP
}

// RawFieldValue implements RequestContext
func (s StaticRequestContext) RawFieldValue(name string) (string, bool) {
	v, ok := s.Values[name]
	return v, ok
}
