package txn

// Response is the in-flight protocol response payload of a transaction. All
// exchanges derived from the same transaction mutate this one value; the
// terminal renderer turns it into the wire response.
type Response struct {
	// The three-field error surface. Error stays empty until an operation is
	// rejected or a caller pre-populates a challenge.
	Error            string
	ErrorDescription string
	ErrorURI         string

	params map[string]any
}

// SetError sets the error triple in one step.
func (r *Response) SetError(code, description, uri string) {
	r.Error = code
	r.ErrorDescription = description
	r.ErrorURI = uri
}

// SetParam stores an operation-specific response field. The most recently
// set value wins.
func (r *Response) SetParam(key string, value any) {
	if r.params == nil {
		r.params = make(map[string]any)
	}
	r.params[key] = value
}

// Param returns an operation-specific response field.
func (r *Response) Param(key string) (any, bool) {
	v, ok := r.params[key]
	return v, ok
}

// Payload flattens the response into wire form: the error triple under its
// standard names plus every operation-specific field. Empty error fields are
// omitted.
func (r *Response) Payload() map[string]any {
	payload := make(map[string]any, len(r.params)+3)
	for k, v := range r.params {
		payload[k] = v
	}
	if r.Error != "" {
		payload["error"] = r.Error
	}
	if r.ErrorDescription != "" {
		payload["error_description"] = r.ErrorDescription
	}
	if r.ErrorURI != "" {
		payload["error_uri"] = r.ErrorURI
	}
	return payload
}
