package testutil

import (
	"net/http"

	"portico/pkg/requestcontext"
)

// WithRequestID stamps a request ID on the request context.
// This simulates what the requestid middleware would do, for tests that
// drive handlers or the gateway without the middleware chain.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithClientMetadata stamps the client address and user agent on the
// request context the way the metadata middleware would.
func WithClientMetadata(req *http.Request, ip, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, userAgent))
}
