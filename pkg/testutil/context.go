package testutil

import (
	"context"
	"net/http"
	"time"

	"aroundtable/pkg/requestcontext"
)

// WithOrganizer simulates what the auth middleware does for authenticated
// requests.
func WithOrganizer(req *http.Request, subject string) *http.Request {
	return req.WithContext(requestcontext.WithOrganizer(req.Context(), subject))
}

// FixedTime returns a context whose request time is t, as the request time
// middleware would set it.
func FixedTime(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}
