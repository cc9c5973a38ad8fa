// Package refresh exchanges the ambient renewal cookie for a fresh access
// token.
//
// A Coordinator posts to the refresh endpoint with no Authorization header;
// the renewal cookie travels in the http.Client's cookie jar and is never
// seen by this package. A successful response is written to the token store;
// any failure clears the store so no stale token survives.
//
// Renewals are single-flight: however many goroutines ask for a renewal at
// the same time, one request reaches the server and every caller receives
// its outcome. Servers that rotate renewal cookies on use would otherwise
// invalidate the session on the second concurrent call.
//
//	c := refresh.New(baseURL, store,
//	    refresh.WithHTTPClient(&http.Client{Jar: j}),
//	    refresh.WithOnFailed(func(ctx context.Context, err error) { ... }),
//	)
//	grant, err := c.Renew(ctx)
package refresh
