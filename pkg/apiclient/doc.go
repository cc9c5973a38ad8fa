// Package apiclient sends authenticated requests to the grade service.
//
// Each call attaches the stored access token as a bearer credential and
// relies on the http.Client's cookie jar for the renewal cookie. When the
// server answers 401, the client asks its Renewer for a fresh token and
// re-issues the identical request exactly once. If renewal fails, the
// original 401 response is returned untouched so callers can handle it.
//
//	c, err := apiclient.New(baseURL, store, coordinator,
//	    apiclient.WithHTTPClient(&http.Client{Jar: j}),
//	)
//	resp, err := c.Do(ctx, "/api/student/courses")
//	resp, err = c.Do(ctx, "/api/courses/",
//	    apiclient.WithMethod(http.MethodPost),
//	    apiclient.WithJSON(course),
//	)
//
// Binary and multipart bodies never receive the default JSON content type;
// multipart bodies get the boundary-carrying type generated by the client.
package apiclient
