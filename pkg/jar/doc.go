// Package jar provides the http.CookieJar that carries the long-lived renewal
// credential between the client and the auth endpoints.
//
// The renewal cookie is set by the server as HttpOnly and is never read by
// application code: the jar hands it back to the server on every request made
// through an http.Client that uses it. When a file path is configured the jar
// also writes its cookies to disk, so a restarted client still holds the
// cookie it received before the restart.
//
//	j, err := jar.New(jar.WithFile(path))
//	client := &http.Client{Jar: j}
package jar
