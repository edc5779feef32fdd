// Package api is the client for the blog backend's REST API.
//
// Every service call returns a [Result]: a value on success or a [Failure]
// kind with the underlying [Error]. Callers branch on the kind instead of
// inspecting HTTP status codes.
//
// The bearer token for a call is taken from its context ([WithToken]);
// the client itself holds no credentials.
package api
