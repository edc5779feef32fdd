// Package jwt verifies (and, for tooling, issues) the signed session tokens
// carried in the authorization cookie.
//
// A [Manager] accepts exactly one algorithm. Secret material is decoded
// according to an explicit [SecretEncoding]; the package never guesses
// whether a secret is base64.
package jwt
