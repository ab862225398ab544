// Package jwt issues and verifies the signed session tokens carried in the
// HTTP session cookie. A token names an account handle and nothing else;
// rights are always reloaded from the credential store.
package jwt
