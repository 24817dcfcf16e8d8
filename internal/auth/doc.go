// Package auth issues and validates the operator tokens that guard the
// state-changing routes of the control API.
//
// Tokens are HMAC-SHA256 signed JWTs carrying an operator subject and a
// fixed token type, so a token minted for another purpose with the same
// secret is rejected.
package auth
