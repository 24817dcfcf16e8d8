package auth

import "errors"

var (
	// ErrInvalidToken indicates the token is malformed, badly signed or of the wrong type.
	ErrInvalidToken = errors.New("invalid operator token")

	// ErrExpiredToken indicates the token has expired.
	ErrExpiredToken = errors.New("operator token has expired")

	// ErrTokenNotYetValid indicates the token's nbf claim is in the future.
	ErrTokenNotYetValid = errors.New("operator token not yet valid")

	// ErrWeakSecret indicates the signing secret is shorter than MinSecretLength.
	ErrWeakSecret = errors.New("operator token secret too short")
)
