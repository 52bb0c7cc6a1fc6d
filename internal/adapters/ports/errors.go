package ports

import "errors"

// ErrSecretNotFound is returned (wrapped) by SecretManagerAdapter implementations
// when the requested secret does not exist.
var ErrSecretNotFound = errors.New("secret not found")
