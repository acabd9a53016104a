package address

import "errors"

// ErrAddressInvalid covers both missing addresses and addresses owned by a
// different user; checkout does not distinguish the two.
var ErrAddressInvalid = errors.New("address invalid")
