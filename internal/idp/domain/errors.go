package domain

import "errors"

// ErrInvalid wraps every validation failure of a domain value.
var ErrInvalid = errors.New("domain: invalid")
