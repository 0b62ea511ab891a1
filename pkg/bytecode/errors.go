package bytecode

import "errors"

// errTooMuchCode is returned by PatchJump/EmitLoop when a jump distance
// overflows the 16-bit encoding.
var errTooMuchCode = errors.New("Too much code to jump over.")
