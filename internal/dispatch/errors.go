package dispatch

import (
	"errors"
	"fmt"
)

// ErrStaleReference means the message behind a MessageRef no longer exists
// on the platform, for example because somebody deleted it by hand.
// Callers recover by posting fresh and replacing their stored reference
var ErrStaleReference = errors.New("message reference is stale")

// UnknownAliasError means a logical destination name has no entry in the
// channel alias configuration. There is no fallback destination: silent
// misdelivery is worse than a loud failure
type UnknownAliasError struct {
	Alias string
}

func (e *UnknownAliasError) Error() string {
	return fmt.Sprintf("channel alias %q is not configured", e.Alias)
}
