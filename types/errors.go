package types

import "fmt"

// ErrMalformedConfig means a configuration parameter is present but empty or
// structurally invalid.
type ErrMalformedConfig struct {
	Param  int32
	Reason string
}

func (e ErrMalformedConfig) Error() string {
	return fmt.Sprintf("malformed config param %d: %s", e.Param, e.Reason)
}

// ErrMissingConfig means a required configuration parameter is absent.
type ErrMissingConfig struct {
	Param int32
}

func (e ErrMissingConfig) Error() string {
	return fmt.Sprintf("config param %d is missing", e.Param)
}
