package chatbot

import (
	"fmt"
	"strconv"
)

// Messages sent to clients. Upstream detail stays in the server log.
const (
	msgInternalError   = "Internal server error"
	msgInvalidRequest  = "Invalid request"
	msgUpstreamFailure = "Failed to generate a response"
	msgTooManyRequests = "Too many requests"
)

// UnsupportedProviderError is returned before any upstream call when the
// requested provider is unknown or has no credentials configured.
type UnsupportedProviderError struct {
	Provider Provider
}

// Error echoes the requested name, quoted when it holds anything that is not
// plain printable text.
func (e *UnsupportedProviderError) Error() string {
	name := string(e.Provider)
	if quoted := strconv.Quote(name); quoted != `"`+name+`"` {
		name = quoted
	}
	return fmt.Sprintf("Unsupported provider: %s", name)
}
