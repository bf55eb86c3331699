package healthcheck

import (
	"fmt"
	"net/http"
)

// StatusError is returned by a probe that got a non-200 answer.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("health endpoint returned %d %s", e.Code, http.StatusText(e.Code))
}
