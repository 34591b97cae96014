package publisher

import (
	"fmt"
	"time"
)

// LoginTimeoutError means the authenticated area was never reached within
// the deadline. Fatal: recovery requires a human completing the login in
// the open browser window.
type LoginTimeoutError struct {
	Deadline time.Duration
}

func (e *LoginTimeoutError) Error() string {
	return fmt.Sprintf("publisher: login not detected within %s; complete the login in the browser and rerun", e.Deadline)
}
