package credentialexchange

import (
	"strconv"
	"time"
)

// IsExpired reports whether annotation holds an epoch-seconds timestamp
// strictly before now. Annotations that do not parse as an integer never
// report expired, so such a session is never purged automatically.
func IsExpired(annotation string, now time.Time) bool {
	epoch, err := strconv.ParseInt(annotation, 10, 64)
	if err != nil {
		return false
	}
	return epoch < now.Unix()
}
