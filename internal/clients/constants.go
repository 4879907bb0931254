package clients

import "time"

const (
	CACHE_RETRIES     = 3
	CACHE_RETRY_DELAY = 250 * time.Millisecond
	PING_TIMEOUT      = 3 * time.Second
)
