package jobs

import "errors"

var errQueueFull = errors.New("job queue full")
