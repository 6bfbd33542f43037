package timeouts

import "time"

const (
	Probe         = 300 * time.Millisecond
	PollInterval  = 2 * time.Second
	PollRequest   = 3 * time.Second
	SecondShort   = 2 * time.Second
	SecondDefault = 10 * time.Second
	SecondLong    = 30 * time.Second
)
