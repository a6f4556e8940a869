package service

import "time"

// Clock abstracts wall-clock reads so expiry checks are testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func NewClock() Clock {
	return systemClock{}
}
