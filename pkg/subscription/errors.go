package subscription

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrAlreadySubscribed    = errors.New("open subscription already exists")
	ErrStorageUnavailable   = errors.New("subscription storage unavailable")
)
