package intake

import "errors"

var (
	errEmptyPayload = errors.New("payload is empty")
	errTrailingData = errors.New("unexpected data after JSON object")
)
