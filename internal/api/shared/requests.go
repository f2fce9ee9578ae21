package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Request decoding errors.
var (
	// ErrInvalidBody is returned when the body is not a JSON document of the
	// expected shape.
	ErrInvalidBody = errors.New("invalid request body")

	// ErrBodyTooLarge is returned when the body exceeds the configured limit.
	ErrBodyTooLarge = errors.New("request body too large")
)

// DecodeJSON decodes the request body into the given struct.
// An empty body decodes as an empty object. Anything other than whitespace
// after the first JSON value is rejected.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return decodeError(err)
	}

	err := dec.Decode(&struct{}{})
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return fmt.Errorf("%w: unexpected data after JSON value", ErrInvalidBody)
	default:
		return decodeError(err)
	}
}

func decodeError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, tooLarge.Limit)
	}
	return fmt.Errorf("%w: %v", ErrInvalidBody, err)
}
