package apperror

import (
	"errors"

	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/schemas"
)

// InvalidPayload converts a schema validation failure into an INVALID_PAYLOAD
// error carrying the validator's messages. Any other error, such as an
// unknown schema id, is returned unchanged.
func InvalidPayload(message string, err error) error {
	var ve *schemas.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	return &Error{Code: CodeInvalidPayload, Message: message, Details: ve.Errors, Err: err}
}
