package recognition

import "errors"

// ErrMalformedMessage indicates a payload that could not be parsed into the
// wire contract. Receivers log and drop such messages; they never tear down
// the connection.
var ErrMalformedMessage = errors.New("recognition: malformed message")
