package availability

import "encoding/json"

// FailureKind classifies why no verdict was obtained. The zero value means the
// call succeeded.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureTimeout    FailureKind = "timeout"
	FailureConnection FailureKind = "connection_error"
	FailureHTTP       FailureKind = "http_error"
	FailureUnexpected FailureKind = "unexpected_error"
)

// Outcome is the normalized result of one availability check. It is persisted
// verbatim on the booking, so the json names are part of the stored format.
type Outcome struct {
	Succeeded   bool              `json:"success"`
	Available   bool              `json:"available"`
	Message     string            `json:"message"`
	FailureKind FailureKind       `json:"error,omitempty"`
	Conflicts   []json.RawMessage `json:"conflicts,omitempty"`
	RawResponse json.RawMessage   `json:"response_data,omitempty"`
}

// Granted reports whether the outcome admits the booking.
func (o Outcome) Granted() bool {
	return o.Succeeded && o.Available
}

const (
	msgTimeout    = "availability service did not respond (timeout)"
	msgConnection = "could not connect to the availability service"
)

func timeoutOutcome() Outcome {
	return Outcome{Message: msgTimeout, FailureKind: FailureTimeout}
}

func connectionOutcome() Outcome {
	return Outcome{Message: msgConnection, FailureKind: FailureConnection}
}

func unexpectedOutcome(err error) Outcome {
	return Outcome{
		Message:     "availability check failed: " + err.Error(),
		FailureKind: FailureUnexpected,
	}
}
