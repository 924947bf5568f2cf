// Package apperr defines the error taxonomy shared by the upload and gallery
// flows. Errors that the user should hear about carry an Alert; everything
// else is logged and dropped by the caller.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by how it is recovered from.
type Kind int

const (
	// KindUnknown is reported for errors that did not come from this package.
	KindUnknown Kind = iota
	// KindConfiguration means the backend could not be set up. Fatal to the process.
	KindConfiguration
	// KindNetwork covers every put/get/save/query/delete/subscribe failure.
	KindNetwork
	// KindDecode means a payload could not be parsed. Logged, never shown.
	KindDecode
	// KindInvalid means the caller handed us unusable input.
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Alert is the title and message of a user-facing dialog.
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// IsZero reports whether the alert carries no content.
func (a Alert) IsZero() bool {
	return a.Title == "" && a.Message == ""
}

// Error is a classified failure.
type Error struct {
	Kind  Kind
	Op    string
	Alert Alert
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ConfigurationAlert is shown once at launch when the backend is unusable.
var ConfigurationAlert = Alert{
	Title:   "Error",
	Message: "Could not connect to PhotoAlbum backend. Unable to use this app now. Try again later.",
}

// Configuration wraps a backend setup failure.
func Configuration(err error) error {
	return &Error{Kind: KindConfiguration, Op: "configure backend", Alert: ConfigurationAlert, Err: err}
}

// Network wraps a remote operation failure with the alert to surface.
func Network(op string, alert Alert, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Alert: alert, Err: err}
}

// Decode wraps a payload that could not be parsed.
func Decode(op string, err error) error {
	return &Error{Kind: KindDecode, Op: op, Err: err}
}

// Invalid wraps unusable caller input.
func Invalid(op string, alert Alert, err error) error {
	return &Error{Kind: KindInvalid, Op: op, Alert: alert, Err: err}
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// AlertOf returns the alert carried by err, if any.
func AlertOf(err error) (Alert, bool) {
	var e *Error
	if errors.As(err, &e) && !e.Alert.IsZero() {
		return e.Alert, true
	}
	return Alert{}, false
}
