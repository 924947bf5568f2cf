package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"configuration", Configuration(cause), KindConfiguration},
		{"network", Network("put object", Alert{Title: "Error"}, cause), KindNetwork},
		{"decode", Decode("decode change", cause), KindDecode},
		{"invalid", Invalid("compress", Alert{}, cause), KindInvalid},
		{"wrapped", fmt.Errorf("upload: %w", Network("put object", Alert{}, cause)), KindNetwork},
		{"plain", cause, KindUnknown},
		{"nil", nil, KindUnknown},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, KindOf(test.err))
		})
	}
}

func TestAlertOf(t *testing.T) {
	alert := Alert{Title: "Error", Message: "Could not upload image"}

	got, ok := AlertOf(fmt.Errorf("wrapped: %w", Network("put object", alert, errors.New("boom"))))
	assert.True(t, ok)
	assert.Equal(t, alert, got)

	_, ok = AlertOf(Decode("decode change", errors.New("bad json")))
	assert.False(t, ok, "decode errors never reach the user")

	got, ok = AlertOf(Configuration(errors.New("no db")))
	assert.True(t, ok)
	assert.Equal(t, ConfigurationAlert, got)
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("timeout")
	err := Network("get object", Alert{}, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "get object: timeout", err.Error())
	assert.Equal(t, "get object: network error", (&Error{Kind: KindNetwork, Op: "get object"}).Error())
}
