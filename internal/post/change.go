package post

import (
	"encoding/json"
	"fmt"

	"github.com/photoalbum/service/internal/apperr"
)

// MutationType tags a ChangeEvent.
type MutationType string

const (
	Created MutationType = "create"
	Updated MutationType = "update"
	Deleted MutationType = "delete"
)

// ChangeEvent is an asynchronous notification of a create, update or delete
// on a post record.
type ChangeEvent struct {
	Type MutationType `json:"mutationType"`
	Post Post         `json:"post"`
}

// DecodeChange parses a change notification payload. Malformed payloads
// and unknown mutation types are decode errors.
func DecodeChange(payload []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ChangeEvent{}, apperr.Decode("decode change event", err)
	}
	switch ev.Type {
	case Created, Updated, Deleted:
	default:
		return ChangeEvent{}, apperr.Decode("decode change event", fmt.Errorf("unknown mutation type %q", ev.Type))
	}
	if ev.Post.ImageKey == "" {
		return ChangeEvent{}, apperr.Decode("decode change event", fmt.Errorf("post has no image key"))
	}
	return ev, nil
}
