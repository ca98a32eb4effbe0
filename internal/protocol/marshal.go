package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lox/cambio/internal/game"
)

// ErrUnknownMessageType is returned for messages with no registered type.
var ErrUnknownMessageType = errors.New("unknown message type")

// Marshal serializes a message to JSON.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal deserializes JSON data into a message.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

type envelope struct {
	Type MessageType `json:"type"`
}

// PeekType reads just the type discriminator so the receiver can pick the
// concrete message to decode into.
func PeekType(data []byte) (MessageType, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("malformed message: %w", err)
	}
	if env.Type == "" {
		return "", ErrUnknownMessageType
	}
	return env.Type, nil
}

// NewError builds an Error message from an engine error, mapping the
// error taxonomy to wire codes.
func NewError(err error) Error {
	code := CodeProtocol
	switch {
	case errors.Is(err, game.ErrOutOfTurn):
		code = CodeOutOfTurn
	case errors.Is(err, game.ErrNotAllowed):
		code = CodeNotAllowed
	case errors.Is(err, game.ErrPoolExhausted):
		code = CodePoolExhausted
	case errors.Is(err, game.ErrInvalidTransfer):
		code = CodeInvalidTransfer
	case errors.Is(err, game.ErrBadState):
		code = CodeBadState
	}
	return Error{Type: TypeError, Code: code, Message: err.Error()}
}
