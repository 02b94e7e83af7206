package game

import (
	"errors"
	"fmt"
)

// ErrInputClosed is returned when the console input ends mid-game.
var ErrInputClosed = errors.New("input closed")

// ParseError reports move text that is not coordinate notation.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed move %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IllegalMoveError reports a well-formed move that is not legal in the
// current position.
type IllegalMoveError struct {
	Move string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %s", e.Move)
}
