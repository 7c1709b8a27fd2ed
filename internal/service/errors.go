package service

import "errors"

var (
	// ErrNotFound: referenced user, product or conversation is missing.
	ErrNotFound = errors.New("not found")

	// ErrNotParticipant: caller is not one of the conversation's two
	// participants. The API boundary presents this with the same shape
	// as ErrNotFound so non-participants cannot probe for existence.
	ErrNotParticipant = errors.New("not a participant")

	// ErrValidation: malformed input (empty text, bad reply target,
	// self-chat and the like).
	ErrValidation = errors.New("validation failed")
)
