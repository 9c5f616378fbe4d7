package iref

import "errors"

var (
	ErrTruncated            = errors.New("iref: truncated stream")
	ErrMalformedLength      = errors.New("iref: malformed reference length")
	ErrIDOutOfRange         = errors.New("iref: item id out of range for width")
	ErrUnexpectedBoxType    = errors.New("iref: unexpected box type")
	ErrInvalidHeader        = errors.New("iref: invalid box header")
	ErrInvalidReferenceType = errors.New("iref: invalid reference type")
	ErrLimitExceeded        = errors.New("iref: limit exceeded")
	ErrBoxNotEmpty          = errors.New("iref: box already holds references or was parsed")
)
