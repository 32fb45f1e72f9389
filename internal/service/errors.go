package service

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrAuctionClosed    = errors.New("auction closed")
	ErrAlreadyAwarded   = errors.New("auction already awarded")
	ErrNoOffers         = errors.New("no offers on auction")
)
