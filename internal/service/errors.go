package service

import "errors"

var (
	ErrNoActiveSession      = errors.New("no cart found for this session")
	ErrEmptyCart            = errors.New("cart is empty, nothing to checkout")
	ErrInvalidAddress       = errors.New("address not found")
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")
	ErrInvalidSignature     = errors.New("payment signature mismatch")
	ErrPaymentUnverifiable  = errors.New("payment cannot be captured from its current state")
)
