package service

import "errors"

var (
	ErrNotFound            = errors.New("record not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidCheckout     = errors.New("invalid checkout request")
	ErrInvalidVerification = errors.New("invalid verification request")
	ErrStatusNotAllowed    = errors.New("order status change not allowed")
	ErrAdminSession        = errors.New("admin session expired or invalid")
	ErrInvalidCategory     = errors.New("category is not configured")
	ErrInvalidInput        = errors.New("invalid input")
	ErrLoginExists         = errors.New("login already exists")
	ErrInvalidCredentials  = errors.New("invalid login or password")
	ErrOptimisticLock      = errors.New("optimistic lock conflict")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrMixedCurrency       = errors.New("cart contains products in different currencies")
	ErrInvalidCart         = errors.New("invalid cart")
)
