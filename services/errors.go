package services

import "errors"

var (
	ErrProviderNotConfigured      = errors.New("payment provider secret key is not configured")
	ErrProviderUnavailable        = errors.New("payment provider temporarily unavailable")
	ErrWebhookNotConfigured       = errors.New("webhook signing secret is not configured")
	ErrCustomerDetailsUnavailable = errors.New("customer details unavailable")
	ErrDuplicateOrder             = errors.New("order already processed")
	ErrEmailNotConfigured         = errors.New("email transport is not configured")
)
