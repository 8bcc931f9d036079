package domain

import "github.com/go-playground/validator/v10"

// Shared validator instance for constructor-time checks. Struct tags cover
// per-field ranges; cross-field invariants live in each Validate method.
var validate = validator.New(validator.WithRequiredStructEnabled())
