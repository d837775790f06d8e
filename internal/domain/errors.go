package domain

import "errors"

var (
	// errTargetShape is returned when a target sets both or neither of
	// configuration_name/provider.
	errTargetShape = errors.New("domain: target must set exactly one of configuration_name or provider")
	// errTargetModelRequired is returned when provider is set without model.
	errTargetModelRequired = errors.New("domain: target.model is required when target.provider is set")
)
