package hooks

import "errors"

var (
	errNoHTTPClient    = errors.New("hooks: no http client configured")
	errNoLLMDispatcher = errors.New("hooks: no llm dispatcher configured")
	errUnknownProvider = errors.New("hooks: unknown hook provider")
	errHookMissingURL  = errors.New("hooks: http hook config missing \"url\"")
)
