package llm

import "errors"

var (
	ErrNoProviders        = errors.New("no llm providers configured")
	ErrAllProvidersFailed = errors.New("all llm providers failed")
	ErrEmptyResponse      = errors.New("empty llm response")
	ErrMissingAPIKey      = errors.New("llm api key missing")
)
