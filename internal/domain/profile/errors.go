package profile

import "errors"

// Sentinel kinds for tracker input errors.
var (
	ErrInvalidEvaluation = errors.New("invalid evaluation")
	ErrMalformedLeak     = errors.New("leak identifier must look like <category>.<leak>")
	ErrUnknownSkillLevel = errors.New("unknown skill level")
	ErrInvalidProfile    = errors.New("invalid profile")
)
