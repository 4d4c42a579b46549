package service

import "errors"

var (
	ErrNotStarted      = errors.New("service not started")
	ErrStopped         = errors.New("service stopped")
	ErrBackpressure    = errors.New("evaluation queue full")
	ErrInvalidPlayerID = errors.New("invalid player id")
	ErrProfileExists   = errors.New("profile already exists")
	ErrNoLLM           = errors.New("no language model configured")
	ErrInvalidExport   = errors.New("invalid profile export")
)
