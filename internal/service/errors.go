package service

import "errors"

var (
	ErrInvalidTimezone   = errors.New("unknown time zone")
	ErrInvalidTradeTimes = errors.New("exit time must not be before entry time")
	ErrInvalidGrade      = errors.New("setup grade must be one of A+, A, B, C")
	ErrSetupNameTaken    = errors.New("setup name already exists")
	ErrFeatureLocked     = errors.New("feature not available on current plan")
	ErrInvalidPlan       = errors.New("plan must be pro or elite")
)
