package plans

import "errors"

var (
	ErrPlanNotFound             = errors.New("plan not found")
	ErrPlanInactive             = errors.New("plan is deactivated")
	ErrInvalidPlanConfiguration = errors.New("invalid plan configuration")
	ErrPackageNotFound          = errors.New("credit package not found")
	ErrInvalidPackage           = errors.New("invalid credit package configuration")
	ErrFailedToLoadCatalog      = errors.New("failed to load plan catalog")
)
