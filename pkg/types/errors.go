package types

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is; the struct types below wrap them with context.
var (
	ErrConfiguration         = errors.New("configuration error")
	ErrSystemDiskProtected   = errors.New("system disk is protected")
	ErrDeviceBusy            = errors.New("device busy")
	ErrMonitoringUnavailable = errors.New("monitoring unavailable")
	ErrWorkloadSuite         = errors.New("workload suite failed")
	ErrTeardown              = errors.New("teardown failed")
)

// ConfigurationError is fatal at startup
type ConfigurationError struct {
	Source string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %v", e.Source, e.Err)
}

func (e *ConfigurationError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }

// SystemDiskProtectedError is returned for any destructive operation on the
// system device. It is never bypassed.
type SystemDiskProtectedError struct {
	Device    string
	Operation string
}

func (e *SystemDiskProtectedError) Error() string {
	return fmt.Sprintf("refusing to %s %s: it is the system device", e.Operation, e.Device)
}

func (e *SystemDiskProtectedError) Unwrap() error { return ErrSystemDiskProtected }

// DeviceBusyError is fatal to one Run only
type DeviceBusyError struct {
	Device string
	Err    error
}

func (e *DeviceBusyError) Error() string {
	return fmt.Sprintf("device %s busy: %v", e.Device, e.Err)
}

func (e *DeviceBusyError) Unwrap() []error { return []error{ErrDeviceBusy, e.Err} }

// WorkloadSuiteFailure is recorded per family and never aborts siblings
type WorkloadSuiteFailure struct {
	Family SuiteFamily
	Failed []string // variants that failed
	Err    error
}

func (e *WorkloadSuiteFailure) Error() string {
	if len(e.Failed) > 0 {
		return fmt.Sprintf("%s suite: variants %v failed: %v", e.Family, e.Failed, e.Err)
	}
	return fmt.Sprintf("%s suite: %v", e.Family, e.Err)
}

func (e *WorkloadSuiteFailure) Unwrap() []error { return []error{ErrWorkloadSuite, e.Err} }

// TeardownFailure is logged loudly and never escalated
type TeardownFailure struct {
	Step   string
	Device string
	Err    error
}

func (e *TeardownFailure) Error() string {
	return fmt.Sprintf("teardown %s on %s: %v", e.Step, e.Device, e.Err)
}

func (e *TeardownFailure) Unwrap() []error { return []error{ErrTeardown, e.Err} }
