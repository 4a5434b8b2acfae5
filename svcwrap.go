package svcwrap

import "time"

// Defaults used when a Config field is left zero
const (
	// DefaultStopGrace is the fixed pause between a stop request and the
	// delete request when no stop timeout is configured
	DefaultStopGrace = 100 * time.Millisecond

	// DefaultStopPollInterval is the query interval used while waiting for a
	// stop to complete when Config.StopTimeout is set
	DefaultStopPollInterval = 50 * time.Millisecond

	// DefaultHelperDir is the directory, relative to the working directory,
	// where the helper executable is looked up when no override is given
	DefaultHelperDir = "executables"

	// DescriptionPrefix prefixes the description attached to every registration
	DescriptionPrefix = "svcwrap service wrapper for "
)

// Environment variables read by LoadConfig
const (
	// EnvHelperPath overrides Config.HelperPath
	EnvHelperPath = "SVCWRAP_HELPER_PATH"

	// EnvStopGrace overrides Config.StopGrace (Go duration syntax)
	EnvStopGrace = "SVCWRAP_STOP_GRACE"

	// EnvStopTimeout overrides Config.StopTimeout (Go duration syntax)
	EnvStopTimeout = "SVCWRAP_STOP_TIMEOUT"

	// EnvStopPollInterval overrides Config.StopPollInterval (Go duration syntax)
	EnvStopPollInterval = "SVCWRAP_STOP_POLL_INTERVAL"
)

// Operation identifies a step of a controller call
type Operation int

const (
	// OpUnknown represents an unknown operation
	OpUnknown Operation = iota
	// OpBuild is descriptor construction
	OpBuild
	// OpLoadConfig is configuration loading
	OpLoadConfig
	// OpConnect is the connection to the service manager
	OpConnect
	// OpResolveHelper is canonicalization of the helper executable path
	OpResolveHelper
	// OpCreate is the registration request
	OpCreate
	// OpDescribe attaches the description to a new registration
	OpDescribe
	// OpOpen opens an existing registration
	OpOpen
	// OpStart is the start request
	OpStart
	// OpQuery is a status query
	OpQuery
	// OpStop is the stop request
	OpStop
	// OpDelete is the delete request
	OpDelete
)

// Operation string constants
const (
	opUnknownStr       = "unknown"
	opBuildStr         = "build"
	opLoadConfigStr    = "load-config"
	opConnectStr       = "connect"
	opResolveHelperStr = "resolve-helper"
	opCreateStr        = "create"
	opDescribeStr      = "describe"
	opOpenStr          = "open"
	opStartStr         = "start"
	opQueryStr         = "query"
	opStopStr          = "stop"
	opDeleteStr        = "delete"
)

// String returns the string representation of an Operation
func (op Operation) String() string {
	switch op {
	case OpBuild:
		return opBuildStr
	case OpLoadConfig:
		return opLoadConfigStr
	case OpConnect:
		return opConnectStr
	case OpResolveHelper:
		return opResolveHelperStr
	case OpCreate:
		return opCreateStr
	case OpDescribe:
		return opDescribeStr
	case OpOpen:
		return opOpenStr
	case OpStart:
		return opStartStr
	case OpQuery:
		return opQueryStr
	case OpStop:
		return opStopStr
	case OpDelete:
		return opDeleteStr
	default:
		return opUnknownStr
	}
}
