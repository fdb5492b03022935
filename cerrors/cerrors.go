// (c) Copyright 2019 Hewlett Packard Enterprise Development LP

package cerrors

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrorCode identifies the failure class of an Error
type ErrorCode uint32

const (
	OK                    ErrorCode = 0
	Unknown               ErrorCode = 1
	InvalidArgument       ErrorCode = 2
	NotFound              ErrorCode = 3
	AlreadyExists         ErrorCode = 4
	Internal              ErrorCode = 5
	ClusterNotFound       ErrorCode = 6
	ControllerNotFound    ErrorCode = 7
	ProviderNotFound      ErrorCode = 8
	HostResolution        ErrorCode = 9
	UngroupedHost         ErrorCode = 10
	NoHostGroup           ErrorCode = 11
	SplitHostGroup        ErrorCode = 12
	NoConnectedHosts      ErrorCode = 13
	DeviceNotVisible      ErrorCode = 14
	EndpointAlreadyExists ErrorCode = 15
	ContainerNotFound     ErrorCode = 16
	Timeout               ErrorCode = 17
	TaskFailed            ErrorCode = 18
)

// Category groups error codes by the stage that raised them
type Category string

const (
	CategoryGeneral      Category = "GeneralError"
	CategoryResolution   Category = "ResolutionError"
	CategoryProvisioning Category = "ProvisioningError"
	CategoryTask         Category = "TaskError"
)

// Error is the error type returned by every orchestration step
type Error struct {
	Code  ErrorCode `json:"code"`
	Text  string    `json:"text,omitempty"`
	cause error
}

// Newf returns an Error with a formatted message
func Newf(c ErrorCode, format string, a ...interface{}) *Error {
	return &Error{Code: c, Text: fmt.Sprintf(format, a...)}
}

// Wrapf returns an Error with a formatted message that keeps cause reachable
// through errors.Unwrap.
func Wrapf(c ErrorCode, cause error, format string, a ...interface{}) *Error {
	msg := fmt.Sprintf(format, a...)
	if cause != nil {
		msg = msg + ": " + cause.Error()
	}
	return &Error{Code: c, Text: msg, cause: cause}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Text)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// ErrorCode returns the status code contained in Error
func (e *Error) ErrorCode() ErrorCode {
	if e == nil {
		return OK
	}
	return e.Code
}

// ErrorText returns the text contained in Error
func (e *Error) ErrorText() string {
	if e == nil {
		return ""
	}
	return e.Text
}

// Category returns the taxonomy group of the error code
func (e *Error) Category() Category {
	return e.ErrorCode().Category()
}

// Code extracts the ErrorCode from anywhere in err's chain.  Errors that carry
// no code report Unknown, and a nil error reports OK.
func Code(err error) ErrorCode {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unknown
}

// Is reports whether err carries the given code
func Is(err error, c ErrorCode) bool {
	return err != nil && Code(err) == c
}

func (c ErrorCode) Category() Category {
	switch c {
	case HostResolution, UngroupedHost, NoHostGroup, SplitHostGroup:
		return CategoryResolution
	case NoConnectedHosts, DeviceNotVisible, EndpointAlreadyExists, ContainerNotFound:
		return CategoryProvisioning
	case Timeout, TaskFailed:
		return CategoryTask
	default:
		return CategoryGeneral
	}
}

func (c ErrorCode) String() string {
	switch c {
	case OK:
		return "OK"
	case Unknown:
		return "Unknown"
	case InvalidArgument:
		return "InvalidArgument"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case Internal:
		return "Internal"
	case ClusterNotFound:
		return "ClusterNotFound"
	case ControllerNotFound:
		return "ControllerNotFound"
	case ProviderNotFound:
		return "ProviderNotFound"
	case HostResolution:
		return "HostResolution"
	case UngroupedHost:
		return "UngroupedHost"
	case NoHostGroup:
		return "NoHostGroup"
	case SplitHostGroup:
		return "SplitHostGroup"
	case NoConnectedHosts:
		return "NoConnectedHosts"
	case DeviceNotVisible:
		return "DeviceNotVisible"
	case EndpointAlreadyExists:
		return "EndpointAlreadyExists"
	case ContainerNotFound:
		return "ContainerNotFound"
	case Timeout:
		return "Timeout"
	case TaskFailed:
		return "TaskFailed"
	default:
		return "Code(" + strconv.FormatInt(int64(c), 10) + ")"
	}
}
