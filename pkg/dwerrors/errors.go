// Copyright (c) 2019-2025 Red Hat, Inc.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dwerrors

import (
	"fmt"
	"time"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/provision/sync"
)

// ValidationError is returned for malformed input: names, path-transform formats and exposer configuration.
// It is always detected before anything is submitted to the cluster.
type ValidationError struct {
	// Field identifies the invalid input, e.g. "pathTransform"
	Field string
	// Message is a user-friendly string explaining why the input is invalid
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ProvisioningError is returned when a provisioning step cannot complete. The environment being provisioned
// must be discarded.
type ProvisioningError struct {
	// Step is the name of the step that failed
	Step string
	// Err is the underlying error causing the problem. If nil, it is not included in the output of Error()
	Err error
	// Message is a user-friendly string explaining why the error occurred
	Message string
}

func (e *ProvisioningError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg != "" {
			msg = fmt.Sprintf("%s: %s", msg, e.Err)
		} else {
			msg = e.Err.Error()
		}
	}
	if e.Step != "" {
		return fmt.Sprintf("step %s failed: %s", e.Step, msg)
	}
	return msg
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// InfrastructureError wraps failures returned by the cluster API. Callers treat it as transient.
type InfrastructureError struct {
	Err     error
	Message string
}

func (e *InfrastructureError) Error() string {
	if e.Err != nil {
		if e.Message != "" {
			return fmt.Sprintf("%s: %s", e.Message, e.Err)
		}
		return e.Err.Error()
	}
	return e.Message
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// ConfigurationConflictError is returned when two exposed servers would produce the same routing path or name, or
// when environments merged into one declare the same object. Both identifiers are reported so the source
// configuration can be fixed.
type ConfigurationConflictError struct {
	First  string
	Second string
	// Reason describes what collided, e.g. the path "/svc/http/"
	Reason string
}

func (e *ConfigurationConflictError) Error() string {
	return fmt.Sprintf("%s and %s conflict: %s", e.First, e.Second, e.Reason)
}

type RetryError struct {
	// Err is the underlying error causing the problem. If nil, it is not included in the output of Error()
	Err error
	// Message is a user-friendly string explaining why the error occurred
	Message string
	// RequeueAfter represents how long we should wait before retrying. If unspecified, retry immediately.
	RequeueAfter time.Duration
}

func (e *RetryError) Error() string {
	if e.Err != nil {
		if e.Message != "" {
			return fmt.Sprintf("%s: %s", e.Message, e.Err)
		}
		return e.Err.Error()
	}
	return e.Message
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

type FailError struct {
	// Err is the underlying error causing the problem. If nil, it is not included in the output of Error()
	Err error
	// Message is a user-friendly string explaining why the error occurred
	Message string
}

func (e *FailError) Error() string {
	if e.Err != nil {
		if e.Message != "" {
			return fmt.Sprintf("%s: %s", e.Message, e.Err)
		}
		return e.Err.Error()
	}
	return e.Message
}

func (e *FailError) Unwrap() error {
	return e.Err
}

type WarningError struct {
	// Message is a user-friendly string explaining the warning present
	Message string
}

func (e *WarningError) Error() string {
	return e.Message
}

// WrapSyncError converts errors returned from the sync package into the error kinds used by callers.
func WrapSyncError(err error) error {
	switch syncErr := err.(type) {
	case *sync.NotInSyncError:
		return &RetryError{Err: syncErr}
	case *sync.UnrecoverableSyncError:
		return &FailError{Err: syncErr}
	case *sync.WarningError:
		return &WarningError{Message: syncErr.Error()}
	default:
		return err
	}
}

var (
	_ error = (*ValidationError)(nil)
	_ error = (*ProvisioningError)(nil)
	_ error = (*InfrastructureError)(nil)
	_ error = (*ConfigurationConflictError)(nil)
)
