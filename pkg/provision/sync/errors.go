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

package sync

import (
	"fmt"
	"reflect"

	crclient "sigs.k8s.io/controller-runtime/pkg/client"
)

type NotInSyncReason string

const (
	UpdatedObjectReason NotInSyncReason = "Updated object"
	CreatedObjectReason NotInSyncReason = "Created object"
	DeletedObjectReason NotInSyncReason = "Deleted object"
	NeedRetryReason     NotInSyncReason = "Need to retry"
)

// NotInSyncError is returned when the cluster was modified to match the spec object. The object is not
// yet known to be in sync and the operation should be repeated to confirm.
type NotInSyncError struct {
	Reason NotInSyncReason
	Object crclient.Object
}

func (e *NotInSyncError) Error() string {
	return fmt.Sprintf("%s %s is not ready: %s", objectKind(e.Object), e.Object.GetName(), e.Reason)
}

func NewNotInSync(obj crclient.Object, reason NotInSyncReason) *NotInSyncError {
	return &NotInSyncError{
		Reason: reason,
		Object: obj,
	}
}

// UnrecoverableSyncError is returned when the object provided is rejected by the cluster as invalid. Retrying
// will not help.
type UnrecoverableSyncError struct {
	Cause error
}

func (e *UnrecoverableSyncError) Error() string {
	return e.Cause.Error()
}

func (e *UnrecoverableSyncError) Unwrap() error {
	return e.Cause
}

// WarningError is returned when an object was synced but something about it should be surfaced to the user.
type WarningError struct {
	Message string
	Err     error
}

func (e *WarningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err)
	}
	return e.Message
}

func (e *WarningError) Unwrap() error {
	return e.Err
}

func objectKind(obj crclient.Object) string {
	if kind := obj.GetObjectKind().GroupVersionKind().Kind; kind != "" {
		return kind
	}
	return reflect.TypeOf(obj).Elem().Name()
}
