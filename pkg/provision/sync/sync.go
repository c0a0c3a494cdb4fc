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
	"context"
	"fmt"
	"reflect"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	corev1 "k8s.io/api/core/v1"
	k8sErrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	crclient "sigs.k8s.io/controller-runtime/pkg/client"
)

// ClusterAPI bundles everything needed to read and write objects on the cluster.
type ClusterAPI struct {
	Client crclient.Client
	Scheme *runtime.Scheme
	Logger logr.Logger
	Ctx    context.Context
}

// SyncObjectWithCluster synchronises the state of specObj to the cluster, creating or updating the cluster object
// as required. If specObj is in sync with the cluster, returns the object as it exists on the cluster. Returns a
// NotInSyncError if the cluster was changed, UnrecoverableSyncError if object provided is invalid, or generic error
// if an unexpected error is encountered
func SyncObjectWithCluster(specObj crclient.Object, api ClusterAPI) (crclient.Object, error) {
	objType := reflect.TypeOf(specObj).Elem()
	clusterObj := reflect.New(objType).Interface().(crclient.Object)

	err := api.Client.Get(api.Ctx, types.NamespacedName{Name: specObj.GetName(), Namespace: specObj.GetNamespace()}, clusterObj)
	if err != nil {
		if k8sErrors.IsNotFound(err) {
			return nil, createObjectGeneric(specObj, api)
		}
		return nil, err
	}

	if !isMutableObject(specObj) {
		return clusterObj, nil
	}

	diffFunc := diffFuncs[objType]
	if diffFunc == nil {
		return nil, &UnrecoverableSyncError{fmt.Errorf("attempting to sync unrecognized object %s", objType)}
	}
	shouldDelete, shouldUpdate := diffFunc(specObj, clusterObj)
	if shouldDelete {
		err := api.Client.Delete(api.Ctx, clusterObj)
		if err != nil && !k8sErrors.IsNotFound(err) {
			return nil, err
		}
		return nil, NewNotInSync(specObj, DeletedObjectReason)
	}
	if shouldUpdate {
		api.Logger.V(1).Info(fmt.Sprintf("Diff: %s", cmp.Diff(specObj, clusterObj)))
		specObj.SetResourceVersion(clusterObj.GetResourceVersion())
		copyImmutableFields(specObj, clusterObj)
		return nil, updateObjectGeneric(specObj, api)
	}
	return clusterObj, nil
}

func createObjectGeneric(specObj crclient.Object, api ClusterAPI) error {
	err := api.Client.Create(api.Ctx, specObj)
	switch {
	case err == nil:
		return NewNotInSync(specObj, CreatedObjectReason)
	case k8sErrors.IsAlreadyExists(err):
		// The object was created between our get and create; let the caller retry.
		return NewNotInSync(specObj, NeedRetryReason)
	case k8sErrors.IsInvalid(err):
		return &UnrecoverableSyncError{err}
	default:
		return err
	}
}

func updateObjectGeneric(specObj crclient.Object, api ClusterAPI) error {
	err := api.Client.Update(api.Ctx, specObj)
	switch {
	case err == nil:
		return NewNotInSync(specObj, UpdatedObjectReason)
	case k8sErrors.IsConflict(err), k8sErrors.IsNotFound(err):
		return NewNotInSync(specObj, NeedRetryReason)
	case k8sErrors.IsInvalid(err):
		return &UnrecoverableSyncError{err}
	default:
		return err
	}
}

// copyImmutableFields carries over fields assigned by the cluster that cannot be changed by an update.
func copyImmutableFields(specObj, clusterObj crclient.Object) {
	if specService, ok := specObj.(*corev1.Service); ok {
		clusterService := clusterObj.(*corev1.Service)
		specService.Spec.ClusterIP = clusterService.Spec.ClusterIP
		specService.Spec.ClusterIPs = clusterService.Spec.ClusterIPs
	}
}

func isMutableObject(obj crclient.Object) bool {
	switch obj.(type) {
	case *corev1.PersistentVolumeClaim:
		return false
	default:
		return true
	}
}
