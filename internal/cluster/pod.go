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

package cluster

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	k8sErrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	crclient "sigs.k8s.io/controller-runtime/pkg/client"
)

// DeletePod deletes a pod if it exists. Returns whether a delete request was issued; a pod that is already gone
// is not an error.
func DeletePod(ctx context.Context, client crclient.Client, namespace, name string) (bool, error) {
	// Get the pod from the cluster as a runtime object and then delete it
	clusterPod := &corev1.Pod{}
	err := client.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, clusterPod)
	if err != nil {
		if k8sErrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	err = client.Delete(ctx, clusterPod)
	if err != nil {
		if k8sErrors.IsNotFound(err) {
			return true, nil
		}
		return false, err
	}
	return true, nil
}
