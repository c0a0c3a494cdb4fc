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

package userstore

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	crclient "sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/provision/storage/asyncstorage"
)

// PodRuntimeTracker finds workspaces of a user from the pods labeled with their owner.
type PodRuntimeTracker struct {
	Client crclient.Client
}

var _ asyncstorage.RuntimeTracker = (*PodRuntimeTracker)(nil)

// InProgress returns the ids of workspaces that have pods which did not terminate. Broker pods are ignored.
func (t *PodRuntimeTracker) InProgress(ctx context.Context, userID string) ([]string, error) {
	pods := &corev1.PodList{}
	if err := t.Client.List(ctx, pods, crclient.MatchingLabels{constants.WorkspaceOwnerLabel: userID}); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var workspaces []string
	for _, pod := range pods.Items {
		if pod.Labels[constants.BrokerLabel] == "true" {
			continue
		}
		if pod.Status.Phase == corev1.PodSucceeded || pod.Status.Phase == corev1.PodFailed {
			continue
		}
		id := pod.Labels[constants.WorkspaceIDLabel]
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		workspaces = append(workspaces, id)
	}
	return workspaces, nil
}
