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

package watch

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	k8sErrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/dwerrors"
)

const defaultPollInterval = 2 * time.Second

// PodReadiness waits for workspace pods to become usable.
type PodReadiness struct {
	Client   kubernetes.Interface
	Interval time.Duration
}

// PodFailedError is returned when a pod being waited for failed.
type PodFailedError struct {
	PodName string
	Reason  string
	Message string
}

func (e *PodFailedError) Error() string {
	return fmt.Sprintf("pod %s failed: %s %s", e.PodName, e.Reason, e.Message)
}

// Wait blocks until every pod in names is running with all containers ready. Pods not created yet are waited for.
func (r *PodReadiness) Wait(ctx context.Context, namespace string, names []string) error {
	interval := r.Interval
	if interval == 0 {
		interval = defaultPollInterval
	}
	return wait.PollUntilContextCancel(ctx, interval, true, func(ctx context.Context) (bool, error) {
		for _, name := range names {
			pod, err := r.Client.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
			if err != nil {
				if k8sErrors.IsNotFound(err) {
					return false, nil
				}
				return false, &dwerrors.InfrastructureError{Message: fmt.Sprintf("failed to read pod %s", name), Err: err}
			}
			if pod.Status.Phase == corev1.PodFailed {
				return false, &PodFailedError{PodName: name, Reason: pod.Status.Reason, Message: pod.Status.Message}
			}
			if !isPodReady(pod) {
				return false, nil
			}
		}
		return true, nil
	})
}

func isPodReady(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning {
		return false
	}
	if len(pod.Status.ContainerStatuses) < len(pod.Spec.Containers) {
		return false
	}
	for _, status := range pod.Status.ContainerStatuses {
		if !status.Ready {
			return false
		}
	}
	return true
}
