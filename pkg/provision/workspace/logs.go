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

package workspace

import (
	"context"

	corev1 "k8s.io/api/core/v1"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

// LogsVolumeProvisioner mounts a shared volume for workspace logs into every container.
type LogsVolumeProvisioner struct{}

func (LogsVolumeProvisioner) Provision(_ context.Context, env *environment.KubernetesEnvironment, _ environment.RuntimeIdentity) error {
	for _, pod := range env.Pods() {
		EnsureVolume(pod, corev1.Volume{
			Name: constants.LogsVolumeName,
			VolumeSource: corev1.VolumeSource{
				EmptyDir: &corev1.EmptyDirVolumeSource{},
			},
		})
		for _, container := range mainContainers(pod) {
			EnsureVolumeMount(container, corev1.VolumeMount{
				Name:      constants.LogsVolumeName,
				MountPath: constants.LogsMountPath,
			})
		}
	}
	return nil
}
