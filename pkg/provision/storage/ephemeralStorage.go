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

package storage

import (
	"context"

	corev1 "k8s.io/api/core/v1"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
	wsprovision "github.com/che-incubator/che-workspace-infrastructure/pkg/provision/workspace"
)

// The EphemeralStorageProvisioner provisions all workspace storage as emptyDir volumes.
// Any local changes are lost when the workspace is stopped; its lifetime is tied to the
// underlying pod.
type EphemeralStorageProvisioner struct{}

var _ Provisioner = (*EphemeralStorageProvisioner)(nil)

func (EphemeralStorageProvisioner) Provision(_ context.Context, env *environment.KubernetesEnvironment, _ environment.RuntimeIdentity) error {
	volumes, err := getMachineVolumes(env)
	if err != nil {
		return err
	}
	for _, volume := range volumes {
		volumeName := common.NormalizeName(volume.name)
		wsprovision.EnsureVolume(volume.pod, corev1.Volume{
			Name: volumeName,
			VolumeSource: corev1.VolumeSource{
				EmptyDir: &corev1.EmptyDirVolumeSource{},
			},
		})
		wsprovision.EnsureVolumeMount(volume.container, corev1.VolumeMount{
			Name:      volumeName,
			MountPath: volume.path,
		})
	}
	return nil
}
