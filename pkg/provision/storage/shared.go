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
	"fmt"
	"maps"
	"slices"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
	wsprovision "github.com/che-incubator/che-workspace-infrastructure/pkg/provision/workspace"
)

// machineVolume is one volume declared by a machine, resolved to the container mounting it.
type machineVolume struct {
	pod       *corev1.Pod
	container *corev1.Container
	name      string
	path      string
}

// getMachineVolumes returns the volumes of all machines, ordered by machine and volume name.
func getMachineVolumes(env *environment.KubernetesEnvironment) ([]machineVolume, error) {
	var volumes []machineVolume
	for _, machineName := range env.MachineNames() {
		machine := env.Machine(machineName)
		if len(machine.Volumes) == 0 {
			continue
		}
		pod, container, err := wsprovision.MachineContainer(env, machineName)
		if err != nil {
			return nil, err
		}
		for _, volumeName := range slices.Sorted(maps.Keys(machine.Volumes)) {
			volume := machine.Volumes[volumeName]
			if volume.Path == "" {
				return nil, fmt.Errorf("volume %s of machine %s has no mount path", volumeName, machineName)
			}
			volumes = append(volumes, machineVolume{
				pod:       pod,
				container: container,
				name:      volumeName,
				path:      volume.Path,
			})
		}
	}
	return volumes, nil
}

func getPVCSpec(name, namespace string, cfg *config.ControllerConfig) *corev1.PersistentVolumeClaim {
	return &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{
				cfg.GetPVCAccessMode(),
			},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: cfg.GetPVCQuantity(),
				},
			},
			StorageClassName: cfg.GetPVCStorageClassName(),
		},
	}
}

// mountOnPVC mounts every volume on a subpath of one PVC. Pod volumes left without a mount afterwards are removed.
func mountOnPVC(volumes []machineVolume, pvcName string, subPath func(volumeName string) string) {
	var pods []*corev1.Pod
	for _, volume := range volumes {
		if !slices.Contains(pods, volume.pod) {
			pods = append(pods, volume.pod)
		}
		wsprovision.EnsureVolume(volume.pod, corev1.Volume{
			Name: pvcName,
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
					ClaimName: pvcName,
				},
			},
		})
		wsprovision.EnsureVolumeMount(volume.container, corev1.VolumeMount{
			Name:      pvcName,
			MountPath: volume.path,
			SubPath:   subPath(volume.name),
		})
	}
	for _, pod := range pods {
		removeUnmountedVolumes(pod)
	}
}

// removeUnmountedVolumes drops pod volumes that no container or init container mounts.
func removeUnmountedVolumes(pod *corev1.Pod) {
	mounted := map[string]bool{}
	for _, container := range slices.Concat(pod.Spec.InitContainers, pod.Spec.Containers) {
		for _, mount := range container.VolumeMounts {
			mounted[mount.Name] = true
		}
	}
	pod.Spec.Volumes = slices.DeleteFunc(pod.Spec.Volumes, func(volume corev1.Volume) bool {
		return !mounted[volume.Name]
	})
}
