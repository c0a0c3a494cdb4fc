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

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

// UniqueNamesProvisioner prefixes pods, config maps and secrets with the workspace id so that several workspaces
// can share a namespace. References from pods to renamed config maps and secrets are updated. Objects are still
// looked up in the environment by their original names, which are also kept in the che.original_name label.
//
// Names are derived from the workspace id; a random suffix is only added if two objects normalize to the same name.
type UniqueNamesProvisioner struct {
	Generator common.NameGenerator
}

func (p *UniqueNamesProvisioner) Provision(_ context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error {
	wsid := identity.WorkspaceID

	usedPodNames := map[string]bool{}
	for _, original := range env.PodNames() {
		pod := env.Pod(original)
		if pod.Name != original {
			usedPodNames[pod.Name] = true
			continue
		}
		pod.Name = p.uniqueName(wsid, original, usedPodNames)
		setOriginalName(&pod.ObjectMeta.Labels, original)
	}

	configMapNames := map[string]string{}
	usedConfigMapNames := map[string]bool{}
	for _, original := range env.ConfigMapNames() {
		configMap := env.ConfigMap(original)
		if configMap.Name == original {
			configMap.Name = p.uniqueName(wsid, original, usedConfigMapNames)
			setOriginalName(&configMap.ObjectMeta.Labels, original)
		}
		usedConfigMapNames[configMap.Name] = true
		configMapNames[original] = configMap.Name
	}

	secretNames := map[string]string{}
	usedSecretNames := map[string]bool{}
	for _, original := range env.SecretNames() {
		secret := env.Secret(original)
		if secret.Name == original {
			secret.Name = p.uniqueName(wsid, original, usedSecretNames)
			setOriginalName(&secret.ObjectMeta.Labels, original)
		}
		usedSecretNames[secret.Name] = true
		secretNames[original] = secret.Name
	}

	for _, pod := range env.Pods() {
		rewritePodReferences(pod, configMapNames, secretNames)
	}
	return nil
}

func (p *UniqueNamesProvisioner) uniqueName(workspaceId, original string, used map[string]bool) string {
	name := common.WorkspaceObjectName(workspaceId, original)
	for used[name] {
		name = p.Generator.Generate(common.WorkspaceObjectName(workspaceId, original))
	}
	used[name] = true
	return name
}

func setOriginalName(labels *map[string]string, original string) {
	if *labels == nil {
		*labels = map[string]string{}
	}
	(*labels)[constants.OriginalNameLabel] = original
}

func rename(name *string, renames map[string]string) {
	if newName, ok := renames[*name]; ok {
		*name = newName
	}
}

func rewritePodReferences(pod *corev1.Pod, configMaps, secrets map[string]string) {
	for idx := range pod.Spec.Volumes {
		source := &pod.Spec.Volumes[idx].VolumeSource
		if source.ConfigMap != nil {
			rename(&source.ConfigMap.Name, configMaps)
		}
		if source.Secret != nil {
			rename(&source.Secret.SecretName, secrets)
		}
		if source.Projected != nil {
			for sIdx := range source.Projected.Sources {
				projection := &source.Projected.Sources[sIdx]
				if projection.ConfigMap != nil {
					rename(&projection.ConfigMap.Name, configMaps)
				}
				if projection.Secret != nil {
					rename(&projection.Secret.Name, secrets)
				}
			}
		}
	}
	for _, container := range allContainers(pod) {
		for idx := range container.Env {
			valueFrom := container.Env[idx].ValueFrom
			if valueFrom == nil {
				continue
			}
			if valueFrom.ConfigMapKeyRef != nil {
				rename(&valueFrom.ConfigMapKeyRef.Name, configMaps)
			}
			if valueFrom.SecretKeyRef != nil {
				rename(&valueFrom.SecretKeyRef.Name, secrets)
			}
		}
		for idx := range container.EnvFrom {
			source := &container.EnvFrom[idx]
			if source.ConfigMapRef != nil {
				rename(&source.ConfigMapRef.Name, configMaps)
			}
			if source.SecretRef != nil {
				rename(&source.SecretRef.Name, secrets)
			}
		}
	}
}
