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
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

var testIdentity = environment.RuntimeIdentity{
	WorkspaceID:             "workspace123",
	EnvName:                 "default",
	OwnerID:                 "user1",
	InfrastructureNamespace: "user1-che",
}

var testCtx = context.Background()

func testConfig(data map[string]string) *config.ControllerConfig {
	return config.NewControllerConfig(data)
}

// getTestEnvironment returns an environment with one pod "pod" running containers "theia" and "dev" and an
// init container "init".
func getTestEnvironment() *environment.KubernetesEnvironment {
	env := environment.New()
	env.AddPod(&corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name: "pod",
		},
		Spec: corev1.PodSpec{
			InitContainers: []corev1.Container{
				{Name: "init", Image: "init-image"},
			},
			Containers: []corev1.Container{
				{Name: "theia", Image: "theia-image"},
				{Name: "dev", Image: "dev-image"},
			},
		},
	})
	theia := environment.NewMachineConfig()
	theia.Servers["theia"] = environment.ServerConfig{Port: "3100/tcp", Protocol: "http", Public: true}
	theia.Servers["theia-dev"] = environment.ServerConfig{Port: "3130", Protocol: "ws"}
	theia.Volumes["projects"] = environment.VolumeConfig{Path: "/projects"}
	theia.Env["THEIA_PORT"] = "3100"
	env.SetMachine("pod/theia", theia)
	env.SetMachine("pod/dev", environment.NewMachineConfig())
	return env
}

func findVolume(pod *corev1.Pod, name string) *corev1.Volume {
	for idx := range pod.Spec.Volumes {
		if pod.Spec.Volumes[idx].Name == name {
			return &pod.Spec.Volumes[idx]
		}
	}
	return nil
}

func findVolumeMount(container *corev1.Container, name string) *corev1.VolumeMount {
	for idx := range container.VolumeMounts {
		if container.VolumeMounts[idx].Name == name {
			return &container.VolumeMounts[idx]
		}
	}
	return nil
}

func envValue(container *corev1.Container, name string) (string, bool) {
	for _, env := range container.Env {
		if env.Name == name {
			return env.Value, true
		}
	}
	return "", false
}
