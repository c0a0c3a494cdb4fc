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

package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

var testIdentity = environment.RuntimeIdentity{
	WorkspaceID:             "workspace123",
	OwnerID:                 "user1",
	InfrastructureNamespace: "user1-che",
}

type staticTokens string

func (s staticTokens) GetToken(_ context.Context, _ environment.RuntimeIdentity) (string, error) {
	if s == "" {
		return "", errors.New("token service unavailable")
	}
	return string(s), nil
}

func newTestFactory() *Factory {
	return &Factory{
		Config: config.NewControllerConfig(map[string]string{
			"che.websocket.endpoint":                     "ws://che-host/api/websocket",
			"che.workspace.plugin_broker.metadata.image":  "quay.io/eclipse/che-plugin-metadata-broker:v3.4.0",
			"che.workspace.plugin_broker.artifacts.image": "quay.io/eclipse/che-plugin-artifacts-broker:v3.4.0",
		}),
		MachineToken:  staticTokens("token"),
		AuthEnabled:   true,
		NameGenerator: common.NameGenerator{RandString: func(int) string { return "abcdef" }},
	}
}

func TestCreateBrokerEnvironment(t *testing.T) {
	// Given
	factory := newTestFactory()
	metas := []PluginMeta{{ID: "eclipse/che-theia/next", Publisher: "eclipse", Name: "che-theia", Version: "next"}}
	result := NewBrokersResult()

	// When
	env, err := factory.Create(context.Background(), metas, testIdentity, result)

	// Then
	require.NoError(t, err)
	assert.Equal(t, 1, result.Expected(), "exactly one broker should be announced")

	require.Equal(t, []string{"che-plugin-broker-abcdef"}, env.PodNames())
	pod := env.Pod("che-plugin-broker-abcdef")
	assert.Equal(t, corev1.RestartPolicyNever, pod.Spec.RestartPolicy)
	assert.Equal(t, "true", pod.Labels[constants.BrokerLabel])
	assert.Equal(t, "user1-che", pod.Namespace)

	require.Len(t, pod.Spec.InitContainers, 1)
	require.Len(t, pod.Spec.Containers, 1)
	initBroker := pod.Spec.InitContainers[0]
	mainBroker := pod.Spec.Containers[0]
	assert.Equal(t, "quay-io-eclipse-che-plugin-artifacts-broker-v3-4-0", initBroker.Name)
	assert.Equal(t, "quay.io/eclipse/che-plugin-metadata-broker:v3.4.0", mainBroker.Image)

	assert.Equal(t, []string{
		"-push-endpoint", "ws://che-host/api/websocket",
		"-runtime-id", "workspace123::user1",
	}, initBroker.Args)
	assert.Equal(t, []string{
		"-push-endpoint", "ws://che-host/api/websocket",
		"-runtime-id", "workspace123::user1",
		"-metas", "/broker-config/config.json",
	}, mainBroker.Args)

	for _, container := range []corev1.Container{initBroker, mainBroker} {
		assert.Equal(t, corev1.PullAlways, container.ImagePullPolicy)
		assert.Contains(t, container.Env, corev1.EnvVar{Name: "CHE_MACHINE_TOKEN", Value: "token"})
		assert.Contains(t, container.Env, corev1.EnvVar{Name: "CHE_AUTH_ENABLED", Value: "true"})
		memoryLimit := container.Resources.Limits[corev1.ResourceMemory]
		cpuRequest := container.Resources.Requests[corev1.ResourceCPU]
		assert.Zero(t, memoryLimit.Cmp(resource.MustParse("250Mi")))
		assert.Zero(t, cpuRequest.Cmp(resource.MustParse("50m")))
		assert.Equal(t, "/plugins", container.VolumeMounts[0].MountPath)
	}

	configMap := env.ConfigMap("broker-config-map-abcdef")
	require.NotNil(t, configMap)
	var stored []PluginMeta
	require.NoError(t, json.Unmarshal([]byte(configMap.Data["config.json"]), &stored))
	assert.Equal(t, metas, stored)

	require.Len(t, mainBroker.VolumeMounts, 2)
	configMount := mainBroker.VolumeMounts[1]
	assert.Equal(t, "/broker-config/", configMount.MountPath)
	assert.True(t, configMount.ReadOnly)
	assert.Len(t, initBroker.VolumeMounts, 1, "init broker does not get plugin metadata")

	assert.ElementsMatch(t, []string{
		"che-plugin-broker-abcdef/quay-io-eclipse-che-plugin-artifacts-broker-v3-4-0",
		"che-plugin-broker-abcdef/quay-io-eclipse-che-plugin-metadata-broker-v3-4-0",
	}, env.MachineNames())
	for _, name := range env.MachineNames() {
		assert.Equal(t, environment.VolumeConfig{Path: "/plugins"}, env.Machine(name).Volumes["plugins"])
	}
}

func TestCreateAnnouncesOneBrokerPerCall(t *testing.T) {
	factory := newTestFactory()
	result := NewBrokersResult()

	for i := 0; i < 3; i++ {
		_, err := factory.Create(context.Background(), nil, testIdentity, result)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, result.Expected())
}

func TestCreateFailsWithoutMachineToken(t *testing.T) {
	factory := newTestFactory()
	factory.MachineToken = staticTokens("")
	result := NewBrokersResult()

	_, err := factory.Create(context.Background(), nil, testIdentity, result)

	assert.ErrorContains(t, err, "token service unavailable")
	assert.Zero(t, result.Expected(), "failed broker creation must not be announced")
}

func TestCreateFailsOnceResultsAwaited(t *testing.T) {
	factory := newTestFactory()
	result := NewBrokersResult()
	_, err := result.Get(context.Background())
	require.NoError(t, err)

	_, err = factory.Create(context.Background(), nil, testIdentity, result)

	assert.ErrorIs(t, err, ErrBrokerAfterGet)
}
