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
	"path"
	"strconv"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/dwerrors"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

const (
	brokerPodName          = "che-plugin-broker"
	configMapNameSuffix    = "broker-config-map"
	configVolumeNameSuffix = "broker-config-volume"
	configFolder           = "/broker-config"
	configFileName         = "config.json"
	pluginsVolumeName      = "plugins"
	pluginsMountPath       = "/plugins"
	machineTokenEnvVar     = "CHE_MACHINE_TOKEN"
	authEnabledEnvVar      = "CHE_AUTH_ENABLED"
	brokerMemoryLimit      = "250Mi"
	brokerMemoryRequest    = "250Mi"
	brokerCPULimit         = "500m"
	brokerCPURequest       = "50m"
	pushEndpointArg        = "-push-endpoint"
	runtimeIDArg           = "-runtime-id"
	metasArg               = "-metas"
)

// MachineTokenSource issues the token a broker uses to authenticate when reporting results.
type MachineTokenSource interface {
	GetToken(ctx context.Context, identity environment.RuntimeIdentity) (string, error)
}

// RandomTokenSource issues a new random token for every request.
type RandomTokenSource struct{}

func (RandomTokenSource) GetToken(_ context.Context, _ environment.RuntimeIdentity) (string, error) {
	return uuid.NewString(), nil
}

type Factory struct {
	Config       *config.ControllerConfig
	MachineToken MachineTokenSource
	AuthEnabled  bool
	// NameGenerator generates the names of the broker pod and config map
	NameGenerator common.NameGenerator
}

// Create builds an environment running one broker pod: an init broker cleaning the plugins volume followed by a
// main broker resolving metas. The broker is announced to result before the environment is returned.
func (f *Factory) Create(ctx context.Context, metas []PluginMeta, identity environment.RuntimeIdentity,
	result *BrokersResult) (*environment.KubernetesEnvironment, error) {

	if metas == nil {
		metas = []PluginMeta{}
	}
	envVars, err := f.envVars(ctx, identity)
	if err != nil {
		return nil, err
	}

	podName := f.NameGenerator.Generate(brokerPodName)
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      podName,
			Namespace: identity.InfrastructureNamespace,
			Labels: map[string]string{
				constants.BrokerLabel: "true",
			},
		},
		Spec: corev1.PodSpec{
			RestartPolicy: corev1.RestartPolicyNever,
			Volumes: []corev1.Volume{
				{
					Name: pluginsVolumeName,
					VolumeSource: corev1.VolumeSource{
						EmptyDir: &corev1.EmptyDirVolumeSource{},
					},
				},
			},
		},
	}

	env := environment.New()
	mainBroker := f.newDeployment(podName, identity, metas, envVars, f.Config.GetBrokerMetadataImage())
	configMap, err := newConfigMap(mainBroker.ConfigMapName, identity.InfrastructureNamespace, metas)
	if err != nil {
		return nil, err
	}
	env.AddConfigMap(configMap)
	pod.Spec.Volumes = append(pod.Spec.Volumes, corev1.Volume{
		Name: mainBroker.ConfigMapVolume,
		VolumeSource: corev1.VolumeSource{
			ConfigMap: &corev1.ConfigMapVolumeSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: mainBroker.ConfigMapName},
			},
		},
	})
	pod.Spec.Containers = append(pod.Spec.Containers, mainBroker.Container)
	env.SetMachine(mainBroker.MachineName, brokerMachine())

	initBroker := f.newDeployment(podName, identity, nil, envVars, f.Config.GetBrokerArtifactsImage())
	pod.Spec.InitContainers = append(pod.Spec.InitContainers, initBroker.Container)
	env.SetMachine(initBroker.MachineName, brokerMachine())

	env.AddPod(pod)

	if err := result.OneMoreBroker(); err != nil {
		return nil, &dwerrors.ProvisioningError{Message: "failed to register plugin broker", Err: err}
	}
	return env, nil
}

// newDeployment creates the descriptor of one broker container. The config map is only set up when metas is not nil.
func (f *Factory) newDeployment(podName string, identity environment.RuntimeIdentity, metas []PluginMeta,
	envVars []corev1.EnvVar, image string) *Deployment {

	deployment := &Deployment{}
	container := corev1.Container{
		Name:            common.ContainerNameFromImage(image),
		Image:           image,
		ImagePullPolicy: f.Config.GetBrokerPullPolicy(),
		Args: []string{
			pushEndpointArg, f.Config.GetBrokerPushEndpoint(),
			runtimeIDArg, identity.String(),
		},
		Env:       envVars,
		Resources: brokerResources(),
		VolumeMounts: []corev1.VolumeMount{
			{
				Name:      pluginsVolumeName,
				MountPath: pluginsMountPath,
			},
		},
	}
	if metas != nil {
		deployment.ConfigMapName = f.NameGenerator.Generate(configMapNameSuffix)
		deployment.ConfigMapVolume = f.NameGenerator.Generate(configVolumeNameSuffix)
		container.VolumeMounts = append(container.VolumeMounts, corev1.VolumeMount{
			Name:      deployment.ConfigMapVolume,
			MountPath: configFolder + "/",
			ReadOnly:  true,
		})
		container.Args = append(container.Args, metasArg, path.Join(configFolder, configFileName))
	}
	deployment.Container = container
	deployment.MachineName = common.MachineName(podName, container.Name)
	return deployment
}

func (f *Factory) envVars(ctx context.Context, identity environment.RuntimeIdentity) ([]corev1.EnvVar, error) {
	tokens := f.MachineToken
	if tokens == nil {
		tokens = RandomTokenSource{}
	}
	token, err := tokens.GetToken(ctx, identity)
	if err != nil {
		return nil, &dwerrors.ProvisioningError{Message: "failed to get machine token for plugin broker", Err: err}
	}
	return []corev1.EnvVar{
		{Name: authEnabledEnvVar, Value: strconv.FormatBool(f.AuthEnabled)},
		{Name: machineTokenEnvVar, Value: token},
	}, nil
}

func newConfigMap(name, namespace string, metas []PluginMeta) (*corev1.ConfigMap, error) {
	serialized, err := json.Marshal(metas)
	if err != nil {
		return nil, &dwerrors.ProvisioningError{Message: "failed to serialize plugin metadata", Err: err}
	}
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
		Data: map[string]string{
			configFileName: string(serialized),
		},
	}, nil
}

func brokerMachine() *environment.InternalMachineConfig {
	machine := environment.NewMachineConfig()
	machine.Volumes[pluginsVolumeName] = environment.VolumeConfig{Path: pluginsMountPath}
	return machine
}

func brokerResources() corev1.ResourceRequirements {
	return corev1.ResourceRequirements{
		Limits: corev1.ResourceList{
			corev1.ResourceMemory: resource.MustParse(brokerMemoryLimit),
			corev1.ResourceCPU:    resource.MustParse(brokerCPULimit),
		},
		Requests: corev1.ResourceList{
			corev1.ResourceMemory: resource.MustParse(brokerMemoryRequest),
			corev1.ResourceCPU:    resource.MustParse(brokerCPURequest),
		},
	}
}
