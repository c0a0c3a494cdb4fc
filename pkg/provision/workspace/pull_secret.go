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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

const privateRegistriesSecretName = "private-registries"

type dockerConfigJSON struct {
	Auths map[string]dockerConfigEntry `json:"auths"`
}

type dockerConfigEntry struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Auth     string `json:"auth"`
}

// ImagePullSecretsProvisioner attaches the configured pull secrets to every pod. Configured registry credentials
// are stored in an additional workspace secret of type kubernetes.io/dockerconfigjson.
type ImagePullSecretsProvisioner struct {
	Config *config.ControllerConfig
}

func (p *ImagePullSecretsProvisioner) Provision(_ context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error {
	pullSecrets := p.Config.GetImagePullSecrets()

	if registries := p.Config.GetPrivateRegistries(); len(registries) > 0 {
		secret, err := privateRegistriesSecret(identity, registries)
		if err != nil {
			return err
		}
		env.AddSecret(secret)
		pullSecrets = append(pullSecrets, secret.Name)
	}
	if len(pullSecrets) == 0 {
		return nil
	}

	for _, pod := range env.Pods() {
		existing := map[string]bool{}
		for _, ref := range pod.Spec.ImagePullSecrets {
			existing[ref.Name] = true
		}
		for _, name := range pullSecrets {
			if !existing[name] {
				pod.Spec.ImagePullSecrets = append(pod.Spec.ImagePullSecrets, corev1.LocalObjectReference{Name: name})
				existing[name] = true
			}
		}
		sort.Slice(pod.Spec.ImagePullSecrets, func(i, j int) bool {
			return strings.Compare(pod.Spec.ImagePullSecrets[i].Name, pod.Spec.ImagePullSecrets[j].Name) < 0
		})
	}
	return nil
}

func privateRegistriesSecret(identity environment.RuntimeIdentity, registries map[string]config.RegistryCredentials) (*corev1.Secret, error) {
	dockerConfig := dockerConfigJSON{Auths: map[string]dockerConfigEntry{}}
	for registry, credentials := range registries {
		dockerConfig.Auths[registry] = dockerConfigEntry{
			Username: credentials.Username,
			Password: credentials.Password,
			Auth:     base64.StdEncoding.EncodeToString([]byte(credentials.Username + ":" + credentials.Password)),
		}
	}
	data, err := json.Marshal(dockerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize registry credentials: %w", err)
	}
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      common.WorkspaceObjectName(identity.WorkspaceID, privateRegistriesSecretName),
			Namespace: identity.InfrastructureNamespace,
		},
		Type: corev1.SecretTypeDockerConfigJson,
		Data: map[string][]byte{
			corev1.DockerConfigJsonKey: data,
		},
	}, nil
}
