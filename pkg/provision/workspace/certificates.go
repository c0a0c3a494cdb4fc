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
	"path"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

const (
	selfSignedCertSecretName = "che-self-signed-cert"
	selfSignedCertVolumeName = "che-self-signed-certs"
)

// CertificateProvisioner makes the trusted CA bundle available to every container.
type CertificateProvisioner struct {
	Config *config.ControllerConfig
}

func (p *CertificateProvisioner) IsConfigured() bool {
	return p.Config.GetTrustedCABundle() != ""
}

// CertPath is the path of the CA bundle inside containers.
func (p *CertificateProvisioner) CertPath() string {
	return path.Join(constants.CertificateMountPath, constants.CertificateFileName)
}

func (p *CertificateProvisioner) Provision(_ context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error {
	if !p.IsConfigured() {
		return nil
	}
	secretName := common.WorkspaceObjectName(identity.WorkspaceID, selfSignedCertSecretName)
	env.AddSecret(&corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      secretName,
			Namespace: identity.InfrastructureNamespace,
		},
		StringData: map[string]string{
			constants.CertificateFileName: p.Config.GetTrustedCABundle(),
		},
	})

	for _, pod := range env.Pods() {
		EnsureVolume(pod, corev1.Volume{
			Name: selfSignedCertVolumeName,
			VolumeSource: corev1.VolumeSource{
				Secret: &corev1.SecretVolumeSource{
					SecretName: secretName,
				},
			},
		})
		for _, container := range allContainers(pod) {
			EnsureVolumeMount(container, corev1.VolumeMount{
				Name:      selfSignedCertVolumeName,
				MountPath: constants.CertificateMountPath,
				ReadOnly:  true,
			})
		}
	}
	return nil
}
