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

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

const (
	vcsCertConfigMapName = "git-ssl-cert"
	vcsCertVolumeName    = "che-git-self-signed-cert"
	vcsCertMountPath     = "/etc/che/git/cert/"
	vcsCertFileName      = "ca.crt"
)

// VcsSslCertificateProvisioner mounts the certificate of a self-hosted git server into every container.
type VcsSslCertificateProvisioner struct {
	Config *config.ControllerConfig
}

func (p *VcsSslCertificateProvisioner) IsConfigured() bool {
	cert, _ := p.Config.GetVCSSSLCertificate()
	return cert != ""
}

// CertPath is the path of the certificate inside containers.
func (p *VcsSslCertificateProvisioner) CertPath() string {
	return vcsCertMountPath + vcsCertFileName
}

func (p *VcsSslCertificateProvisioner) Provision(_ context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error {
	if !p.IsConfigured() {
		return nil
	}
	cert, _ := p.Config.GetVCSSSLCertificate()
	configMapName := common.WorkspaceObjectName(identity.WorkspaceID, vcsCertConfigMapName)
	env.AddConfigMap(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      configMapName,
			Namespace: identity.InfrastructureNamespace,
		},
		Data: map[string]string{
			vcsCertFileName: cert,
		},
	})

	for _, pod := range env.Pods() {
		EnsureVolume(pod, corev1.Volume{
			Name: vcsCertVolumeName,
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: configMapName},
				},
			},
		})
		for _, container := range allContainers(pod) {
			EnsureVolumeMount(container, corev1.VolumeMount{
				Name:      vcsCertVolumeName,
				MountPath: vcsCertMountPath,
				ReadOnly:  true,
			})
		}
	}
	return nil
}
