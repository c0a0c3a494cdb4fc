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

	routev1 "github.com/openshift/api/route/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/library/annotate"
)

// IngressTLSProvisioner secures routing objects when TLS is enabled. If a certificate and key are configured,
// they are stored in a workspace secret named after the configured TLS secret; otherwise the configured secret is
// referenced as is.
type IngressTLSProvisioner struct {
	Config *config.ControllerConfig
}

func (p *IngressTLSProvisioner) Provision(_ context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error {
	if !p.Config.IsTLSEnabled() {
		return nil
	}

	secretName := p.Config.GetTLSSecretName()
	cert, key := p.Config.GetTLSCertificate()
	if secretName != "" && cert != "" && key != "" {
		secretName = common.WorkspaceObjectName(identity.WorkspaceID, secretName)
		env.AddSecret(&corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{
				Name:      secretName,
				Namespace: identity.InfrastructureNamespace,
			},
			Type: corev1.SecretTypeTLS,
			StringData: map[string]string{
				corev1.TLSCertKey:       cert,
				corev1.TLSPrivateKeyKey: key,
			},
		})
	}

	for _, ingress := range env.Ingresses() {
		provisionIngressTLS(ingress, secretName)
		useSecureProtocols(ingress.Annotations)
	}
	for _, route := range env.Routes() {
		route.Spec.TLS = &routev1.TLSConfig{
			Termination:                   routev1.TLSTerminationEdge,
			InsecureEdgeTerminationPolicy: routev1.InsecureEdgeTerminationPolicyRedirect,
			Certificate:                   cert,
			Key:                           key,
		}
		useSecureProtocols(route.Annotations)
	}
	for _, configMap := range env.GatewayConfigs() {
		useSecureProtocols(configMap.Annotations)
	}
	return nil
}

func provisionIngressTLS(ingress *networkingv1.Ingress, secretName string) {
	var hosts []string
	for _, rule := range ingress.Spec.Rules {
		if rule.Host != "" {
			hosts = append(hosts, rule.Host)
		}
	}
	ingress.Spec.TLS = []networkingv1.IngressTLS{
		{
			Hosts:      hosts,
			SecretName: secretName,
		},
	}
}

func useSecureProtocols(annotations map[string]string) {
	if annotations == nil {
		return
	}
	annotate.RewriteServerProtocols(annotations, environment.HTTPProtocol, environment.HTTPSProtocol)
	annotate.RewriteServerProtocols(annotations, environment.WSProtocol, environment.WSSProtocol)
}
