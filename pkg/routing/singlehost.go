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

package routing

import (
	"fmt"

	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/dwerrors"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

// SingleHostExposer exposes every port on one shared host, under the path /<service>/<port>/.
type SingleHostExposer struct {
	opts      Options
	host      string
	transform PathTransform
}

var _ ExternalServerExposer = (*SingleHostExposer)(nil)

func NewSingleHostExposer(opts Options) (*SingleHostExposer, error) {
	if opts.Host == "" {
		return nil, &dwerrors.ValidationError{Field: "host", Message: "single-host routing requires a host"}
	}
	host, err := validateHost(opts.Host)
	if err != nil {
		return nil, err
	}
	transform, err := NewPathTransform(opts.PathTransform)
	if err != nil {
		return nil, err
	}
	return &SingleHostExposer{opts: opts, host: host, transform: transform}, nil
}

func (e *SingleHostExposer) Expose(env *environment.KubernetesEnvironment, target Target) error {
	name := common.RouteName(target.ServiceName, target.Port.Name)
	path := e.transform.Apply(ServicePath(target.ServiceName, target.Port.Name))

	for _, existing := range env.Ingresses() {
		existingBackend, existingPath, ok := singleRule(existing)
		if !ok {
			continue
		}
		sameBackend := existingBackend.Name == target.ServiceName && existingBackend.Port.Name == target.Port.Name
		switch {
		case existing.Name == name && !sameBackend:
			return &dwerrors.ConfigurationConflictError{
				First:  existing.Name,
				Second: target.String(),
				Reason: fmt.Sprintf("ingress name %s is already used for service %s", name, existingBackend.Name),
			}
		case existing.Name != name && existingPath == path:
			return &dwerrors.ConfigurationConflictError{
				First:  existing.Name,
				Second: name,
				Reason: fmt.Sprintf("path %s is already exposed", path),
			}
		}
	}

	annotations, err := createAnnotations(target, e.opts.Annotations)
	if err != nil {
		return err
	}
	env.AddIngress(&networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:        name,
			Namespace:   target.Namespace,
			Annotations: annotations,
		},
		Spec: networkingv1.IngressSpec{
			IngressClassName: ingressClassName(e.opts.IngressClass),
			Rules: []networkingv1.IngressRule{
				ingressRule(e.host, path, target),
			},
		},
	})
	return nil
}

// singleRule returns the backend and path of an ingress created by an exposer.
func singleRule(ingress *networkingv1.Ingress) (*networkingv1.IngressServiceBackend, string, bool) {
	if len(ingress.Spec.Rules) != 1 {
		return nil, "", false
	}
	http := ingress.Spec.Rules[0].HTTP
	if http == nil || len(http.Paths) != 1 || http.Paths[0].Backend.Service == nil {
		return nil, "", false
	}
	return http.Paths[0].Backend.Service, http.Paths[0].Path, true
}
