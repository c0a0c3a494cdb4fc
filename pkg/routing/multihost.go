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

	routev1 "github.com/openshift/api/route/v1"
	"golang.org/x/net/idna"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/dwerrors"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

// MultiHostExposer gives every exposed port its own host under the configured domain.
type MultiHostExposer struct {
	opts Options
}

var _ ExternalServerExposer = (*MultiHostExposer)(nil)

func NewMultiHostExposer(opts Options) (*MultiHostExposer, error) {
	if opts.Domain == "" && !opts.UseRoutes {
		return nil, &dwerrors.ValidationError{Field: "ingress domain", Message: "multi-host routing requires an ingress domain"}
	}
	return &MultiHostExposer{opts: opts}, nil
}

func (e *MultiHostExposer) Expose(env *environment.KubernetesEnvironment, target Target) error {
	name := common.RouteName(target.ServiceName, target.Port.Name)
	annotations, err := createAnnotations(target, e.opts.Annotations)
	if err != nil {
		return err
	}

	var host string
	if e.opts.Domain != "" {
		host, err = validateHost(common.EndpointHostname(target.ServiceName, target.Port.Name, e.opts.Domain))
		if err != nil {
			return err
		}
	}

	if e.opts.UseRoutes {
		env.AddRoute(&routev1.Route{
			ObjectMeta: metav1.ObjectMeta{
				Name:        name,
				Namespace:   target.Namespace,
				Annotations: annotations,
			},
			Spec: routev1.RouteSpec{
				Host: host,
				To: routev1.RouteTargetReference{
					Kind: "Service",
					Name: target.ServiceName,
				},
				Port: &routev1.RoutePort{
					TargetPort: intstr.FromString(target.Port.Name),
				},
			},
		})
		return nil
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
				ingressRule(host, "/", target),
			},
		},
	})
	return nil
}

func validateHost(host string) (string, error) {
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", &dwerrors.ValidationError{Field: "host", Message: fmt.Sprintf("host %q is not a valid DNS name: %s", host, err)}
	}
	return ascii, nil
}

func ingressClassName(class string) *string {
	if class == "" {
		return nil
	}
	return &class
}

func ingressRule(host, path string, target Target) networkingv1.IngressRule {
	pathType := networkingv1.PathTypeImplementationSpecific
	return networkingv1.IngressRule{
		Host: host,
		IngressRuleValue: networkingv1.IngressRuleValue{
			HTTP: &networkingv1.HTTPIngressRuleValue{
				Paths: []networkingv1.HTTPIngressPath{
					{
						Path:     path,
						PathType: &pathType,
						Backend: networkingv1.IngressBackend{
							Service: &networkingv1.IngressServiceBackend{
								Name: target.ServiceName,
								Port: networkingv1.ServiceBackendPort{
									Name: target.Port.Name,
								},
							},
						},
					},
				},
			},
		},
	}
}
