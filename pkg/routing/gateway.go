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
	"strconv"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/dwerrors"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

// GatewayExposer does not create ingresses. Each exposed port gets a config map holding Traefik configuration,
// which is picked up by the gateway serving the shared host.
type GatewayExposer struct {
	opts Options
}

var _ ExternalServerExposer = (*GatewayExposer)(nil)

func NewGatewayExposer(opts Options) (*GatewayExposer, error) {
	return &GatewayExposer{opts: opts}, nil
}

func (e *GatewayExposer) Expose(env *environment.KubernetesEnvironment, target Target) error {
	route := GatewayRoute{
		Name:        common.RouteName(target.ServiceName, target.Port.Name),
		ServiceName: target.ServiceName,
		Port:        strconv.Itoa(int(target.Port.Port)),
		Path:        ServicePath(target.ServiceName, target.Port.Name),
	}
	generator := NewTraefikConfigGenerator(target.Namespace)
	generator.AddRoute(route)
	data, err := generator.Generate()
	if err != nil {
		return err
	}

	if existing := env.GatewayConfig(route.Name); existing != nil {
		key := route.Name + ".yml"
		if existing.Data[key] != data[key] {
			return &dwerrors.ConfigurationConflictError{
				First:  existing.Name,
				Second: target.String(),
				Reason: fmt.Sprintf("gateway route %s is already defined with a different backend", route.Name),
			}
		}
	}

	annotations, err := createAnnotations(target, e.opts.Annotations)
	if err != nil {
		return err
	}
	env.AddGatewayConfig(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      route.Name,
			Namespace: target.Namespace,
			Labels: map[string]string{
				constants.GatewayConfigLabel: constants.GatewayConfigLabelValue,
			},
			Annotations: annotations,
		},
		Data: data,
	})
	return nil
}
