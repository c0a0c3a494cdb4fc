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

// Package routing exposes workspace servers outside of the cluster. One ExternalServerExposer is selected from
// configuration at startup and used for every workspace.
package routing

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/dwerrors"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/library/annotate"
)

// Target is one service port whose servers need to be reachable from outside the cluster.
type Target struct {
	MachineName string
	ServiceName string
	// Namespace the service is created in
	Namespace string
	Port      corev1.ServicePort
	// Servers are the public servers served by Port, keyed by server reference
	Servers map[string]environment.ServerConfig
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%s", t.ServiceName, t.Port.Name)
}

type ExternalServerExposer interface {
	// Expose adds the routing objects needed to reach target to env. Exposing the same target twice replaces the
	// objects created the first time.
	Expose(env *environment.KubernetesEnvironment, target Target) error
}

// Options configure the exposers; see config.ControllerConfig for their sources.
type Options struct {
	Strategy config.RoutingStrategy
	// Domain is the suffix of per-workspace hosts
	Domain string
	// Host is the shared host used by the single-host and gateway strategies
	Host string
	// PathTransform is a format with exactly one %s applied to the paths of single-host ingresses
	PathTransform string
	// Annotations are added to every routing object
	Annotations  map[string]string
	IngressClass string
	// UseRoutes creates OpenShift routes instead of ingresses for the multi-host strategy
	UseRoutes bool
}

// OptionsFromConfig reads exposer options from the controller configuration.
func OptionsFromConfig(cfg *config.ControllerConfig, isOpenShift bool) Options {
	return Options{
		Strategy:      cfg.GetRoutingStrategy(),
		Domain:        cfg.GetRoutingSuffix(),
		Host:          cfg.GetSingleHost(),
		PathTransform: cfg.GetPathTransform(),
		Annotations:   cfg.GetIngressAnnotations(),
		IngressClass:  cfg.GetIngressClass(),
		UseRoutes:     isOpenShift,
	}
}

// NewExposer returns the exposer for the configured strategy. Fails with a ValidationError if the options cannot
// produce valid routing objects.
func NewExposer(opts Options) (ExternalServerExposer, error) {
	switch opts.Strategy {
	case config.MultiHostStrategy, "":
		return NewMultiHostExposer(opts)
	case config.SingleHostStrategy:
		return NewSingleHostExposer(opts)
	case config.GatewayStrategy:
		return NewGatewayExposer(opts)
	default:
		return nil, &dwerrors.ValidationError{Field: "routing strategy", Message: fmt.Sprintf("unsupported strategy %q", opts.Strategy)}
	}
}

func appendMap[K, V comparable](dst map[K]V, m map[K]V) {
	for k, v := range m {
		dst[k] = v
	}
}

// createAnnotations combines configured annotations with the annotations describing the exposed servers.
func createAnnotations(target Target, routingAnnotations map[string]string) (map[string]string, error) {
	annotations := map[string]string{}
	appendMap(annotations, routingAnnotations)
	appendMap(annotations, annotate.MachineNameAnnotations(target.MachineName))
	if err := annotate.AddServerAnnotations(annotations, target.Servers); err != nil {
		return nil, err
	}
	return annotations, nil
}
