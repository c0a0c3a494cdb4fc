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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/dwerrors"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/library/annotate"
)

func testTarget(serviceName, portName string, port int32) Target {
	return Target{
		MachineName: "pod/theia",
		ServiceName: serviceName,
		Namespace:   "user-che",
		Port:        corev1.ServicePort{Name: portName, Port: port},
		Servers: map[string]environment.ServerConfig{
			portName: {Port: "3100/tcp", Protocol: "http", Public: true},
		},
	}
}

func TestNewExposer(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		expected  interface{}
		expectErr bool
	}{
		{name: "default strategy", opts: Options{Domain: "apps.example.com"}, expected: &MultiHostExposer{}},
		{name: "multi-host", opts: Options{Strategy: config.MultiHostStrategy, Domain: "apps.example.com"}, expected: &MultiHostExposer{}},
		{name: "multi-host on OpenShift without domain", opts: Options{Strategy: config.MultiHostStrategy, UseRoutes: true}, expected: &MultiHostExposer{}},
		{name: "multi-host without domain", opts: Options{Strategy: config.MultiHostStrategy}, expectErr: true},
		{name: "single-host", opts: Options{Strategy: config.SingleHostStrategy, Host: "che.example.com"}, expected: &SingleHostExposer{}},
		{name: "single-host without host", opts: Options{Strategy: config.SingleHostStrategy}, expectErr: true},
		{name: "single-host with bad transform", opts: Options{Strategy: config.SingleHostStrategy, Host: "che.example.com", PathTransform: "/static"}, expectErr: true},
		{name: "gateway", opts: Options{Strategy: config.GatewayStrategy}, expected: &GatewayExposer{}},
		{name: "unknown", opts: Options{Strategy: "default-host"}, expectErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exposer, err := NewExposer(tt.opts)
			if tt.expectErr {
				var validationErr *dwerrors.ValidationError
				assert.True(t, errors.As(err, &validationErr), "expected validation error, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.expected, exposer)
		})
	}
}

func TestMultiHostExposesIngressPerPort(t *testing.T) {
	// Given
	env := environment.New()
	exposer, err := NewMultiHostExposer(Options{
		Domain:       "apps.example.com",
		Annotations:  map[string]string{"kubernetes.io/ingress.class": "nginx"},
		IngressClass: "nginx",
	})
	require.NoError(t, err)

	// When
	err = exposer.Expose(env, testTarget("ws-pod-theia", "http", 3100))

	// Then
	require.NoError(t, err)
	ingress := env.Ingress("ws-pod-theia-http")
	require.NotNil(t, ingress)
	assert.Equal(t, "user-che", ingress.Namespace)
	assert.Equal(t, "nginx", *ingress.Spec.IngressClassName)
	require.Len(t, ingress.Spec.Rules, 1)
	assert.Equal(t, "ws-pod-theia-http.apps.example.com", ingress.Spec.Rules[0].Host)
	path := ingress.Spec.Rules[0].HTTP.Paths[0]
	assert.Equal(t, "/", path.Path)
	assert.Equal(t, "ws-pod-theia", path.Backend.Service.Name)
	assert.Equal(t, "http", path.Backend.Service.Port.Name)
	assert.Equal(t, "nginx", ingress.Annotations["kubernetes.io/ingress.class"])
	assert.Equal(t, "pod/theia", ingress.Annotations[constants.MachineNameAnnotation])
	servers, err := annotate.ParseServers(ingress.Annotations)
	require.NoError(t, err)
	assert.Contains(t, servers, "http")
	assert.Empty(t, env.Routes())
}

func TestMultiHostExposesRouteOnOpenShift(t *testing.T) {
	env := environment.New()
	exposer, err := NewMultiHostExposer(Options{UseRoutes: true})
	require.NoError(t, err)

	err = exposer.Expose(env, testTarget("ws-pod-theia", "http", 3100))

	require.NoError(t, err)
	assert.Empty(t, env.Ingresses())
	route := env.Route("ws-pod-theia-http")
	require.NotNil(t, route)
	assert.Equal(t, "", route.Spec.Host, "host is assigned by the cluster when no domain is configured")
	assert.Equal(t, "ws-pod-theia", route.Spec.To.Name)
	assert.Equal(t, "http", route.Spec.Port.TargetPort.StrVal)
}

func TestSingleHostExposesPortsUnderServicePaths(t *testing.T) {
	// Given
	env := environment.New()
	exposer, err := NewSingleHostExposer(Options{Host: "che.example.com"})
	require.NoError(t, err)

	// When
	require.NoError(t, exposer.Expose(env, testTarget("svc", "p1", 8080)))
	require.NoError(t, exposer.Expose(env, testTarget("svc", "p2", 8081)))

	// Then
	first := env.Ingress("svc-p1")
	second := env.Ingress("svc-p2")
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, "che.example.com", first.Spec.Rules[0].Host)
	assert.Equal(t, "/svc/p1/", first.Spec.Rules[0].HTTP.Paths[0].Path)
	assert.Equal(t, "/svc/p2/", second.Spec.Rules[0].HTTP.Paths[0].Path)
}

func TestSingleHostAppliesPathTransform(t *testing.T) {
	env := environment.New()
	exposer, err := NewSingleHostExposer(Options{Host: "che.example.com", PathTransform: "%s(.*)"})
	require.NoError(t, err)

	require.NoError(t, exposer.Expose(env, testTarget("svc", "http", 8080)))

	assert.Equal(t, "/svc/http/(.*)", env.Ingress("svc-http").Spec.Rules[0].HTTP.Paths[0].Path)
}

func TestSingleHostExposeIsIdempotent(t *testing.T) {
	env := environment.New()
	exposer, err := NewSingleHostExposer(Options{Host: "che.example.com"})
	require.NoError(t, err)

	require.NoError(t, exposer.Expose(env, testTarget("svc", "http", 8080)))
	require.NoError(t, exposer.Expose(env, testTarget("svc", "http", 8080)))

	assert.Len(t, env.Ingresses(), 1)
}

func TestSingleHostConflicts(t *testing.T) {
	// Given
	env := environment.New()
	exposer, err := NewSingleHostExposer(Options{Host: "che.example.com"})
	require.NoError(t, err)
	require.NoError(t, exposer.Expose(env, testTarget("a-b", "c", 8080)))

	// When: "a" + "b-c" normalizes to the same ingress name as "a-b" + "c"
	err = exposer.Expose(env, testTarget("a", "b-c", 8080))

	// Then
	var conflict *dwerrors.ConfigurationConflictError
	require.True(t, errors.As(err, &conflict), "expected conflict error, got %v", err)
	assert.Equal(t, "a-b-c", conflict.First)
}

func TestGatewayExposerCreatesConfigMap(t *testing.T) {
	// Given
	env := environment.New()
	exposer, err := NewGatewayExposer(Options{})
	require.NoError(t, err)

	// When
	err = exposer.Expose(env, testTarget("svc", "http", 8080))

	// Then
	require.NoError(t, err)
	assert.Empty(t, env.Ingresses())
	configMap := env.GatewayConfig("svc-http")
	require.NotNil(t, configMap)
	assert.Equal(t, constants.GatewayConfigLabelValue, configMap.Labels[constants.GatewayConfigLabel])
	require.Contains(t, configMap.Data, "svc-http.yml")
	assert.Contains(t, configMap.Data["svc-http.yml"], "PathPrefix(`/svc/http/`)")
	assert.Contains(t, configMap.Data["svc-http.yml"], "http://svc.user-che.svc.cluster.local:8080")
}

func TestGatewayExposerConflict(t *testing.T) {
	env := environment.New()
	exposer, err := NewGatewayExposer(Options{})
	require.NoError(t, err)
	require.NoError(t, exposer.Expose(env, testTarget("a-b", "c", 8080)))

	err = exposer.Expose(env, testTarget("a", "b-c", 8080))

	var conflict *dwerrors.ConfigurationConflictError
	assert.True(t, errors.As(err, &conflict), "expected conflict error, got %v", err)
}
