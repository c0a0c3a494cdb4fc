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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type traefikConfig struct {
	HTTP struct {
		Routers map[string]struct {
			Rule        string   `yaml:"rule"`
			Service     string   `yaml:"service"`
			Middlewares []string `yaml:"middlewares"`
			Priority    int      `yaml:"priority"`
		} `yaml:"routers"`
		Services map[string]struct {
			LoadBalancer struct {
				Servers []struct {
					URL string `yaml:"url"`
				} `yaml:"servers"`
			} `yaml:"loadBalancer"`
		} `yaml:"services"`
		Middlewares map[string]struct {
			StripPrefix struct {
				Prefixes []string `yaml:"prefixes"`
			} `yaml:"stripPrefix"`
		} `yaml:"middlewares"`
	} `yaml:"http"`
}

func TestGenerateGatewayConfig(t *testing.T) {
	// Given
	generator := NewTraefikConfigGenerator("che-namespace")
	generator.AddRoute(GatewayRoute{Name: "external-server-1", ServiceName: "service-url", Port: "1234", Path: "/blabol-cesta"})

	// When
	generated, err := generator.Generate()

	// Then
	require.NoError(t, err)
	require.Contains(t, generated, "external-server-1.yml")
	content := generated["external-server-1.yml"]

	parsed := traefikConfig{}
	require.NoError(t, yaml.Unmarshal([]byte(content), &parsed))
	router := parsed.HTTP.Routers["external-server-1"]
	assert.Equal(t, "PathPrefix(`/blabol-cesta`)", router.Rule)
	assert.Equal(t, "external-server-1", router.Service)
	assert.Equal(t, []string{"external-server-1"}, router.Middlewares)
	assert.Equal(t, 100, router.Priority)
	servers := parsed.HTTP.Services["external-server-1"].LoadBalancer.Servers
	require.Len(t, servers, 1)
	assert.Equal(t, "http://service-url.che-namespace.svc.cluster.local:1234", servers[0].URL)
	assert.Equal(t, []string{"/blabol-cesta"}, parsed.HTTP.Middlewares["external-server-1"].StripPrefix.Prefixes)

	assert.Contains(t, content, "rule: \"PathPrefix(`/blabol-cesta`)\"")
	assert.Contains(t, content, `service: "external-server-1"`)
	assert.Contains(t, content, "priority: 100\n")
}

func TestGatewayConfigSectionOrder(t *testing.T) {
	generator := NewTraefikConfigGenerator("ns")
	generator.AddRoute(GatewayRoute{Name: "r", ServiceName: "svc", Port: "80", Path: "/p"})

	generated, err := generator.Generate()
	require.NoError(t, err)

	doc := yaml.Node{}
	require.NoError(t, yaml.Unmarshal([]byte(generated["r.yml"]), &doc))
	root := doc.Content[0]
	require.Equal(t, "http", root.Content[0].Value)
	httpNode := root.Content[1]
	var keys []string
	for i := 0; i < len(httpNode.Content); i += 2 {
		keys = append(keys, httpNode.Content[i].Value)
	}
	assert.Equal(t, []string{"routers", "services", "middlewares"}, keys)

	router := httpNode.Content[1].Content[1]
	var routerKeys []string
	for i := 0; i < len(router.Content); i += 2 {
		routerKeys = append(routerKeys, router.Content[i].Value)
	}
	assert.Equal(t, []string{"rule", "service", "middlewares", "priority"}, routerKeys)
}

func TestMultipleRoutesAreGeneratedAsSeparateEntries(t *testing.T) {
	generator := NewTraefikConfigGenerator("che-namespace")
	generator.AddRoute(GatewayRoute{Name: "c1"})
	generator.AddRoute(GatewayRoute{Name: "c2"})

	generated, err := generator.Generate()

	require.NoError(t, err)
	assert.Len(t, generated, 2)
	assert.Contains(t, generated, "c1.yml")
	assert.Contains(t, generated, "c2.yml")
}
