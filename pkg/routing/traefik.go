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
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

const traefikRoutePriority = 100

// GatewayRoute is a single path on the gateway host forwarded to a service port.
type GatewayRoute struct {
	Name        string
	ServiceName string
	Port        string
	// Path is the prefix matched by the gateway and stripped before forwarding
	Path string
}

// TraefikConfigGenerator renders Traefik dynamic configuration, one document per route.
type TraefikConfigGenerator struct {
	namespace string
	routes    []GatewayRoute
}

func NewTraefikConfigGenerator(namespace string) *TraefikConfigGenerator {
	return &TraefikConfigGenerator{namespace: namespace}
}

func (g *TraefikConfigGenerator) AddRoute(route GatewayRoute) {
	g.routes = append(g.routes, route)
}

// Generate returns a map from "<route name>.yml" to the Traefik configuration of that route.
func (g *TraefikConfigGenerator) Generate() (map[string]string, error) {
	result := make(map[string]string, len(g.routes))
	for _, route := range g.routes {
		content, err := g.render(route)
		if err != nil {
			return nil, fmt.Errorf("failed to generate gateway configuration for route %s: %w", route.Name, err)
		}
		result[route.Name+".yml"] = content
	}
	return result, nil
}

func (g *TraefikConfigGenerator) render(route GatewayRoute) (string, error) {
	serviceURL := fmt.Sprintf("http://%s.%s.svc.cluster.local:%s", route.ServiceName, g.namespace, route.Port)

	router := mapping(
		"rule", quoted(fmt.Sprintf("PathPrefix(`%s`)", route.Path)),
		"service", quoted(route.Name),
		"middlewares", sequence(quoted(route.Name)),
		"priority", plain(strconv.Itoa(traefikRoutePriority)),
	)
	service := mapping(
		"loadBalancer", mapping(
			"servers", sequence(mapping("url", quoted(serviceURL))),
		),
	)
	middleware := mapping(
		"stripPrefix", mapping(
			"prefixes", sequence(quoted(route.Path)),
		),
	)
	doc := mapping(
		"http", mapping(
			"routers", mapping(route.Name, router),
			"services", mapping(route.Name, service),
			"middlewares", mapping(route.Name, middleware),
		),
	)

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return "", err
	}
	if err := encoder.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// mapping builds a mapping node from alternating keys and values, keeping their order.
func mapping(keysAndValues ...interface{}) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: keysAndValues[i].(string)},
			keysAndValues[i+1].(*yaml.Node))
	}
	return node
}

func sequence(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Content: items}
}

func quoted(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: value}
}

func plain(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: value}
}

