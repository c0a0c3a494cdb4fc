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

// Package broker builds the plugin broker sub-environment that resolves tooling plugin metadata before workspace
// containers start, and collects the results reported by running brokers.
package broker

import (
	corev1 "k8s.io/api/core/v1"
)

// PluginMeta describes a tooling plugin as published in a plugin registry.
type PluginMeta struct {
	// ID is "<publisher>/<name>/<version>". It is derived from the other fields when empty.
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Publisher   string            `json:"publisher"`
	Version     string            `json:"version"`
	Type        string            `json:"type,omitempty"`
	DisplayName string            `json:"displayName,omitempty"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Icon        string            `json:"icon,omitempty"`
	URL         string            `json:"url,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Key identifies a plugin regardless of its version.
func (m PluginMeta) Key() string {
	return m.Publisher + "/" + m.Name
}

// ChePlugin is the tooling a broker resolved for one plugin.
type ChePlugin struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Publisher  string            `json:"publisher"`
	Version    string            `json:"version"`
	Containers []PluginContainer `json:"containers,omitempty"`
	Endpoints  []PluginEndpoint  `json:"endpoints,omitempty"`
}

type PluginContainer struct {
	Name        string            `json:"name"`
	Image       string            `json:"image"`
	Env         map[string]string `json:"env,omitempty"`
	MemoryLimit string            `json:"memoryLimit,omitempty"`
	Ports       []int32           `json:"ports,omitempty"`
}

type PluginEndpoint struct {
	Name       string            `json:"name"`
	Public     bool              `json:"public"`
	TargetPort int32             `json:"targetPort"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Deployment describes one broker container: the machine it runs as and, for the main broker, the config map
// carrying the plugin metadata it resolves.
type Deployment struct {
	MachineName string
	Container   corev1.Container
	// ConfigMapName is empty for the init broker
	ConfigMapName   string
	ConfigMapVolume string
}
