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

package environment

import (
	"fmt"
	"strconv"
	"strings"
)

// Machine attributes understood by the resource limits provisioner. Values are plain numbers: bytes for memory,
// cores (possibly fractional) for CPU.
const (
	MemoryLimitAttribute   = "memoryLimitBytes"
	MemoryRequestAttribute = "memoryRequestBytes"
	CPULimitAttribute      = "cpuLimitCores"
	CPURequestAttribute    = "cpuRequestCores"
)

// Server protocols with special handling when TLS is enabled
const (
	HTTPProtocol  = "http"
	HTTPSProtocol = "https"
	WSProtocol    = "ws"
	WSSProtocol   = "wss"
)

// ServerConfig describes one declared port of a machine.
type ServerConfig struct {
	// Port is the container port, optionally followed by a transport protocol: "8080" or "8080/tcp"
	Port string `json:"port"`
	// Protocol is the application protocol, e.g. "http" or "ws"
	Protocol string `json:"protocol,omitempty"`
	Path     string `json:"path,omitempty"`
	// Public servers are exposed outside of the cluster
	Public     bool              `json:"public,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// PortNumber returns the numeric part of Port.
func (s ServerConfig) PortNumber() (int32, error) {
	port := s.Port
	if idx := strings.Index(port, "/"); idx >= 0 {
		port = port[:idx]
	}
	value, err := strconv.ParseInt(port, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid server port %q: %w", s.Port, err)
	}
	return int32(value), nil
}

// TransportProtocol returns the protocol part of Port, defaulting to "tcp".
func (s ServerConfig) TransportProtocol() string {
	if idx := strings.Index(s.Port, "/"); idx >= 0 {
		return strings.ToLower(s.Port[idx+1:])
	}
	return "tcp"
}

type VolumeConfig struct {
	Path string `json:"path"`
}

// InternalMachineConfig holds everything known about a machine that is not directly expressed by the pod.
type InternalMachineConfig struct {
	Servers    map[string]ServerConfig
	Volumes    map[string]VolumeConfig
	Env        map[string]string
	Attributes map[string]string
}

func NewMachineConfig() *InternalMachineConfig {
	return &InternalMachineConfig{
		Servers:    map[string]ServerConfig{},
		Volumes:    map[string]VolumeConfig{},
		Env:        map[string]string{},
		Attributes: map[string]string{},
	}
}

func (m *InternalMachineConfig) DeepCopy() *InternalMachineConfig {
	out := NewMachineConfig()
	for name, server := range m.Servers {
		copied := server
		if server.Attributes != nil {
			copied.Attributes = make(map[string]string, len(server.Attributes))
			for k, v := range server.Attributes {
				copied.Attributes[k] = v
			}
		}
		out.Servers[name] = copied
	}
	for k, v := range m.Volumes {
		out.Volumes[k] = v
	}
	for k, v := range m.Env {
		out.Env[k] = v
	}
	for k, v := range m.Attributes {
		out.Attributes[k] = v
	}
	return out
}

// Command is a workspace command; only attributes are used during provisioning.
type Command struct {
	Name        string
	CommandLine string
	Type        string
	Attributes  map[string]string
}

// RuntimeIdentity identifies one start of a workspace environment.
type RuntimeIdentity struct {
	WorkspaceID string
	// EnvName may be empty
	EnvName string
	OwnerID string
	// InfrastructureNamespace is the namespace the workspace runs in
	InfrastructureNamespace string
}

// String returns the identity in the form "workspaceId:envName:ownerId".
func (r RuntimeIdentity) String() string {
	return fmt.Sprintf("%s:%s:%s", r.WorkspaceID, r.EnvName, r.OwnerID)
}
