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

// Package annotate encodes server configuration into annotations on routing objects, so that server URLs can
// be resolved from the cluster without the environment that produced them.
package annotate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

const (
	portSuffix       = ".port"
	protocolSuffix   = ".protocol"
	pathSuffix       = ".path"
	publicSuffix     = ".public"
	attributesSuffix = ".attributes"
)

var suffixes = []string{portSuffix, protocolSuffix, pathSuffix, publicSuffix, attributesSuffix}

// ServerAnnotations returns the annotations describing server serverRef. Empty protocol and path are omitted.
func ServerAnnotations(serverRef string, server environment.ServerConfig) (map[string]string, error) {
	prefix := constants.ServerAnnotationPrefix + serverRef
	annotations := map[string]string{
		prefix + portSuffix:   server.Port,
		prefix + publicSuffix: strconv.FormatBool(server.Public),
	}
	if server.Protocol != "" {
		annotations[prefix+protocolSuffix] = server.Protocol
	}
	if server.Path != "" {
		annotations[prefix+pathSuffix] = server.Path
	}
	if len(server.Attributes) > 0 {
		attributes, err := json.Marshal(server.Attributes)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize attributes of server %s: %w", serverRef, err)
		}
		annotations[prefix+attributesSuffix] = string(attributes)
	}
	return annotations, nil
}

// AddServerAnnotations adds annotations for all servers to annotations, which must not be nil.
func AddServerAnnotations(annotations map[string]string, servers map[string]environment.ServerConfig) error {
	for ref, server := range servers {
		serverAnnotations, err := ServerAnnotations(ref, server)
		if err != nil {
			return err
		}
		for k, v := range serverAnnotations {
			annotations[k] = v
		}
	}
	return nil
}

// ParseServers reconstructs server configurations from annotations. Annotations not describing servers are
// ignored. A server is only returned if its port annotation is present.
func ParseServers(annotations map[string]string) (map[string]environment.ServerConfig, error) {
	servers := map[string]environment.ServerConfig{}
	for key, value := range annotations {
		ref, suffix, ok := splitServerKey(key)
		if !ok {
			continue
		}
		server := servers[ref]
		switch suffix {
		case portSuffix:
			server.Port = value
		case protocolSuffix:
			server.Protocol = value
		case pathSuffix:
			server.Path = value
		case publicSuffix:
			public, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("invalid value for annotation %s: %w", key, err)
			}
			server.Public = public
		case attributesSuffix:
			attributes := map[string]string{}
			if err := json.Unmarshal([]byte(value), &attributes); err != nil {
				return nil, fmt.Errorf("invalid value for annotation %s: %w", key, err)
			}
			server.Attributes = attributes
		}
		servers[ref] = server
	}
	for ref, server := range servers {
		if server.Port == "" {
			delete(servers, ref)
		}
	}
	return servers, nil
}

// RewriteServerProtocols replaces a server protocol in annotations, e.g. "http" with "https" once TLS is enabled.
func RewriteServerProtocols(annotations map[string]string, from, to string) {
	for key, value := range annotations {
		if _, suffix, ok := splitServerKey(key); ok && suffix == protocolSuffix && value == from {
			annotations[key] = to
		}
	}
}

// MachineNameAnnotations returns the annotation identifying the machine an object belongs to.
func MachineNameAnnotations(machineName string) map[string]string {
	return map[string]string{constants.MachineNameAnnotation: machineName}
}

func splitServerKey(key string) (ref, suffix string, ok bool) {
	if !strings.HasPrefix(key, constants.ServerAnnotationPrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(key, constants.ServerAnnotationPrefix)
	for _, s := range suffixes {
		if strings.HasSuffix(rest, s) && len(rest) > len(s) {
			return strings.TrimSuffix(rest, s), s, true
		}
	}
	return "", "", false
}
