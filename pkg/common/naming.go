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

package common

import (
	"fmt"
	"regexp"
	"strings"

	"k8s.io/apimachinery/pkg/util/rand"
)

// MaxNameLength is the maximum length of a DNS-1123 label
const MaxNameLength = 63

// SuffixLength is the width of the random suffix appended by a NameGenerator
const SuffixLength = 6

var NonAlphaNumRegexp = regexp.MustCompile(`[^a-z0-9]+`)

var validNameRegexp = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

type NameValidationResult int

const (
	NameValid NameValidationResult = iota
	NameNullOrEmpty
	NameTooLong
	NameInvalid
)

func (r NameValidationResult) String() string {
	switch r {
	case NameValid:
		return "valid"
	case NameNullOrEmpty:
		return "name is empty"
	case NameTooLong:
		return fmt.Sprintf("name is longer than %d characters", MaxNameLength)
	case NameInvalid:
		return "name must consist of lower case alphanumeric characters or '-', and must start and end with an alphanumeric character"
	default:
		return "unknown"
	}
}

// NormalizeName turns an arbitrary string into a DNS-1123 label. The result may be empty if the input contains
// no alphanumeric characters.
func NormalizeName(name string) string {
	normalized := strings.ToLower(name)
	normalized = NonAlphaNumRegexp.ReplaceAllString(normalized, "-")
	normalized = strings.Trim(normalized, "-")
	if len(normalized) > MaxNameLength {
		normalized = strings.TrimRight(normalized[:MaxNameLength], "-")
	}
	return normalized
}

// ValidateName checks a name without modifying it. Length is checked before content.
func ValidateName(name string) NameValidationResult {
	if name == "" {
		return NameNullOrEmpty
	}
	if len(name) > MaxNameLength {
		return NameTooLong
	}
	if !validNameRegexp.MatchString(name) {
		return NameInvalid
	}
	return NameValid
}

// NameGenerator appends short random suffixes to names. Suffixes only avoid collisions; they are not secrets.
type NameGenerator struct {
	// RandString returns n random lower-case alphanumeric characters. Defaults to apimachinery's rand.String.
	RandString func(n int) string
}

// Generate returns prefix followed by a random suffix, truncating prefix so that the result is a valid name.
func (g NameGenerator) Generate(prefix string) string {
	randString := g.RandString
	if randString == nil {
		randString = rand.String
	}
	suffix := randString(SuffixLength)
	maxPrefix := MaxNameLength - len(suffix) - 1
	prefix = NormalizeName(prefix)
	if len(prefix) > maxPrefix {
		prefix = strings.TrimRight(prefix[:maxPrefix], "-")
	}
	if prefix == "" {
		return suffix
	}
	return prefix + "-" + suffix
}

// MachineName identifies a container within a pod.
func MachineName(podName, containerName string) string {
	return podName + "/" + containerName
}

// SplitMachineName is the inverse of MachineName; ok is false if the name has no pod part.
func SplitMachineName(machineName string) (podName, containerName string, ok bool) {
	idx := strings.Index(machineName, "/")
	if idx < 0 {
		return "", machineName, false
	}
	return machineName[:idx], machineName[idx+1:], true
}

// ServiceName names the service of a machine. The workspace id comes first so that it survives truncation and
// names derived from the service (routes, ingresses, hosts, paths) stay unique per workspace.
func ServiceName(workspaceId, podName, containerName string) string {
	return NormalizeName(fmt.Sprintf("%s-%s-%s", workspaceId, podName, containerName))
}

func WorkspaceObjectName(workspaceId, name string) string {
	return NormalizeName(fmt.Sprintf("%s-%s", workspaceId, name))
}

// EndpointHostname builds a per-workspace host for an exposed port. The first DNS label is kept within
// MaxNameLength characters.
func EndpointHostname(serviceName, portName, domain string) string {
	hostname := NormalizeName(fmt.Sprintf("%s-%s", serviceName, portName))
	if domain == "" {
		return hostname
	}
	return fmt.Sprintf("%s.%s", hostname, domain)
}

func RouteName(serviceName, portName string) string {
	return NormalizeName(fmt.Sprintf("%s-%s", serviceName, portName))
}

// ContainerNameFromImage derives a container name from an image reference, e.g.
// "quay.io/eclipse/che-plugin-broker:v3" becomes "quay-io-eclipse-che-plugin-broker-v3"
func ContainerNameFromImage(image string) string {
	return NormalizeName(image)
}
