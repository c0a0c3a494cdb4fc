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

package resources

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

var attributeResources = []struct {
	attribute string
	name      corev1.ResourceName
	limit     bool
	desc      string
}{
	{environment.MemoryLimitAttribute, corev1.ResourceMemory, true, "memory limit"},
	{environment.MemoryRequestAttribute, corev1.ResourceMemory, false, "memory request"},
	{environment.CPULimitAttribute, corev1.ResourceCPU, true, "CPU limit"},
	{environment.CPURequestAttribute, corev1.ResourceCPU, false, "CPU request"},
}

// ParseResourcesFromAttributes returns the resource requests and limits defined by machine attributes. Memory
// is given in bytes and CPU in (possibly fractional) cores. Attributes that are not set are not populated in the
// corresponding corev1.ResourceList.
func ParseResourcesFromAttributes(machineName string, attributes map[string]string) (*corev1.ResourceRequirements, error) {
	resources := &corev1.ResourceRequirements{
		Limits:   corev1.ResourceList{},
		Requests: corev1.ResourceList{},
	}
	for _, attr := range attributeResources {
		value := attributes[attr.attribute]
		if value == "" {
			continue
		}
		quantity, err := resource.ParseQuantity(value)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s for machine %s: %w", attr.desc, machineName, err)
		}
		if attr.limit {
			resources.Limits[attr.name] = quantity
		} else {
			resources.Requests[attr.name] = quantity
		}
	}
	return resources, nil
}

// Merge returns resources with the values set in override replacing those in base.
func Merge(base, override *corev1.ResourceRequirements) *corev1.ResourceRequirements {
	result := base.DeepCopy()
	if result.Limits == nil {
		result.Limits = corev1.ResourceList{}
	}
	if result.Requests == nil {
		result.Requests = corev1.ResourceList{}
	}
	for name, quantity := range override.Limits {
		result.Limits[name] = quantity
	}
	for name, quantity := range override.Requests {
		result.Requests[name] = quantity
	}
	return result
}

// FilterResources removes zero values from a corev1.ResourceRequirements in order to allow explicitly defining
// "do not set a limit/request" for a resource.
func FilterResources(resources *corev1.ResourceRequirements) *corev1.ResourceRequirements {
	result := resources.DeepCopy()

	for _, name := range []corev1.ResourceName{corev1.ResourceMemory, corev1.ResourceCPU} {
		if quantity, ok := result.Limits[name]; ok && quantity.IsZero() {
			delete(result.Limits, name)
		}
		if quantity, ok := result.Requests[name]; ok && quantity.IsZero() {
			delete(result.Requests, name)
		}
	}

	if len(result.Limits) == 0 {
		result.Limits = nil
	}
	if len(result.Requests) == 0 {
		result.Requests = nil
	}
	return result
}

// ApplyDefaults fills limits and requests missing from resources. A default is never allowed to make the result
// invalid: a default limit smaller than the defined request is replaced by the request, and a default request
// greater than the defined limit is replaced by the limit.
func ApplyDefaults(resources, defaults *corev1.ResourceRequirements) *corev1.ResourceRequirements {
	result := resources.DeepCopy()
	if defaults == nil {
		return result
	}
	if result.Limits == nil {
		result.Limits = corev1.ResourceList{}
	}
	if result.Requests == nil {
		result.Requests = corev1.ResourceList{}
	}

	for name, quantity := range defaults.Limits {
		if _, ok := result.Limits[name]; !ok && !quantity.IsZero() {
			result.Limits[name] = quantity
		}
	}
	for name, quantity := range defaults.Requests {
		if _, ok := result.Requests[name]; !ok && !quantity.IsZero() {
			result.Requests[name] = quantity
		}
	}

	for _, name := range []corev1.ResourceName{corev1.ResourceMemory, corev1.ResourceCPU} {
		limit, hasLimit := result.Limits[name]
		request, hasRequest := result.Requests[name]
		if !hasLimit || !hasRequest || limit.Cmp(request) >= 0 {
			continue
		}
		originalLimit, definedLimit := resources.Limits[name]
		originalRequest, definedRequest := resources.Requests[name]
		switch {
		case !definedLimit && definedRequest:
			result.Limits[name] = originalRequest
		case definedLimit && !definedRequest:
			result.Requests[name] = originalLimit
		}
	}
	return result
}

// ClampRequests lowers requests that exceed the corresponding limit to the limit.
func ClampRequests(resources *corev1.ResourceRequirements) *corev1.ResourceRequirements {
	result := resources.DeepCopy()
	for name, request := range result.Requests {
		if limit, ok := result.Limits[name]; ok && request.Cmp(limit) > 0 {
			result.Requests[name] = limit.DeepCopy()
		}
	}
	return result
}

// ValidateResources validates that a corev1.ResourceRequirements is valid, i.e. that (if specified), limits are
// greater than or equal to requests
func ValidateResources(resources *corev1.ResourceRequirements) error {
	for _, name := range []corev1.ResourceName{corev1.ResourceMemory, corev1.ResourceCPU} {
		limit, hasLimit := resources.Limits[name]
		request, hasRequest := resources.Requests[name]
		if hasLimit && hasRequest && request.Cmp(limit) > 0 {
			return fmt.Errorf("%s request (%s) must be less than or equal to limit (%s)", name, request.String(), limit.String())
		}
	}
	return nil
}
