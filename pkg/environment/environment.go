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

// Package environment contains the in-memory model of all cluster objects that make up one workspace start.
//
// A KubernetesEnvironment is created empty, mutated in place by provisioning steps and sealed once it is
// submitted to the cluster. Adding an object with a name that already exists replaces it. Removing an object
// never removes objects referring to it; callers remove routing objects before services and services before pods.
package environment

import (
	"fmt"
	"maps"
	"slices"

	routev1 "github.com/openshift/api/route/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/dwerrors"
)

type KubernetesEnvironment struct {
	pods           map[string]*corev1.Pod
	services       map[string]*corev1.Service
	ingresses      map[string]*networkingv1.Ingress
	routes         map[string]*routev1.Route
	secrets        map[string]*corev1.Secret
	configMaps     map[string]*corev1.ConfigMap
	pvcs           map[string]*corev1.PersistentVolumeClaim
	gatewayConfigs map[string]*corev1.ConfigMap
	machines       map[string]*InternalMachineConfig
	commands       []Command
	warnings       []string
	sealed         bool
}

func New() *KubernetesEnvironment {
	return &KubernetesEnvironment{
		pods:           map[string]*corev1.Pod{},
		services:       map[string]*corev1.Service{},
		ingresses:      map[string]*networkingv1.Ingress{},
		routes:         map[string]*routev1.Route{},
		secrets:        map[string]*corev1.Secret{},
		configMaps:     map[string]*corev1.ConfigMap{},
		pvcs:           map[string]*corev1.PersistentVolumeClaim{},
		gatewayConfigs: map[string]*corev1.ConfigMap{},
		machines:       map[string]*InternalMachineConfig{},
	}
}

func (e *KubernetesEnvironment) checkMutable(kind string) {
	if e.sealed {
		panic(fmt.Sprintf("attempted to modify %s of an environment that was already submitted", kind))
	}
}

// Seal marks the environment as submitted. Any further mutation panics.
func (e *KubernetesEnvironment) Seal() {
	e.sealed = true
}

func (e *KubernetesEnvironment) IsSealed() bool {
	return e.sealed
}

func sortedKeys[T any](m map[string]T) []string {
	return slices.Sorted(maps.Keys(m))
}

func (e *KubernetesEnvironment) AddPod(pod *corev1.Pod) {
	e.checkMutable("pods")
	e.pods[pod.Name] = pod
}

func (e *KubernetesEnvironment) Pod(name string) *corev1.Pod {
	return e.pods[name]
}

// PodNames returns the names of all pods in a stable order.
func (e *KubernetesEnvironment) PodNames() []string {
	return sortedKeys(e.pods)
}

// Pods returns all pods ordered by name.
func (e *KubernetesEnvironment) Pods() []*corev1.Pod {
	var pods []*corev1.Pod
	for _, name := range e.PodNames() {
		pods = append(pods, e.pods[name])
	}
	return pods
}

func (e *KubernetesEnvironment) RemovePod(name string) {
	e.checkMutable("pods")
	delete(e.pods, name)
}

func (e *KubernetesEnvironment) AddService(service *corev1.Service) {
	e.checkMutable("services")
	e.services[service.Name] = service
}

func (e *KubernetesEnvironment) Service(name string) *corev1.Service {
	return e.services[name]
}

func (e *KubernetesEnvironment) ServiceNames() []string {
	return sortedKeys(e.services)
}

func (e *KubernetesEnvironment) Services() []*corev1.Service {
	var services []*corev1.Service
	for _, name := range e.ServiceNames() {
		services = append(services, e.services[name])
	}
	return services
}

func (e *KubernetesEnvironment) RemoveService(name string) {
	e.checkMutable("services")
	delete(e.services, name)
}

func (e *KubernetesEnvironment) AddIngress(ingress *networkingv1.Ingress) {
	e.checkMutable("ingresses")
	e.ingresses[ingress.Name] = ingress
}

func (e *KubernetesEnvironment) Ingress(name string) *networkingv1.Ingress {
	return e.ingresses[name]
}

func (e *KubernetesEnvironment) Ingresses() []*networkingv1.Ingress {
	var ingresses []*networkingv1.Ingress
	for _, name := range sortedKeys(e.ingresses) {
		ingresses = append(ingresses, e.ingresses[name])
	}
	return ingresses
}

func (e *KubernetesEnvironment) RemoveIngress(name string) {
	e.checkMutable("ingresses")
	delete(e.ingresses, name)
}

func (e *KubernetesEnvironment) AddRoute(route *routev1.Route) {
	e.checkMutable("routes")
	e.routes[route.Name] = route
}

func (e *KubernetesEnvironment) Route(name string) *routev1.Route {
	return e.routes[name]
}

func (e *KubernetesEnvironment) Routes() []*routev1.Route {
	var routes []*routev1.Route
	for _, name := range sortedKeys(e.routes) {
		routes = append(routes, e.routes[name])
	}
	return routes
}

func (e *KubernetesEnvironment) RemoveRoute(name string) {
	e.checkMutable("routes")
	delete(e.routes, name)
}

func (e *KubernetesEnvironment) AddSecret(secret *corev1.Secret) {
	e.checkMutable("secrets")
	e.secrets[secret.Name] = secret
}

func (e *KubernetesEnvironment) Secret(name string) *corev1.Secret {
	return e.secrets[name]
}

func (e *KubernetesEnvironment) SecretNames() []string {
	return sortedKeys(e.secrets)
}

func (e *KubernetesEnvironment) Secrets() []*corev1.Secret {
	var secrets []*corev1.Secret
	for _, name := range e.SecretNames() {
		secrets = append(secrets, e.secrets[name])
	}
	return secrets
}

func (e *KubernetesEnvironment) RemoveSecret(name string) {
	e.checkMutable("secrets")
	delete(e.secrets, name)
}

func (e *KubernetesEnvironment) AddConfigMap(configMap *corev1.ConfigMap) {
	e.checkMutable("config maps")
	e.configMaps[configMap.Name] = configMap
}

func (e *KubernetesEnvironment) ConfigMap(name string) *corev1.ConfigMap {
	return e.configMaps[name]
}

func (e *KubernetesEnvironment) ConfigMapNames() []string {
	return sortedKeys(e.configMaps)
}

func (e *KubernetesEnvironment) ConfigMaps() []*corev1.ConfigMap {
	var configMaps []*corev1.ConfigMap
	for _, name := range e.ConfigMapNames() {
		configMaps = append(configMaps, e.configMaps[name])
	}
	return configMaps
}

func (e *KubernetesEnvironment) RemoveConfigMap(name string) {
	e.checkMutable("config maps")
	delete(e.configMaps, name)
}

func (e *KubernetesEnvironment) AddPersistentVolumeClaim(pvc *corev1.PersistentVolumeClaim) {
	e.checkMutable("persistent volume claims")
	e.pvcs[pvc.Name] = pvc
}

func (e *KubernetesEnvironment) PersistentVolumeClaim(name string) *corev1.PersistentVolumeClaim {
	return e.pvcs[name]
}

func (e *KubernetesEnvironment) PersistentVolumeClaims() []*corev1.PersistentVolumeClaim {
	var pvcs []*corev1.PersistentVolumeClaim
	for _, name := range sortedKeys(e.pvcs) {
		pvcs = append(pvcs, e.pvcs[name])
	}
	return pvcs
}

// AddGatewayConfig stores a config map holding gateway route documents. Gateway configs are kept apart from
// regular config maps so that unique-name provisioning does not rename them.
func (e *KubernetesEnvironment) AddGatewayConfig(configMap *corev1.ConfigMap) {
	e.checkMutable("gateway configs")
	e.gatewayConfigs[configMap.Name] = configMap
}

func (e *KubernetesEnvironment) GatewayConfig(name string) *corev1.ConfigMap {
	return e.gatewayConfigs[name]
}

func (e *KubernetesEnvironment) GatewayConfigs() []*corev1.ConfigMap {
	var configMaps []*corev1.ConfigMap
	for _, name := range sortedKeys(e.gatewayConfigs) {
		configMaps = append(configMaps, e.gatewayConfigs[name])
	}
	return configMaps
}

func (e *KubernetesEnvironment) SetMachine(name string, machine *InternalMachineConfig) {
	e.checkMutable("machines")
	e.machines[name] = machine
}

func (e *KubernetesEnvironment) Machine(name string) *InternalMachineConfig {
	return e.machines[name]
}

func (e *KubernetesEnvironment) MachineNames() []string {
	return sortedKeys(e.machines)
}

func (e *KubernetesEnvironment) RemoveMachine(name string) {
	e.checkMutable("machines")
	delete(e.machines, name)
}

func (e *KubernetesEnvironment) AddCommand(command Command) {
	e.checkMutable("commands")
	e.commands = append(e.commands, command)
}

func (e *KubernetesEnvironment) Commands() []Command {
	return e.commands
}

func (e *KubernetesEnvironment) AddWarning(warning string) {
	e.checkMutable("warnings")
	e.warnings = append(e.warnings, warning)
}

func (e *KubernetesEnvironment) Warnings() []string {
	return e.warnings
}

// Merge adds every object of other to this environment. Nothing is added if other declares an object or machine
// whose name is already used, in which case a *dwerrors.ConfigurationConflictError is returned.
func (e *KubernetesEnvironment) Merge(other *KubernetesEnvironment) error {
	if err := e.checkMergeConflicts(other); err != nil {
		return err
	}
	for _, pod := range other.pods {
		e.AddPod(pod)
	}
	for _, service := range other.services {
		e.AddService(service)
	}
	for _, ingress := range other.ingresses {
		e.AddIngress(ingress)
	}
	for _, route := range other.routes {
		e.AddRoute(route)
	}
	for _, secret := range other.secrets {
		e.AddSecret(secret)
	}
	for _, configMap := range other.configMaps {
		e.AddConfigMap(configMap)
	}
	for _, pvc := range other.pvcs {
		e.AddPersistentVolumeClaim(pvc)
	}
	for _, configMap := range other.gatewayConfigs {
		e.AddGatewayConfig(configMap)
	}
	for name, machine := range other.machines {
		e.SetMachine(name, machine)
	}
	for _, command := range other.commands {
		e.AddCommand(command)
	}
	for _, warning := range other.warnings {
		e.AddWarning(warning)
	}
	return nil
}

func (e *KubernetesEnvironment) checkMergeConflicts(other *KubernetesEnvironment) error {
	checks := []struct {
		kind  string
		ours  []string
		other []string
	}{
		{"pod", sortedKeys(e.pods), sortedKeys(other.pods)},
		{"service", sortedKeys(e.services), sortedKeys(other.services)},
		{"ingress", sortedKeys(e.ingresses), sortedKeys(other.ingresses)},
		{"route", sortedKeys(e.routes), sortedKeys(other.routes)},
		{"secret", sortedKeys(e.secrets), sortedKeys(other.secrets)},
		{"config map", sortedKeys(e.configMaps), sortedKeys(other.configMaps)},
		{"persistent volume claim", sortedKeys(e.pvcs), sortedKeys(other.pvcs)},
		{"gateway config", sortedKeys(e.gatewayConfigs), sortedKeys(other.gatewayConfigs)},
		{"machine", sortedKeys(e.machines), sortedKeys(other.machines)},
	}
	for _, check := range checks {
		for _, name := range check.other {
			if slices.Contains(check.ours, name) {
				return &dwerrors.ConfigurationConflictError{
					First:  fmt.Sprintf("%s %s", check.kind, name),
					Second: fmt.Sprintf("merged %s %s", check.kind, name),
					Reason: fmt.Sprintf("%s name %s is already used", check.kind, name),
				}
			}
		}
	}
	return nil
}

// DeepCopy returns an unsealed copy sharing no objects with the receiver.
func (e *KubernetesEnvironment) DeepCopy() *KubernetesEnvironment {
	out := New()
	for name, pod := range e.pods {
		out.pods[name] = pod.DeepCopy()
	}
	for name, service := range e.services {
		out.services[name] = service.DeepCopy()
	}
	for name, ingress := range e.ingresses {
		out.ingresses[name] = ingress.DeepCopy()
	}
	for name, route := range e.routes {
		out.routes[name] = route.DeepCopy()
	}
	for name, secret := range e.secrets {
		out.secrets[name] = secret.DeepCopy()
	}
	for name, configMap := range e.configMaps {
		out.configMaps[name] = configMap.DeepCopy()
	}
	for name, pvc := range e.pvcs {
		out.pvcs[name] = pvc.DeepCopy()
	}
	for name, configMap := range e.gatewayConfigs {
		out.gatewayConfigs[name] = configMap.DeepCopy()
	}
	for name, machine := range e.machines {
		out.machines[name] = machine.DeepCopy()
	}
	for _, command := range e.commands {
		copied := command
		copied.Attributes = maps.Clone(command.Attributes)
		out.commands = append(out.commands, copied)
	}
	out.warnings = slices.Clone(e.warnings)
	return out
}
