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

package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/utils/ptr"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/config/proxy"
)

type RoutingStrategy string

const (
	// MultiHostStrategy exposes every server on its own host, using an ingress (or route on OpenShift)
	MultiHostStrategy RoutingStrategy = "multi-host"
	// SingleHostStrategy exposes every server on a path of one shared host
	SingleHostStrategy RoutingStrategy = "single-host"
	// GatewayStrategy exposes servers through a shared gateway configured with generated route documents
	GatewayStrategy RoutingStrategy = "gateway"
)

type StorageStrategy string

const (
	CommonStorageStrategy       StorageStrategy = "common"
	PerWorkspaceStorageStrategy StorageStrategy = "per-workspace"
	EphemeralStorageStrategy    StorageStrategy = "ephemeral"
)

// RegistryCredentials are used to generate an image pull secret for a private registry
type RegistryCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ControllerConfig is the configuration read from the controller config map. It is safe for concurrent use; the
// underlying data is replaced atomically when the config map changes.
type ControllerConfig struct {
	mu            sync.RWMutex
	data          map[string]string
	routingSuffix string
	clusterProxy  *proxy.Proxy
}

// NewControllerConfig creates a configuration backed by data. Missing keys use defaults.
func NewControllerConfig(data map[string]string) *ControllerConfig {
	cfg := &ControllerConfig{}
	cfg.update(data)
	return cfg
}

func (wc *ControllerConfig) update(data map[string]string) {
	copied := make(map[string]string, len(data))
	for k, v := range data {
		copied[k] = v
	}
	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.data = copied
}

func (wc *ControllerConfig) setDiscovered(routingSuffix string, clusterProxy *proxy.Proxy) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.routingSuffix = routingSuffix
	wc.clusterProxy = clusterProxy
}

func (wc *ControllerConfig) GetProperty(name string) *string {
	wc.mu.RLock()
	defer wc.mu.RUnlock()
	val, exists := wc.data[name]
	if exists {
		return &val
	}
	return nil
}

func (wc *ControllerConfig) GetPropertyOrDefault(name string, defaultValue string) string {
	if val := wc.GetProperty(name); val != nil {
		return *val
	}
	return defaultValue
}

func (wc *ControllerConfig) getBool(name, defaultValue string) bool {
	value, err := strconv.ParseBool(wc.GetPropertyOrDefault(name, defaultValue))
	if err != nil {
		value, _ = strconv.ParseBool(defaultValue)
	}
	return value
}

func (wc *ControllerConfig) getInt64(name, defaultValue string) int64 {
	value, err := strconv.ParseInt(wc.GetPropertyOrDefault(name, defaultValue), 10, 64)
	if err != nil {
		value, _ = strconv.ParseInt(defaultValue, 10, 64)
	}
	return value
}

func (wc *ControllerConfig) getDuration(name, defaultValue string) time.Duration {
	value, err := time.ParseDuration(wc.GetPropertyOrDefault(name, defaultValue))
	if err != nil {
		value, _ = time.ParseDuration(defaultValue)
	}
	return value
}

// getQuantity returns nil if the property is unset and has no default.
func (wc *ControllerConfig) getQuantity(name, defaultValue string) *resource.Quantity {
	value := wc.GetPropertyOrDefault(name, defaultValue)
	if value == "" {
		return nil
	}
	quantity, err := resource.ParseQuantity(value)
	if err != nil {
		if defaultValue == "" {
			return nil
		}
		quantity = resource.MustParse(defaultValue)
	}
	return &quantity
}

func (wc *ControllerConfig) GetRoutingStrategy() RoutingStrategy {
	return RoutingStrategy(wc.GetPropertyOrDefault(routingStrategy, defaultRoutingStrategy))
}

// GetRoutingSuffix returns the configured ingress domain, falling back to the suffix discovered on OpenShift.
func (wc *ControllerConfig) GetRoutingSuffix() string {
	if suffix := wc.GetPropertyOrDefault(routingSuffix, ""); suffix != "" {
		return suffix
	}
	wc.mu.RLock()
	defer wc.mu.RUnlock()
	return wc.routingSuffix
}

func (wc *ControllerConfig) GetSingleHost() string {
	return wc.GetPropertyOrDefault(singleHost, "")
}

func (wc *ControllerConfig) GetPathTransform() string {
	return wc.GetPropertyOrDefault(pathTransform, defaultPathTransform)
}

func (wc *ControllerConfig) GetIngressClass() string {
	return wc.GetPropertyOrDefault(ingressClass, "")
}

// GetIngressAnnotations returns annotations attached to every generated routing object. Invalid JSON is
// reported by Validate; here it results in no annotations.
func (wc *ControllerConfig) GetIngressAnnotations() map[string]string {
	annotations := map[string]string{}
	if raw := wc.GetPropertyOrDefault(ingressAnnotations, ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &annotations); err != nil {
			return map[string]string{}
		}
	}
	return annotations
}

func (wc *ControllerConfig) IsTLSEnabled() bool {
	return wc.getBool(tlsEnabled, defaultTLSEnabled)
}

func (wc *ControllerConfig) GetTLSSecretName() string {
	return wc.GetPropertyOrDefault(tlsSecret, "")
}

func (wc *ControllerConfig) GetTLSCertificate() (cert, key string) {
	return wc.GetPropertyOrDefault(tlsCert, ""), wc.GetPropertyOrDefault(tlsKey, "")
}

func (wc *ControllerConfig) GetStorageStrategy() StorageStrategy {
	return StorageStrategy(wc.GetPropertyOrDefault(pvcStrategy, defaultPVCStrategy))
}

func (wc *ControllerConfig) GetPVCName() string {
	return wc.GetPropertyOrDefault(pvcName, defaultPVCName)
}

func (wc *ControllerConfig) GetPVCQuantity() resource.Quantity {
	return *wc.getQuantity(pvcQuantity, defaultPVCQuantity)
}

func (wc *ControllerConfig) GetPVCAccessMode() corev1.PersistentVolumeAccessMode {
	return corev1.PersistentVolumeAccessMode(wc.GetPropertyOrDefault(pvcAccessMode, defaultPVCAccessMode))
}

func (wc *ControllerConfig) GetPVCStorageClassName() *string {
	return wc.GetProperty(pvcStorageClassName)
}

func (wc *ControllerConfig) GetDefaultMemoryLimit() *resource.Quantity {
	return wc.getQuantity(defaultMemoryLimit, defaultMemoryLimitValue)
}

func (wc *ControllerConfig) GetDefaultMemoryRequest() *resource.Quantity {
	return wc.getQuantity(defaultMemoryRequest, defaultMemoryRequestValue)
}

func (wc *ControllerConfig) GetDefaultCPULimit() *resource.Quantity {
	return wc.getQuantity(defaultCPULimit, "")
}

func (wc *ControllerConfig) GetDefaultCPURequest() *resource.Quantity {
	return wc.getQuantity(defaultCPURequest, "")
}

func (wc *ControllerConfig) GetPodSecurityContext() *corev1.PodSecurityContext {
	return &corev1.PodSecurityContext{
		RunAsUser: ptr.To(wc.getInt64(runAsUser, defaultRunAsUser)),
		FSGroup:   ptr.To(wc.getInt64(fsGroup, defaultFSGroup)),
	}
}

func (wc *ControllerConfig) GetTerminationGracePeriodSeconds() int64 {
	return wc.getInt64(terminationGracePeriod, defaultTerminationGracePeriod)
}

func (wc *ControllerConfig) GetImagePullSecrets() []string {
	var secrets []string
	for _, name := range strings.Split(wc.GetPropertyOrDefault(imagePullSecrets, ""), ",") {
		if name = strings.TrimSpace(name); name != "" {
			secrets = append(secrets, name)
		}
	}
	return secrets
}

func (wc *ControllerConfig) GetPrivateRegistries() map[string]RegistryCredentials {
	registries := map[string]RegistryCredentials{}
	if raw := wc.GetPropertyOrDefault(privateRegistries, ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &registries); err != nil {
			return map[string]RegistryCredentials{}
		}
	}
	return registries
}

// GetProxyConfig returns the configured proxy merged on top of the cluster proxy, or nil if neither is set.
func (wc *ControllerConfig) GetProxyConfig() *proxy.Proxy {
	var configured *proxy.Proxy
	httpValue, httpsValue, noProxyValue := wc.GetProperty(httpProxy), wc.GetProperty(httpsProxy), wc.GetProperty(noProxy)
	if httpValue != nil || httpsValue != nil || noProxyValue != nil {
		configured = &proxy.Proxy{HttpProxy: httpValue, HttpsProxy: httpsValue, NoProxy: noProxyValue}
	}
	wc.mu.RLock()
	defer wc.mu.RUnlock()
	return proxy.MergeProxyConfigs(configured, wc.clusterProxy)
}

func (wc *ControllerConfig) GetServiceAccountName() string {
	return wc.GetPropertyOrDefault(serviceAccountName, "")
}

func (wc *ControllerConfig) GetTrustedCABundle() string {
	return wc.GetPropertyOrDefault(trustedCABundle, "")
}

func (wc *ControllerConfig) GetVCSSSLCertificate() (cert, host string) {
	return wc.GetPropertyOrDefault(vcsSSLCertificate, ""), wc.GetPropertyOrDefault(vcsSSLHost, "")
}

func (wc *ControllerConfig) GetBrokerMetadataImage() string {
	return wc.GetPropertyOrDefault(brokerMetadataImage, defaultBrokerMetadataImage)
}

func (wc *ControllerConfig) GetBrokerArtifactsImage() string {
	return wc.GetPropertyOrDefault(brokerArtifactsImage, defaultBrokerArtifactsImage)
}

func (wc *ControllerConfig) GetBrokerPullPolicy() corev1.PullPolicy {
	return corev1.PullPolicy(wc.GetPropertyOrDefault(brokerPullPolicy, defaultBrokerPullPolicy))
}

func (wc *ControllerConfig) GetBrokerPushEndpoint() string {
	return wc.GetPropertyOrDefault(brokerPushEndpoint, "")
}

func (wc *ControllerConfig) GetBrokerRetention() time.Duration {
	return wc.getDuration(brokerRetention, defaultBrokerRetention)
}

func (wc *ControllerConfig) GetBrokerPruneSchedule() string {
	return wc.GetPropertyOrDefault(brokerPruneSchedule, defaultBrokerPruneSchedule)
}

func (wc *ControllerConfig) GetAsyncStorageIdleTimeout() time.Duration {
	return wc.getDuration(asyncStorageIdleTimeout, defaultAsyncStorageIdleTimeout)
}

func (wc *ControllerConfig) GetAsyncStorageSchedule() string {
	return wc.GetPropertyOrDefault(asyncStorageSchedule, defaultAsyncStorageSchedule)
}

func (wc *ControllerConfig) IsUserDefinedNamespaceAllowed() bool {
	return wc.getBool(allowUserDefinedNamespaces, defaultAllowUserDefinedNamespaces)
}

func (wc *ControllerConfig) GetNamespaceTemplate() string {
	return wc.GetPropertyOrDefault(namespaceTemplate, defaultNamespaceTemplate)
}

func (wc *ControllerConfig) GetRuntimesPerUser() int64 {
	return wc.getInt64(runtimesPerUser, defaultRuntimesPerUser)
}

func (wc *ControllerConfig) GetWorkspaceStartTimeout() time.Duration {
	return wc.getDuration(workspaceStartTimeout, defaultWorkspaceStartTimeout)
}

// Validate reports configuration values that cannot be used. Values that fail to parse are otherwise silently
// replaced by their defaults.
func (wc *ControllerConfig) Validate() error {
	var problems []string
	switch wc.GetRoutingStrategy() {
	case MultiHostStrategy, GatewayStrategy:
	case SingleHostStrategy:
		if wc.GetSingleHost() == "" {
			problems = append(problems, fmt.Sprintf("%s must be set when using the %s strategy", singleHost, SingleHostStrategy))
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown routing strategy %q", wc.GetRoutingStrategy()))
	}
	switch wc.GetStorageStrategy() {
	case CommonStorageStrategy, PerWorkspaceStorageStrategy, EphemeralStorageStrategy:
	default:
		problems = append(problems, fmt.Sprintf("unknown storage strategy %q", wc.GetStorageStrategy()))
	}
	if raw := wc.GetPropertyOrDefault(ingressAnnotations, ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &map[string]string{}); err != nil {
			problems = append(problems, fmt.Sprintf("%s is not a JSON object of strings: %s", ingressAnnotations, err))
		}
	}
	if raw := wc.GetPropertyOrDefault(privateRegistries, ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &map[string]RegistryCredentials{}); err != nil {
			problems = append(problems, fmt.Sprintf("%s is invalid: %s", privateRegistries, err))
		}
	}
	for _, name := range []string{brokerRetention, asyncStorageIdleTimeout, workspaceStartTimeout} {
		if raw := wc.GetProperty(name); raw != nil {
			if _, err := time.ParseDuration(*raw); err != nil {
				problems = append(problems, fmt.Sprintf("%s is not a valid duration: %s", name, err))
			}
		}
	}
	for _, name := range []string{pvcQuantity, defaultMemoryLimit, defaultMemoryRequest, defaultCPULimit, defaultCPURequest} {
		if raw := wc.GetProperty(name); raw != nil && *raw != "" {
			if _, err := resource.ParseQuantity(*raw); err != nil {
				problems = append(problems, fmt.Sprintf("%s is not a valid quantity: %s", name, err))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid controller configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
