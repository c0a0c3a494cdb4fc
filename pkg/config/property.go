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

// Keys of the controller config map and their defaults
const (
	routingStrategy        = "che.infra.kubernetes.server_strategy"
	defaultRoutingStrategy = string(MultiHostStrategy)

	// routingSuffix is the domain used for per-workspace hosts. It is discovered on OpenShift.
	routingSuffix = "che.infra.kubernetes.ingress.domain"

	// singleHost is the external host shared by all workspaces with the single-host strategy
	singleHost = "che.host"

	pathTransform        = "che.infra.kubernetes.ingress.path_transform"
	defaultPathTransform = "%s"

	// ingressAnnotations is a JSON object of annotations added to every ingress and route
	ingressAnnotations = "che.infra.kubernetes.ingress.annotations_json"

	ingressClass = "che.infra.kubernetes.ingress.class"

	tlsEnabled        = "che.infra.kubernetes.tls_enabled"
	defaultTLSEnabled = "false"
	tlsSecret         = "che.infra.kubernetes.tls_secret"
	tlsCert           = "che.infra.kubernetes.tls_cert"
	tlsKey            = "che.infra.kubernetes.tls_key"

	pvcStrategy        = "che.infra.kubernetes.pvc.strategy"
	defaultPVCStrategy = string(CommonStorageStrategy)

	// pvcName config property handles the PVC name that should be created and used for all workspaces within one kubernetes namespace
	pvcName        = "che.infra.kubernetes.pvc.name"
	defaultPVCName = "claim-che-workspace"

	pvcQuantity        = "che.infra.kubernetes.pvc.quantity"
	defaultPVCQuantity = "10Gi"

	pvcAccessMode        = "che.infra.kubernetes.pvc.access_mode"
	defaultPVCAccessMode = "ReadWriteOnce"

	pvcStorageClassName = "che.infra.kubernetes.pvc.storage_class_name"

	defaultMemoryLimit        = "che.workspace.default_memory_limit"
	defaultMemoryLimitValue   = "1Gi"
	defaultMemoryRequest      = "che.workspace.default_memory_request"
	defaultMemoryRequestValue = "200Mi"
	defaultCPULimit           = "che.workspace.default_cpu_limit"
	defaultCPURequest         = "che.workspace.default_cpu_request"

	runAsUser        = "che.infra.kubernetes.pod.security_context.run_as_user"
	defaultRunAsUser = "1724"
	fsGroup          = "che.infra.kubernetes.pod.security_context.fs_group"
	defaultFSGroup   = "1724"

	terminationGracePeriod        = "che.infra.kubernetes.pod.termination_grace_period_sec"
	defaultTerminationGracePeriod = "0"

	// imagePullSecrets is a comma-separated list of secret names attached to every workspace pod
	imagePullSecrets = "che.infra.kubernetes.image_pull_secrets"

	// privateRegistries is a JSON object mapping registry host to {"username": "", "password": ""}
	privateRegistries = "che.infra.kubernetes.private_registries_json"

	httpProxy  = "che.workspace.http_proxy"
	httpsProxy = "che.workspace.https_proxy"
	noProxy    = "che.workspace.no_proxy"

	serviceAccountName = "che.infra.kubernetes.service_account_name"

	// trustedCABundle is the PEM encoded CA certificate bundle propagated to workspaces
	trustedCABundle = "che.infra.kubernetes.trusted_ca_bundle"

	vcsSSLCertificate = "che.git.self_signed_cert"
	vcsSSLHost        = "che.git.self_signed_cert_host"

	brokerMetadataImage        = "che.workspace.plugin_broker.metadata.image"
	defaultBrokerMetadataImage = "quay.io/eclipse/che-plugin-metadata-broker:v3.4.0"

	brokerArtifactsImage        = "che.workspace.plugin_broker.artifacts.image"
	defaultBrokerArtifactsImage = "quay.io/eclipse/che-plugin-artifacts-broker:v3.4.0"

	brokerPullPolicy        = "che.workspace.plugin_broker.pull_policy"
	defaultBrokerPullPolicy = "Always"

	brokerPushEndpoint = "che.websocket.endpoint"

	brokerRetention        = "che.workspace.plugin_broker.retention"
	defaultBrokerRetention = "1h"

	brokerPruneSchedule        = "che.workspace.plugin_broker.prune_schedule"
	defaultBrokerPruneSchedule = "@every 10m"

	asyncStorageIdleTimeout        = "che.infra.kubernetes.async.storage.shutdown_timeout"
	defaultAsyncStorageIdleTimeout = "120m"

	asyncStorageSchedule        = "che.infra.kubernetes.async.storage.shutdown_check_schedule"
	defaultAsyncStorageSchedule = "@every 30m"

	allowUserDefinedNamespaces        = "che.infra.kubernetes.namespace.allow_user_defined"
	defaultAllowUserDefinedNamespaces = "false"

	namespaceTemplate        = "che.infra.kubernetes.namespace.default"
	defaultNamespaceTemplate = "<username>-che"

	runtimesPerUser        = "che.limits.user.workspaces.run.count"
	defaultRuntimesPerUser = "1"

	workspaceStartTimeout        = "che.infra.kubernetes.workspace_start_timeout"
	defaultWorkspaceStartTimeout = "8m"
)
