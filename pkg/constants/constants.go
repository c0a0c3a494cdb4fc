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

// package constants defines constant values used throughout the workspace infrastructure
package constants

// Labels which should be used for controller related objects
var ControllerAppLabels = func() map[string]string {
	return map[string]string{
		"app.kubernetes.io/name":    "che-workspace-infrastructure",
		"app.kubernetes.io/part-of": "che",
	}
}

// Internal constants
const (
	// WorkspaceIDLabel is label key to store workspace identifier
	WorkspaceIDLabel = "che.workspace_id"

	// WorkspaceOwnerLabel stores the id of the user owning a workspace object
	WorkspaceOwnerLabel = "che.workspace.owner_id"

	// UserIDAnnotation stores the id of the user a preferences config map or SSH key secret belongs to. User ids
	// are not guaranteed to be valid label values.
	UserIDAnnotation = "che.eclipse.org/user-id"

	// UserDataComponentLabel is set on objects holding per-user data in the controller namespace
	UserDataComponentLabel = "app.kubernetes.io/component"

	UserPreferencesComponent = "che-user-preferences"
	UserSSHKeysComponent     = "che-user-ssh-keys"

	// WorkspaceIDLoggerKey is the key used to log workspace ID
	WorkspaceIDLoggerKey = "workspace_id"

	// OriginalNameLabel stores the name an object had before unique names were provisioned. Services select
	// workspace pods through this label so that selectors do not depend on the final pod name.
	OriginalNameLabel = "che.original_name"

	// BrokerLabel marks pods running plugin brokers; brokers are expected to terminate, so their restart
	// policy is never changed.
	BrokerLabel = "che.workspace.broker"

	// MachineNameAnnotation is the annotation key for storing the machine a pod-level object belongs to
	MachineNameAnnotation = "org.eclipse.che.machine.name"

	// ServerAnnotationPrefix is the prefix of annotations describing a server exposed by a routing object.
	// The full annotation name is "org.eclipse.che.server.<server-ref>.<attribute>"
	ServerAnnotationPrefix = "org.eclipse.che.server."

	// GatewayConfigLabel marks config maps carrying gateway route documents
	GatewayConfigLabel = "app.kubernetes.io/component"

	// GatewayConfigLabelValue is the value of GatewayConfigLabel for gateway route documents
	GatewayConfigLabelValue = "che-gateway-config"

	// ServiceAccount is the default service account used for workspace pods
	ServiceAccount = "che-workspace"

	// LogsVolumeName is the name of the volume holding workspace logs
	LogsVolumeName = "che-logs"

	// LogsMountPath is where the logs volume is mounted in every workspace container
	LogsMountPath = "/workspace_logs"

	// CertificateMountPath is where the self-signed CA certificate is mounted in workspace containers
	CertificateMountPath = "/tmp/che/secret/"

	// CertificateFileName is the key of the CA certificate in the certificate secret
	CertificateFileName = "ca.crt"

	// AsyncStoragePodName is the name of the per-user async storage pod
	AsyncStoragePodName = "async-storage"

	// LastActivityTimePreference holds the epoch second of the last workspace activity of a user
	LastActivityTimePreference = "che:lastActivityTime"

	// LastActiveNamespacePreference holds the namespace the user last ran a workspace in
	LastActiveNamespacePreference = "che:lastActiveInfrastructureNamespace"

	// MachineNameEnvVar and WorkspaceIDEnvVar are injected in every workspace container
	MachineNameEnvVar = "CHE_MACHINE_NAME"
	WorkspaceIDEnvVar = "CHE_WORKSPACE_ID"

	// PreviewURLAttribute is the command attribute holding the port of a preview URL
	PreviewURLAttribute = "previewUrl"
)
