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
	"os"
	"strconv"
)

const (
	ConfigMapNameEnvVar      = "CONTROLLER_CONFIG_MAP_NAME"
	ConfigMapNamespaceEnvVar = "CONTROLLER_CONFIG_MAP_NAMESPACE"
	devModeEnvVar            = "DEV_MODE"

	defaultConfigMapName = "che-workspace-controller"
)

// GetConfigMapName returns the name of the controller config map, which can be overridden through the environment.
func GetConfigMapName() string {
	if name := os.Getenv(ConfigMapNameEnvVar); name != "" {
		return name
	}
	return defaultConfigMapName
}

// GetConfigMapNamespace returns the namespace set in the environment, or the empty string if unset.
func GetConfigMapNamespace() string {
	return os.Getenv(ConfigMapNamespaceEnvVar)
}

// GetDevModeEnabled returns true if development logging is requested.
func GetDevModeEnabled() bool {
	enabled, err := strconv.ParseBool(os.Getenv(devModeEnvVar))
	return err == nil && enabled
}
