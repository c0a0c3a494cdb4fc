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

package storage

import (
	"context"
	"errors"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

var UnsupportedStorageStrategy = errors.New("configured storage strategy not supported")

type Provisioner interface {
	// Provision rewrites machine volumes into pod volumes and volume mounts, adding any persistent volume claims
	// the strategy needs to the environment.
	Provision(ctx context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error
}

// GetProvisioner returns the provisioner for the configured storage strategy.
func GetProvisioner(cfg *config.ControllerConfig) (Provisioner, error) {
	switch cfg.GetStorageStrategy() {
	case config.CommonStorageStrategy, "":
		return &CommonStorageProvisioner{Config: cfg}, nil
	case config.PerWorkspaceStorageStrategy:
		return &PerWorkspaceStorageProvisioner{Config: cfg}, nil
	case config.EphemeralStorageStrategy:
		return &EphemeralStorageProvisioner{}, nil
	default:
		return nil, UnsupportedStorageStrategy
	}
}
