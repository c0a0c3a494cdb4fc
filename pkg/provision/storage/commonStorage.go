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
	"fmt"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

// The CommonStorageProvisioner provisions one PVC per namespace and configures all volumes in a workspace
// to mount on subpaths within that PVC. Workspace storage is mounted prefixed with the workspace ID.
type CommonStorageProvisioner struct {
	Config *config.ControllerConfig
}

var _ Provisioner = (*CommonStorageProvisioner)(nil)

func (p *CommonStorageProvisioner) Provision(_ context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error {
	volumes, err := getMachineVolumes(env)
	if err != nil {
		return err
	}
	// If persistent storage is not needed, we're done
	if len(volumes) == 0 {
		return nil
	}

	pvcName := p.Config.GetPVCName()
	env.AddPersistentVolumeClaim(getPVCSpec(pvcName, identity.InfrastructureNamespace, p.Config))
	mountOnPVC(volumes, pvcName, func(volumeName string) string {
		return fmt.Sprintf("%s/%s", identity.WorkspaceID, volumeName)
	})
	return nil
}
