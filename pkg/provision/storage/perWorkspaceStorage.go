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

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

// The PerWorkspaceStorageProvisioner provisions one PVC per workspace. Volumes are mounted on subpaths named
// after the volume.
type PerWorkspaceStorageProvisioner struct {
	Config *config.ControllerConfig
}

var _ Provisioner = (*PerWorkspaceStorageProvisioner)(nil)

func (p *PerWorkspaceStorageProvisioner) Provision(_ context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error {
	volumes, err := getMachineVolumes(env)
	if err != nil {
		return err
	}
	if len(volumes) == 0 {
		return nil
	}

	pvcName := PerWorkspacePVCName(p.Config.GetPVCName(), identity.WorkspaceID)
	env.AddPersistentVolumeClaim(getPVCSpec(pvcName, identity.InfrastructureNamespace, p.Config))
	mountOnPVC(volumes, pvcName, func(volumeName string) string {
		return volumeName
	})
	return nil
}

func PerWorkspacePVCName(pvcName, workspaceId string) string {
	return common.NormalizeName(fmt.Sprintf("%s-%s", pvcName, workspaceId))
}
