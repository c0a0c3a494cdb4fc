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

// Package provision assembles the provisioning steps applied to a workspace environment into a pipeline.
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/dwerrors"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/metrics"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/provision/storage"
	wsprovision "github.com/che-incubator/che-workspace-infrastructure/pkg/provision/workspace"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/routing"
)

// Step names, in the order the environment provisioner runs them
const (
	LogsVolumeStep             = "logs-volume"
	ServersStep                = "servers"
	EnvVarsStep                = "env-vars"
	VolumesStrategyStep        = "volumes-strategy"
	RestartPolicyStep          = "restart-policy"
	UniqueNamesStep            = "unique-names"
	ResourceLimitsStep         = "resource-limits"
	IngressTLSStep             = "ingress-tls"
	SecurityContextStep        = "security-context"
	TerminationGracePeriodStep = "termination-grace-period"
	ImagePullSecretsStep       = "image-pull-secrets"
	ProxySettingsStep          = "proxy-settings"
	ServiceAccountStep         = "service-account"
	CertificatesStep           = "certificates"
	SSHKeysStep                = "ssh-keys"
	GitConfigStep              = "git-config"
	PreviewURLStep             = "preview-url-exposer"
	VcsSslCertificateStep      = "vcs-ssl-certificate"
)

// Step is one transformation of a workspace environment. Steps must not access the cluster.
type Step interface {
	Provision(ctx context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error
}

type StepFunc func(ctx context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error

func (f StepFunc) Provision(ctx context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error {
	return f(ctx, env, identity)
}

type NamedStep struct {
	Name string
	Step Step
}

// Pipeline runs steps in order, each once, and stops at the first failure.
type Pipeline struct {
	steps []NamedStep
	log   logr.Logger
}

var _ Step = (*Pipeline)(nil)

func NewPipeline(log logr.Logger, steps ...NamedStep) *Pipeline {
	return &Pipeline{steps: steps, log: log}
}

// StepNames returns the names of the steps in the order they are run.
func (p *Pipeline) StepNames() []string {
	var names []string
	for _, step := range p.steps {
		names = append(names, step.Name)
	}
	return names
}

// Provision applies every step to env. Errors are returned as *dwerrors.ProvisioningError naming the failed step;
// env must be discarded after a failure.
func (p *Pipeline) Provision(ctx context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error {
	log := p.log.WithValues(constants.WorkspaceIDLoggerKey, identity.WorkspaceID)
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return &dwerrors.ProvisioningError{Step: step.Name, Message: "provisioning interrupted", Err: err}
		}
		start := time.Now()
		err := step.Step.Provision(ctx, env, identity)
		metrics.ProvisioningStepFinished(step.Name, time.Since(start))
		if err != nil {
			metrics.ProvisioningStepFailed(step.Name)
			log.Info(fmt.Sprintf("Provisioning step %s failed", step.Name), "error", err.Error())
			return wrapStepError(step.Name, err)
		}
		log.V(1).Info(fmt.Sprintf("Finished provisioning step %s", step.Name))
	}
	return nil
}

func wrapStepError(step string, err error) error {
	var provisioningErr *dwerrors.ProvisioningError
	if errors.As(err, &provisioningErr) {
		if provisioningErr.Step == "" {
			provisioningErr.Step = step
		}
		return err
	}
	return &dwerrors.ProvisioningError{Step: step, Err: err}
}

// Dependencies are the collaborators of the environment provisioner.
type Dependencies struct {
	Config      *config.ControllerConfig
	Exposer     routing.ExternalServerExposer
	SSHKeys     wsprovision.SSHKeyStore
	Preferences wsprovision.PreferenceStore
	IsOpenShift bool
	// NameGenerator resolves name collisions in the unique-names step
	NameGenerator common.NameGenerator
	Log           logr.Logger
}

// NewEnvironmentProvisioner returns the pipeline that turns a converted workspace environment into one that can
// be submitted to the cluster.
func NewEnvironmentProvisioner(deps Dependencies) (*Pipeline, error) {
	storageProvisioner, err := storage.GetProvisioner(deps.Config)
	if err != nil {
		return nil, &dwerrors.ValidationError{Field: "storage strategy", Message: err.Error()}
	}
	vcsCert := &wsprovision.VcsSslCertificateProvisioner{Config: deps.Config}

	steps := []NamedStep{
		{LogsVolumeStep, wsprovision.LogsVolumeProvisioner{}},
		{ServersStep, &wsprovision.ServersProvisioner{Exposer: deps.Exposer}},
		{EnvVarsStep, wsprovision.EnvVarsProvisioner{}},
		{VolumesStrategyStep, storageProvisioner},
		{RestartPolicyStep, wsprovision.RestartPolicyRewriter{}},
		{UniqueNamesStep, &wsprovision.UniqueNamesProvisioner{Generator: deps.NameGenerator}},
		{ResourceLimitsStep, &wsprovision.ResourceLimitsProvisioner{Config: deps.Config}},
		{IngressTLSStep, &wsprovision.IngressTLSProvisioner{Config: deps.Config}},
		{SecurityContextStep, &wsprovision.SecurityContextProvisioner{Config: deps.Config, IsOpenShift: deps.IsOpenShift}},
		{TerminationGracePeriodStep, &wsprovision.TerminationGracePeriodProvisioner{Config: deps.Config}},
		{ImagePullSecretsStep, &wsprovision.ImagePullSecretsProvisioner{Config: deps.Config}},
		{ProxySettingsStep, &wsprovision.ProxySettingsProvisioner{Config: deps.Config}},
		{ServiceAccountStep, &wsprovision.ServiceAccountProvisioner{Config: deps.Config}},
		{CertificatesStep, &wsprovision.CertificateProvisioner{Config: deps.Config}},
		{SSHKeysStep, &wsprovision.SSHKeysProvisioner{Store: deps.SSHKeys}},
		{GitConfigStep, &wsprovision.GitConfigProvisioner{
			Preferences: deps.Preferences,
			Config:      deps.Config,
			VcsCertPath: vcsCert.CertPath(),
		}},
		{PreviewURLStep, &wsprovision.PreviewURLExposer{Exposer: deps.Exposer}},
		{VcsSslCertificateStep, vcsCert},
	}
	return NewPipeline(deps.Log.WithName("provisioner"), steps...), nil
}
