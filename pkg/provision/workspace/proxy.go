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

package workspace

import (
	"context"
	"strings"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

const (
	httpProxyEnvVar  = "HTTP_PROXY"
	httpsProxyEnvVar = "HTTPS_PROXY"
	noProxyEnvVar    = "NO_PROXY"
)

// ProxySettingsProvisioner exports the proxy configuration to every container, in both upper and lower case.
type ProxySettingsProvisioner struct {
	Config *config.ControllerConfig
}

func (p *ProxySettingsProvisioner) Provision(_ context.Context, env *environment.KubernetesEnvironment, _ environment.RuntimeIdentity) error {
	proxyConfig := p.Config.GetProxyConfig()
	if proxyConfig == nil {
		return nil
	}
	vars := map[string]*string{
		httpProxyEnvVar:  proxyConfig.HttpProxy,
		httpsProxyEnvVar: proxyConfig.HttpsProxy,
		noProxyEnvVar:    proxyConfig.NoProxy,
	}
	for _, pod := range env.Pods() {
		for _, container := range allContainers(pod) {
			for _, name := range []string{httpProxyEnvVar, httpsProxyEnvVar, noProxyEnvVar} {
				value := vars[name]
				if value == nil || *value == "" {
					continue
				}
				setEnv(container, name, *value)
				setEnv(container, strings.ToLower(name), *value)
			}
		}
	}
	return nil
}
