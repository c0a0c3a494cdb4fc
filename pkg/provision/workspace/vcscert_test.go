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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVcsSslCertificate(t *testing.T) {
	// Given
	env := getTestEnvironment()
	provisioner := &VcsSslCertificateProvisioner{
		Config: testConfig(map[string]string{"che.git.self_signed_cert": testCABundle}),
	}

	// When
	err := provisioner.Provision(testCtx, env, testIdentity)

	// Then
	require.NoError(t, err)
	assert.True(t, provisioner.IsConfigured())
	assert.Equal(t, "/etc/che/git/cert/ca.crt", provisioner.CertPath())
	configMap := env.ConfigMap("workspace123-git-ssl-cert")
	require.NotNil(t, configMap)
	assert.Equal(t, testCABundle, configMap.Data["ca.crt"])

	volume := findVolume(env.Pod("pod"), "che-git-self-signed-cert")
	require.NotNil(t, volume)
	require.NotNil(t, volume.ConfigMap)
	assert.Equal(t, "workspace123-git-ssl-cert", volume.ConfigMap.Name)
	mount := findVolumeMount(&env.Pod("pod").Spec.Containers[1], "che-git-self-signed-cert")
	require.NotNil(t, mount)
	assert.Equal(t, "/etc/che/git/cert/", mount.MountPath)
}

func TestVcsSslCertificateNotConfigured(t *testing.T) {
	env := getTestEnvironment()
	provisioner := &VcsSslCertificateProvisioner{Config: testConfig(nil)}

	require.NoError(t, provisioner.Provision(testCtx, env, testIdentity))

	assert.False(t, provisioner.IsConfigured())
	assert.Empty(t, env.ConfigMaps())
}
