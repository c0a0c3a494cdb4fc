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
	corev1 "k8s.io/api/core/v1"
	"k8s.io/utils/ptr"
)

func TestSecurityContextOnKubernetes(t *testing.T) {
	env := getTestEnvironment()

	err := (&SecurityContextProvisioner{Config: testConfig(nil)}).Provision(testCtx, env, testIdentity)

	require.NoError(t, err)
	assert.Equal(t, &corev1.PodSecurityContext{
		RunAsUser: ptr.To[int64](1724),
		FSGroup:   ptr.To[int64](1724),
	}, env.Pod("pod").Spec.SecurityContext)
}

func TestSecurityContextKeepsPodValues(t *testing.T) {
	env := getTestEnvironment()
	env.Pod("pod").Spec.SecurityContext = &corev1.PodSecurityContext{RunAsUser: ptr.To[int64](1000)}

	err := (&SecurityContextProvisioner{Config: testConfig(nil)}).Provision(testCtx, env, testIdentity)

	require.NoError(t, err)
	assert.Equal(t, ptr.To[int64](1000), env.Pod("pod").Spec.SecurityContext.RunAsUser)
	assert.Equal(t, ptr.To[int64](1724), env.Pod("pod").Spec.SecurityContext.FSGroup)
}

func TestSecurityContextSkippedOnOpenShift(t *testing.T) {
	env := getTestEnvironment()

	err := (&SecurityContextProvisioner{Config: testConfig(nil), IsOpenShift: true}).Provision(testCtx, env, testIdentity)

	require.NoError(t, err)
	assert.Nil(t, env.Pod("pod").Spec.SecurityContext)
}

func TestTerminationGracePeriod(t *testing.T) {
	env := getTestEnvironment()
	cfg := testConfig(map[string]string{"che.infra.kubernetes.pod.termination_grace_period_sec": "30"})

	err := (&TerminationGracePeriodProvisioner{Config: cfg}).Provision(testCtx, env, testIdentity)

	require.NoError(t, err)
	assert.Equal(t, ptr.To[int64](30), env.Pod("pod").Spec.TerminationGracePeriodSeconds)
}

func TestTerminationGracePeriodKeepsPodValue(t *testing.T) {
	env := getTestEnvironment()
	env.Pod("pod").Spec.TerminationGracePeriodSeconds = ptr.To[int64](5)

	err := (&TerminationGracePeriodProvisioner{Config: testConfig(nil)}).Provision(testCtx, env, testIdentity)

	require.NoError(t, err)
	assert.Equal(t, ptr.To[int64](5), env.Pod("pod").Spec.TerminationGracePeriodSeconds)
}

func TestServiceAccount(t *testing.T) {
	env := getTestEnvironment()
	cfg := testConfig(map[string]string{"che.infra.kubernetes.service_account_name": "che-workspace"})

	require.NoError(t, (&ServiceAccountProvisioner{Config: cfg}).Provision(testCtx, env, testIdentity))

	assert.Equal(t, "che-workspace", env.Pod("pod").Spec.ServiceAccountName)
}

func TestServiceAccountNotConfigured(t *testing.T) {
	env := getTestEnvironment()

	require.NoError(t, (&ServiceAccountProvisioner{Config: testConfig(nil)}).Provision(testCtx, env, testIdentity))

	assert.Empty(t, env.Pod("pod").Spec.ServiceAccountName)
}
