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

package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
)

func TestSubmitSetsUpWorkspaceServiceAccount(t *testing.T) {
	// Given
	var created []string
	c := recordCreates(&created, interceptor.Funcs{})
	rt := testRuntime(c)
	rt.Config = config.NewControllerConfig(map[string]string{
		"che.infra.kubernetes.service_account_name": "che-workspace",
	})

	// When
	err := rt.Submit(context.Background(), testEnvironment(), testIdentity)

	// Then
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(created), 3)
	assert.Equal(t, []string{
		"*v1.ServiceAccount/che-workspace",
		"*v1.Role/workspace",
		"*v1.RoleBinding/workspace-binding",
	}, created[:3])

	binding := &rbacv1.RoleBinding{}
	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Name: "workspace-binding", Namespace: testNamespace}, binding))
	assert.Equal(t, "workspace", binding.RoleRef.Name)
	assert.Equal(t, []rbacv1.Subject{{Kind: "ServiceAccount", Name: "che-workspace", Namespace: testNamespace}}, binding.Subjects)
}

func TestSubmitWithoutServiceAccountCreatesNoRBAC(t *testing.T) {
	// Given
	c := fake.NewClientBuilder().WithScheme(testScheme()).Build()

	// When
	err := testRuntime(c).Submit(context.Background(), testEnvironment(), testIdentity)

	// Then
	require.NoError(t, err)
	roles := &rbacv1.RoleList{}
	require.NoError(t, c.List(context.Background(), roles))
	assert.Empty(t, roles.Items)
}

func TestSubmitRestoresWorkspaceRole(t *testing.T) {
	// Given
	modified := &rbacv1.Role{
		ObjectMeta: metav1.ObjectMeta{Name: "workspace", Namespace: testNamespace},
		Rules:      []rbacv1.PolicyRule{{Resources: []string{"secrets"}, APIGroups: []string{""}, Verbs: []string{"get"}}},
	}
	existing := &corev1.ServiceAccount{ObjectMeta: metav1.ObjectMeta{Name: "che-workspace", Namespace: testNamespace}}
	c := fake.NewClientBuilder().WithScheme(testScheme()).WithObjects(modified, existing).Build()
	rt := testRuntime(c)
	rt.Config = config.NewControllerConfig(map[string]string{
		"che.infra.kubernetes.service_account_name": "che-workspace",
	})

	// When
	err := rt.Submit(context.Background(), testEnvironment(), testIdentity)

	// Then
	require.NoError(t, err)
	role := &rbacv1.Role{}
	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Name: "workspace", Namespace: testNamespace}, role))
	assert.Equal(t, workspaceRBAC("che-workspace", testNamespace)[1].(*rbacv1.Role).Rules, role.Rules)
}
