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
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/provision/sync"
)

const (
	workspaceRoleName        = "workspace"
	workspaceRoleBindingName = "workspace-binding"
)

// syncWorkspaceServiceAccount makes sure the service account workspace pods run under exists in namespace and is
// allowed to exec into and view the pods of the namespace. The objects are shared by all workspaces of the namespace
// and are left in place when a workspace stops.
func syncWorkspaceServiceAccount(serviceAccount, namespace string, api sync.ClusterAPI) error {
	for _, obj := range workspaceRBAC(serviceAccount, namespace) {
		if err := submitObject(obj, api); err != nil {
			return err
		}
	}
	return nil
}

func workspaceRBAC(serviceAccount, namespace string) []client.Object {
	labels := constants.ControllerAppLabels()
	return []client.Object{
		&corev1.ServiceAccount{
			ObjectMeta: metav1.ObjectMeta{
				Name:      serviceAccount,
				Namespace: namespace,
				Labels:    labels,
			},
		},
		&rbacv1.Role{
			ObjectMeta: metav1.ObjectMeta{
				Name:      workspaceRoleName,
				Namespace: namespace,
				Labels:    labels,
			},
			Rules: []rbacv1.PolicyRule{
				{
					Resources: []string{"pods/exec"},
					APIGroups: []string{""},
					Verbs:     []string{"create"},
				},
				{
					Resources: []string{"pods", "services"},
					APIGroups: []string{""},
					Verbs:     []string{"get", "list", "watch"},
				},
				{
					Resources: []string{"pods"},
					APIGroups: []string{"metrics.k8s.io"},
					Verbs:     []string{"get", "list", "watch"},
				},
			},
		},
		&rbacv1.RoleBinding{
			ObjectMeta: metav1.ObjectMeta{
				Name:      workspaceRoleBindingName,
				Namespace: namespace,
				Labels:    labels,
			},
			RoleRef: rbacv1.RoleRef{
				APIGroup: rbacv1.GroupName,
				Kind:     "Role",
				Name:     workspaceRoleName,
			},
			Subjects: []rbacv1.Subject{
				{
					Kind:      rbacv1.ServiceAccountKind,
					Name:      serviceAccount,
					Namespace: namespace,
				},
			},
		},
	}
}
