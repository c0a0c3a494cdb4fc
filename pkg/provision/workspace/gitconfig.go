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
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	gitconfig "github.com/go-git/go-git/v5/plumbing/format/config"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

const (
	// EditorPreferencesKey is the user preference holding editor settings as a JSON object
	EditorPreferencesKey = "theia-user-preferences"
	gitUserNamePref      = "git.user.name"
	gitUserEmailPref     = "git.user.email"

	gitConfigMapName  = "gitconfig"
	gitConfigVolume   = "gitconfig"
	gitConfigFileName = "gitconfig"
	gitConfigLocation = "/etc/" + gitConfigFileName
)

// PreferenceStore gives access to user preferences.
type PreferenceStore interface {
	GetPreferences(ctx context.Context, userID string) (map[string]string, error)
}

// GitConfigProvisioner mounts a system gitconfig with the user's name and email, and with the certificate of a
// self-hosted git server if one is configured.
type GitConfigProvisioner struct {
	Preferences PreferenceStore
	Config      *config.ControllerConfig
	// VcsCertPath is where the git server certificate is mounted in containers
	VcsCertPath string
}

func (p *GitConfigProvisioner) Provision(ctx context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error {
	cfg := gitconfig.New()
	if err := p.addUser(ctx, cfg, identity.OwnerID); err != nil {
		return err
	}
	if cert, host := p.Config.GetVCSSSLCertificate(); cert != "" {
		http := cfg.Section("http")
		if host != "" {
			http.Subsection(host).SetOption("sslCAInfo", p.VcsCertPath)
		} else {
			http.SetOption("sslCAInfo", p.VcsCertPath)
		}
	}
	if len(cfg.Sections) == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := gitconfig.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode gitconfig: %w", err)
	}

	configMapName := common.WorkspaceObjectName(identity.WorkspaceID, gitConfigMapName)
	env.AddConfigMap(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      configMapName,
			Namespace: identity.InfrastructureNamespace,
		},
		Data: map[string]string{
			gitConfigFileName: buf.String(),
		},
	})
	for _, pod := range env.Pods() {
		EnsureVolume(pod, corev1.Volume{
			Name: gitConfigVolume,
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: configMapName},
				},
			},
		})
		for _, container := range mainContainers(pod) {
			EnsureVolumeMount(container, corev1.VolumeMount{
				Name:      gitConfigVolume,
				MountPath: gitConfigLocation,
				SubPath:   gitConfigFileName,
				ReadOnly:  true,
			})
		}
	}
	return nil
}

func (p *GitConfigProvisioner) addUser(ctx context.Context, cfg *gitconfig.Config, userID string) error {
	if p.Preferences == nil {
		return nil
	}
	preferences, err := p.Preferences.GetPreferences(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to read preferences of user %s: %w", userID, err)
	}
	raw, ok := preferences[EditorPreferencesKey]
	if !ok || raw == "" {
		return nil
	}
	editorPreferences := map[string]interface{}{}
	if err := json.Unmarshal([]byte(raw), &editorPreferences); err != nil {
		// malformed editor preferences are ignored
		return nil
	}
	name, _ := editorPreferences[gitUserNamePref].(string)
	email, _ := editorPreferences[gitUserEmailPref].(string)
	if name == "" && email == "" {
		return nil
	}
	user := cfg.Section("user")
	if name != "" {
		user.SetOption("name", name)
	}
	if email != "" {
		user.SetOption("email", email)
	}
	return nil
}
