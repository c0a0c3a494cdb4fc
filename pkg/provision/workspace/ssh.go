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
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
)

const (
	// SSHKeyService is the service under which workspace keys are stored
	SSHKeyService = "vcs"

	sshKeysSecretName   = "sshprivatekeys"
	sshConfigMapName    = "sshconfigmap"
	sshKeysVolumeName   = "ssh-keys"
	sshConfigVolumeName = "ssh-config"
	sshPrivateKeysPath  = "/etc/ssh/private"
	sshConfigPath       = "/etc/ssh/ssh_config"
	sshConfigFileName   = "ssh_config"
	defaultSSHKeyPrefix = "default-"
	sshKeyFileModeOctal = 0600
)

type SSHKeyPair struct {
	Name       string
	PublicKey  string
	PrivateKey string
}

// SSHKeyStore gives access to the SSH keys of a user.
type SSHKeyStore interface {
	GetKeyPairs(ctx context.Context, ownerID, service string) ([]SSHKeyPair, error)
	StoreKeyPair(ctx context.Context, ownerID, service string, pair SSHKeyPair) error
}

// SSHKeysProvisioner mounts the user's private SSH keys and an ssh_config referring to them into every container.
// A default key pair is generated and stored if the user has none. Without a store the step does nothing.
type SSHKeysProvisioner struct {
	Store SSHKeyStore
}

func (p *SSHKeysProvisioner) Provision(ctx context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error {
	if p.Store == nil {
		return nil
	}
	pairs, err := p.Store.GetKeyPairs(ctx, identity.OwnerID, SSHKeyService)
	if err != nil {
		return fmt.Errorf("failed to read SSH keys of user %s: %w", identity.OwnerID, err)
	}
	pairs = withPrivateKeys(pairs)
	if len(pairs) == 0 {
		pair, err := generateSSHKeyPair(defaultSSHKeyPrefix + identity.WorkspaceID)
		if err != nil {
			return fmt.Errorf("failed to generate SSH key: %w", err)
		}
		if err := p.Store.StoreKeyPair(ctx, identity.OwnerID, SSHKeyService, pair); err != nil {
			return fmt.Errorf("failed to store SSH key of user %s: %w", identity.OwnerID, err)
		}
		pairs = []SSHKeyPair{pair}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Name < pairs[j].Name })

	secretName := common.WorkspaceObjectName(identity.WorkspaceID, sshKeysSecretName)
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      secretName,
			Namespace: identity.InfrastructureNamespace,
		},
		StringData: map[string]string{},
	}
	var config strings.Builder
	for _, pair := range pairs {
		keyName := common.NormalizeName(pair.Name)
		secret.StringData[keyName] = pair.PrivateKey
		config.WriteString(sshConfigEntry(pair.Name, keyName))
	}
	if _, err := ssh_config.Decode(strings.NewReader(config.String())); err != nil {
		return fmt.Errorf("generated invalid ssh_config: %w", err)
	}
	env.AddSecret(secret)

	configMapName := common.WorkspaceObjectName(identity.WorkspaceID, sshConfigMapName)
	env.AddConfigMap(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      configMapName,
			Namespace: identity.InfrastructureNamespace,
		},
		Data: map[string]string{
			sshConfigFileName: config.String(),
		},
	})

	for _, pod := range env.Pods() {
		EnsureVolume(pod, corev1.Volume{
			Name: sshKeysVolumeName,
			VolumeSource: corev1.VolumeSource{
				Secret: &corev1.SecretVolumeSource{
					SecretName:  secretName,
					DefaultMode: ptr.To[int32](sshKeyFileModeOctal),
				},
			},
		})
		EnsureVolume(pod, corev1.Volume{
			Name: sshConfigVolumeName,
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: configMapName},
				},
			},
		})
		for _, container := range mainContainers(pod) {
			EnsureVolumeMount(container, corev1.VolumeMount{
				Name:      sshKeysVolumeName,
				MountPath: sshPrivateKeysPath,
				ReadOnly:  true,
			})
			EnsureVolumeMount(container, corev1.VolumeMount{
				Name:      sshConfigVolumeName,
				MountPath: sshConfigPath,
				SubPath:   sshConfigFileName,
				ReadOnly:  true,
			})
		}
	}
	return nil
}

func withPrivateKeys(pairs []SSHKeyPair) []SSHKeyPair {
	var result []SSHKeyPair
	for _, pair := range pairs {
		if pair.PrivateKey != "" {
			result = append(result, pair)
		}
	}
	return result
}

// sshConfigEntry returns the ssh_config section for a key. Default keys apply to every host; other keys are named
// after the host they are used for.
func sshConfigEntry(keyName, fileName string) string {
	host := keyName
	var hostName string
	if strings.HasPrefix(keyName, defaultSSHKeyPrefix) {
		host = "*"
	} else {
		hostName = fmt.Sprintf("  HostName %s\n", keyName)
	}
	return fmt.Sprintf("Host %s\n%s  IdentityFile %s\n  StrictHostKeyChecking no\n\n",
		host, hostName, path.Join(sshPrivateKeysPath, fileName))
}

// generateSSHKeyPair returns an RSA key pair. The public key is formatted for inclusion in an ssh authorized_keys
// file, and the private key is pem-formatted.
func generateSSHKeyPair(name string) (SSHKeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return SSHKeyPair{}, err
	}
	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	publicKey, err := ssh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return SSHKeyPair{}, err
	}
	return SSHKeyPair{
		Name:       name,
		PublicKey:  string(ssh.MarshalAuthorizedKey(publicKey)),
		PrivateKey: string(privateKeyPEM),
	}, nil
}
