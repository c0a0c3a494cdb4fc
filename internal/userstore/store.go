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

// Package userstore keeps per-user data in the controller namespace: preferences in config maps and SSH key pairs
// in secrets. Every object is annotated with the id of its user.
package userstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	corev1 "k8s.io/api/core/v1"
	k8sErrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	crclient "sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/common"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/provision/storage/asyncstorage"
	wsprovision "github.com/che-incubator/che-workspace-infrastructure/pkg/provision/workspace"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/runtime"
)

const (
	sshPublicKeyKey  = "ssh-publickey"
	sshPrivateKeyKey = "ssh-privatekey"
	sshNameKey       = "name"
	sshServiceKey    = "service"
)

type Store struct {
	Client    crclient.Client
	Namespace string
}

var (
	_ asyncstorage.UserLister      = (*Store)(nil)
	_ asyncstorage.PreferenceStore = (*Store)(nil)
	_ wsprovision.PreferenceStore  = (*Store)(nil)
	_ wsprovision.SSHKeyStore      = (*Store)(nil)
	_ runtime.ActivityRecorder     = (*Store)(nil)
)

func preferencesName(userID string) string {
	return common.WorkspaceObjectName(userID, "preferences")
}

func userLabels(component string) map[string]string {
	labels := constants.ControllerAppLabels()
	labels[constants.UserDataComponentLabel] = component
	return labels
}

// ListUsers returns users that have preferences, ordered by id.
func (s *Store) ListUsers(ctx context.Context, offset, limit int) ([]asyncstorage.User, bool, error) {
	configMaps := &corev1.ConfigMapList{}
	err := s.Client.List(ctx, configMaps,
		crclient.InNamespace(s.Namespace),
		crclient.MatchingLabels{constants.UserDataComponentLabel: constants.UserPreferencesComponent})
	if err != nil {
		return nil, false, err
	}
	var users []asyncstorage.User
	for _, configMap := range configMaps.Items {
		if id := configMap.Annotations[constants.UserIDAnnotation]; id != "" {
			users = append(users, asyncstorage.User{ID: id})
		}
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].ID < users[j].ID
	})
	if offset >= len(users) {
		return nil, false, nil
	}
	end := min(offset+limit, len(users))
	return users[offset:end], end < len(users), nil
}

// GetPreferences returns the preferences of a user; a user without preferences gets an empty map.
func (s *Store) GetPreferences(ctx context.Context, userID string) (map[string]string, error) {
	configMap := &corev1.ConfigMap{}
	err := s.Client.Get(ctx, types.NamespacedName{Name: preferencesName(userID), Namespace: s.Namespace}, configMap)
	if err != nil {
		if k8sErrors.IsNotFound(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	if configMap.Annotations[constants.UserIDAnnotation] != userID {
		return map[string]string{}, nil
	}
	return configMap.Data, nil
}

// UpdatePreferences merges prefs into the preferences of a user.
func (s *Store) UpdatePreferences(ctx context.Context, userID string, prefs map[string]string) error {
	configMap := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      preferencesName(userID),
			Namespace: s.Namespace,
		},
	}
	_, err := controllerutil.CreateOrUpdate(ctx, s.Client, configMap, func() error {
		configMap.Labels = userLabels(constants.UserPreferencesComponent)
		if configMap.Annotations == nil {
			configMap.Annotations = map[string]string{}
		}
		configMap.Annotations[constants.UserIDAnnotation] = userID
		if configMap.Data == nil {
			configMap.Data = map[string]string{}
		}
		for key, value := range prefs {
			configMap.Data[key] = value
		}
		return nil
	})
	return err
}

// RecordActivity stores the last activity time and namespace of a user, read back by the async storage reaper.
func (s *Store) RecordActivity(ctx context.Context, userID, namespace string, at time.Time) error {
	return s.UpdatePreferences(ctx, userID, map[string]string{
		constants.LastActivityTimePreference:    strconv.FormatInt(at.Unix(), 10),
		constants.LastActiveNamespacePreference: namespace,
	})
}

func (s *Store) GetKeyPairs(ctx context.Context, ownerID, service string) ([]wsprovision.SSHKeyPair, error) {
	secrets := &corev1.SecretList{}
	err := s.Client.List(ctx, secrets,
		crclient.InNamespace(s.Namespace),
		crclient.MatchingLabels{constants.UserDataComponentLabel: constants.UserSSHKeysComponent})
	if err != nil {
		return nil, err
	}
	var pairs []wsprovision.SSHKeyPair
	for _, secret := range secrets.Items {
		if secret.Annotations[constants.UserIDAnnotation] != ownerID || string(secret.Data[sshServiceKey]) != service {
			continue
		}
		pairs = append(pairs, wsprovision.SSHKeyPair{
			Name:       string(secret.Data[sshNameKey]),
			PublicKey:  string(secret.Data[sshPublicKeyKey]),
			PrivateKey: string(secret.Data[sshPrivateKeyKey]),
		})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Name < pairs[j].Name
	})
	return pairs, nil
}

func (s *Store) StoreKeyPair(ctx context.Context, ownerID, service string, pair wsprovision.SSHKeyPair) error {
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:        common.WorkspaceObjectName(ownerID, fmt.Sprintf("ssh-%s-%s", service, pair.Name)),
			Namespace:   s.Namespace,
			Labels:      userLabels(constants.UserSSHKeysComponent),
			Annotations: map[string]string{constants.UserIDAnnotation: ownerID},
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{
			sshNameKey:       []byte(pair.Name),
			sshServiceKey:    []byte(service),
			sshPublicKeyKey:  []byte(pair.PublicKey),
			sshPrivateKeyKey: []byte(pair.PrivateKey),
		},
	}
	err := s.Client.Create(ctx, secret)
	if k8sErrors.IsAlreadyExists(err) {
		return fmt.Errorf("SSH key %s already exists for service %s", pair.Name, service)
	}
	return err
}
