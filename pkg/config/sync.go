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

package config

import (
	"context"
	"fmt"
	"sort"
	"strings"

	routeV1 "github.com/openshift/api/route/v1"
	corev1 "k8s.io/api/core/v1"
	k8sErrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	toolscache "k8s.io/client-go/tools/cache"
	ctrl "sigs.k8s.io/controller-runtime"
	crcache "sigs.k8s.io/controller-runtime/pkg/cache"
	crclient "sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/config/proxy"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/infrastructure"
)

const (
	openShiftTestRouteName = "che-workspace-controller-test-route"
)

var log = ctrl.Log.WithName("controller-configuration")

// SetupControllerConfig reads the controller config map using a non-caching client and discovers values that
// depend on the cluster: the route suffix and the cluster proxy on OpenShift. A missing config map results in the
// default configuration.
func SetupControllerConfig(ctx context.Context, nonCachedClient crclient.Client, namespace string) (*ControllerConfig, error) {
	ref := types.NamespacedName{Name: GetConfigMapName(), Namespace: namespace}
	log.Info(fmt.Sprintf("Searching for config map '%s' in namespace '%s'", ref.Name, ref.Namespace))

	configMap := &corev1.ConfigMap{}
	err := nonCachedClient.Get(ctx, ref, configMap)
	if err != nil {
		if !k8sErrors.IsNotFound(err) {
			return nil, err
		}
		log.Info(fmt.Sprintf("Config map '%s' not found in namespace '%s', using default configuration", ref.Name, ref.Namespace))
	}
	cfg := NewControllerConfig(configMap.Data)

	routingSuffix, err := discoverRouteSuffix(ctx, nonCachedClient, namespace)
	if err != nil {
		return nil, err
	}
	clusterProxy, err := proxy.GetClusterProxyConfig(ctx, nonCachedClient, log)
	if err != nil {
		return nil, err
	}
	cfg.setDiscovered(routingSuffix, clusterProxy)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logCurrentConfig(cfg)
	return cfg, nil
}

// WatchControllerConfig keeps cfg in sync with the controller config map. Invalid updates are logged and
// ignored; deleting the config map restores the defaults.
func WatchControllerConfig(ctx context.Context, cache crcache.Cache, cfg *ControllerConfig, namespace string) error {
	informer, err := cache.GetInformer(ctx, &corev1.ConfigMap{})
	if err != nil {
		return err
	}
	_, err = informer.AddEventHandler(toolscache.ResourceEventHandlerFuncs{
		AddFunc: func(obj interface{}) {
			syncConfigFrom(cfg, obj, namespace)
		},
		UpdateFunc: func(_, newObj interface{}) {
			syncConfigFrom(cfg, newObj, namespace)
		},
		DeleteFunc: func(obj interface{}) {
			if isControllerConfigMap(obj, namespace) {
				log.Info("Controller config map was deleted, restoring default configuration")
				cfg.update(nil)
				logCurrentConfig(cfg)
			}
		},
	})
	return err
}

func isControllerConfigMap(obj interface{}, namespace string) bool {
	configMap, ok := obj.(*corev1.ConfigMap)
	return ok && configMap.Name == GetConfigMapName() && configMap.Namespace == namespace
}

func syncConfigFrom(cfg *ControllerConfig, obj interface{}, namespace string) {
	if !isControllerConfigMap(obj, namespace) {
		return
	}
	configMap := obj.(*corev1.ConfigMap)
	candidate := NewControllerConfig(configMap.Data)
	if err := candidate.Validate(); err != nil {
		log.Error(err, "Ignoring invalid update to controller config map")
		return
	}
	cfg.update(configMap.Data)
	logCurrentConfig(cfg)
}

// discoverRouteSuffix attempts to determine a routing suffix that is compatible with the current cluster.
// On OpenShift, this is done by creating a temporary route and reading the auto-filled .spec.host. On Kubernetes,
// there's no way to determine this value automatically so ("", nil) is returned.
func discoverRouteSuffix(ctx context.Context, client crclient.Client, namespace string) (string, error) {
	if !infrastructure.IsOpenShift() {
		return "", nil
	}

	testRoute := &routeV1.Route{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: namespace,
			Name:      openShiftTestRouteName,
		},
		Spec: routeV1.RouteSpec{
			To: routeV1.RouteTargetReference{
				Kind: "Service",
				Name: openShiftTestRouteName,
			},
		},
	}

	err := client.Create(ctx, testRoute)
	if err != nil {
		if !k8sErrors.IsAlreadyExists(err) {
			return "", err
		}
		err := client.Get(ctx, types.NamespacedName{Name: openShiftTestRouteName, Namespace: namespace}, testRoute)
		if err != nil {
			return "", err
		}
	}
	defer client.Delete(ctx, testRoute)
	host := testRoute.Spec.Host
	prefixToRemove := fmt.Sprintf("%s-%s.", openShiftTestRouteName, namespace)
	return strings.TrimPrefix(host, prefixToRemove), nil
}

// logCurrentConfig logs non-default configuration values, omitting values that may carry credentials
func logCurrentConfig(cfg *ControllerConfig) {
	cfg.mu.RLock()
	var config []string
	for key, value := range cfg.data {
		switch key {
		case tlsKey, tlsCert, privateRegistries, trustedCABundle, vcsSSLCertificate:
			config = append(config, fmt.Sprintf("%s=(set)", key))
		default:
			config = append(config, fmt.Sprintf("%s=%s", key, value))
		}
	}
	cfg.mu.RUnlock()
	sort.Strings(config)

	if len(config) == 0 {
		log.Info("Updated config to [(default config)]")
	} else {
		log.Info(fmt.Sprintf("Updated config to [%s]", strings.Join(config, ",")))
	}
	if routingSuffix := cfg.GetRoutingSuffix(); routingSuffix != "" {
		log.Info("Resolved routing suffix", "suffix", routingSuffix)
	}
	if proxyConfig := cfg.GetProxyConfig(); proxyConfig != nil {
		log.Info("Resolved proxy configuration", "proxy", proxyConfig)
	}
}
