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

package proxy

import (
	"context"
	"testing"

	configv1 "github.com/openshift/api/config/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/infrastructure"
)

func TestMergeProxyConfigs(t *testing.T) {
	tests := []struct {
		name           string
		operatorConfig *Proxy
		clusterConfig  *Proxy
		expectedConfig *Proxy
	}{
		{
			name: "Uses operatorConfig as base when configured",
			operatorConfig: &Proxy{
				HttpProxy:  ptr.To("test-operator-http"),
				HttpsProxy: ptr.To("test-operator-https"),
				NoProxy:    ptr.To("test-operator-noproxy"),
			},
			clusterConfig: &Proxy{
				HttpProxy:  ptr.To("test-cluster-http"),
				HttpsProxy: ptr.To("test-cluster-https"),
				NoProxy:    ptr.To("test-cluster-noproxy"),
			},
			expectedConfig: &Proxy{
				HttpProxy:  ptr.To("test-operator-http"),
				HttpsProxy: ptr.To("test-operator-https"),
				NoProxy:    ptr.To("test-cluster-noproxy,test-operator-noproxy"),
			},
		},
		{
			name: "Uses clusterConfig when operator not configured",
			operatorConfig: &Proxy{
				HttpProxy:  nil,
				HttpsProxy: nil,
				NoProxy:    nil,
			},
			clusterConfig: &Proxy{
				HttpProxy:  ptr.To("test-cluster-http"),
				HttpsProxy: ptr.To("test-cluster-https"),
				NoProxy:    ptr.To("test-cluster-noproxy"),
			},
			expectedConfig: &Proxy{
				HttpProxy:  ptr.To("test-cluster-http"),
				HttpsProxy: ptr.To("test-cluster-https"),
				NoProxy:    ptr.To("test-cluster-noproxy"),
			},
		},
		{
			name: "Can set empty strings to unset autodetected fields",
			operatorConfig: &Proxy{
				HttpProxy:  ptr.To(""),
				HttpsProxy: ptr.To(""),
				NoProxy:    ptr.To(""),
			},
			clusterConfig: &Proxy{
				HttpProxy:  ptr.To("test-cluster-http"),
				HttpsProxy: ptr.To("test-cluster-https"),
				NoProxy:    ptr.To("test-cluster-noproxy"),
			},
			expectedConfig: &Proxy{},
		},
		{
			name:           "Nil operator proxy uses cluster config proxy",
			operatorConfig: nil,
			clusterConfig: &Proxy{
				HttpProxy:  ptr.To("test-cluster-http"),
				HttpsProxy: ptr.To("test-cluster-https"),
				NoProxy:    ptr.To("test-cluster-noproxy"),
			},
			expectedConfig: &Proxy{
				HttpProxy:  ptr.To("test-cluster-http"),
				HttpsProxy: ptr.To("test-cluster-https"),
				NoProxy:    ptr.To("test-cluster-noproxy"),
			},
		},
		{
			name: "Nil cluster proxy uses operator-configured proxy",
			operatorConfig: &Proxy{
				HttpProxy:  ptr.To("test-operator-http"),
				HttpsProxy: ptr.To("test-operator-https"),
				NoProxy:    ptr.To("test-operator-noproxy"),
			},
			clusterConfig: nil,
			expectedConfig: &Proxy{
				HttpProxy:  ptr.To("test-operator-http"),
				HttpsProxy: ptr.To("test-operator-https"),
				NoProxy:    ptr.To("test-operator-noproxy"),
			},
		},
		{
			name:           "Handles no proxy configured",
			operatorConfig: nil,
			clusterConfig:  nil,
			expectedConfig: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actualConfig := MergeProxyConfigs(tt.operatorConfig, tt.clusterConfig)
			assert.Equal(t, tt.expectedConfig, actualConfig)
		})
	}
}

func TestGetClusterProxyConfig(t *testing.T) {
	scheme := runtime.NewScheme()
	require.NoError(t, configv1.Install(scheme))
	clusterProxy := &configv1.Proxy{
		ObjectMeta: metav1.ObjectMeta{Name: "cluster"},
		Status: configv1.ProxyStatus{
			HTTPProxy:  "http://proxy:3128",
			HTTPSProxy: "http://proxy:3129",
			NoProxy:    ".cluster.local",
		},
	}
	client := fake.NewClientBuilder().WithScheme(scheme).WithObjects(clusterProxy).Build()
	log := zap.New(zap.UseDevMode(true))

	infrastructure.InitializeForTesting(infrastructure.Kubernetes)
	config, err := GetClusterProxyConfig(context.Background(), client, log)
	require.NoError(t, err)
	assert.Nil(t, config, "cluster proxy is only read on OpenShift")

	infrastructure.InitializeForTesting(infrastructure.OpenShiftv4)
	config, err = GetClusterProxyConfig(context.Background(), client, log)
	require.NoError(t, err)
	assert.Equal(t, &Proxy{
		HttpProxy:  ptr.To("http://proxy:3128"),
		HttpsProxy: ptr.To("http://proxy:3129"),
		NoProxy:    ptr.To(".cluster.local"),
	}, config)
}

func TestGetClusterProxyConfigNotFound(t *testing.T) {
	scheme := runtime.NewScheme()
	require.NoError(t, configv1.Install(scheme))
	client := fake.NewClientBuilder().WithScheme(scheme).Build()
	infrastructure.InitializeForTesting(infrastructure.OpenShiftv4)

	config, err := GetClusterProxyConfig(context.Background(), client, zap.New(zap.UseDevMode(true)))

	assert.NoError(t, err)
	assert.Nil(t, config)
}
