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

package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
)

func brokerPod(name string, phase corev1.PodPhase, finishedAgo time.Duration) *corev1.Pod {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "user1-che"},
		Status:     corev1.PodStatus{Phase: phase},
	}
	if finishedAgo > 0 {
		pod.Status.ContainerStatuses = []corev1.ContainerStatus{
			{
				Name: "broker",
				State: corev1.ContainerState{
					Terminated: &corev1.ContainerStateTerminated{
						FinishedAt: metav1.NewTime(time.Now().Add(-finishedAgo)),
					},
				},
			},
		}
	}
	return pod
}

func TestFilterCompletedBefore(t *testing.T) {
	// Given
	old := brokerPod("old", corev1.PodSucceeded, 2*time.Hour)
	recent := brokerPod("recent", corev1.PodSucceeded, 10*time.Minute)
	failed := brokerPod("failed", corev1.PodFailed, 2*time.Hour)
	running := brokerPod("running", corev1.PodRunning, 0)
	notPod := &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: "cm"}}

	// When
	result := filterCompletedBefore([]client.Object{old, recent, failed, running, notPod},
		time.Now().Add(-time.Hour), zap.New(zap.UseDevMode(true)))

	// Then
	assert.Equal(t, []client.Object{old}, result)
}

func TestPrunerRejectsInvalidSchedule(t *testing.T) {
	pruner := &Pruner{
		Client: fake.NewClientBuilder().Build(),
		Config: config.NewControllerConfig(map[string]string{"che.workspace.plugin_broker.prune_schedule": "every now and then"}),
		Log:    zap.New(zap.UseDevMode(true)),
	}

	err := pruner.Start(context.Background())

	assert.ErrorContains(t, err, "invalid broker prune schedule")
}

func TestPrunerStopsWithContext(t *testing.T) {
	pruner := &Pruner{
		Client: fake.NewClientBuilder().Build(),
		Config: config.NewControllerConfig(nil),
		Log:    zap.New(zap.UseDevMode(true)),
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)

	go func() { done <- pruner.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pruner did not stop")
	}
	assert.True(t, pruner.NeedLeaderElection())
}
