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
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/operator-framework/operator-lib/prune"
	"github.com/robfig/cron/v3"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/manager"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/metrics"
)

// Pruner periodically deletes broker pods that completed more than the configured retention time ago.
type Pruner struct {
	Client client.Client
	Config *config.ControllerConfig
	Log    logr.Logger

	cron *cron.Cron
}

var _ manager.LeaderElectionRunnable = (*Pruner)(nil)

func (p *Pruner) NeedLeaderElection() bool {
	return true
}

// Start schedules pruning and blocks until ctx is done.
func (p *Pruner) Start(ctx context.Context) error {
	log := p.Log.WithName("cron")
	schedule := p.Config.GetBrokerPruneSchedule()

	p.cron = cron.New()
	_, err := p.cron.AddFunc(schedule, func() {
		taskLog := p.Log.WithName("cronTask")
		taskLog.Info("Starting broker pod pruning job")
		if _, err := p.pruneBrokerPods(ctx, p.Config.GetBrokerRetention()); err != nil {
			taskLog.Error(err, "Failed to prune broker pods")
		}
		taskLog.Info("Broker pod pruning job finished")
	})
	if err != nil {
		return fmt.Errorf("invalid broker prune schedule %q: %w", schedule, err)
	}
	log.Info("Starting cron scheduler", "schedule", schedule)
	p.cron.Start()

	<-ctx.Done()
	stopCtx := p.cron.Stop()
	<-stopCtx.Done()
	log.Info("Cron scheduler stopped")
	return nil
}

func (p *Pruner) pruneBrokerPods(ctx context.Context, retainTime time.Duration) ([]client.Object, error) {
	log := p.Log.WithName("pruner")

	pruner, err := prune.NewPruner(p.Client, corev1.SchemeGroupVersion.WithKind("Pod"), p.pruneStrategy(retainTime, log),
		prune.WithLabels(map[string]string{constants.BrokerLabel: "true"}))
	if err != nil {
		return nil, fmt.Errorf("failed to create pruner: %w", err)
	}

	deletedObjects, err := pruner.Prune(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prune objects: %w", err)
	}
	metrics.BrokerPodsPruned(len(deletedObjects))
	log.Info(fmt.Sprintf("Pruned %d broker pods", len(deletedObjects)))
	return deletedObjects, nil
}

func (p *Pruner) pruneStrategy(retainTime time.Duration, log logr.Logger) prune.StrategyFunc {
	return func(_ context.Context, objs []client.Object) ([]client.Object, error) {
		filteredObjs := filterCompletedBefore(objs, time.Now().Add(-retainTime), log)
		log.Info(fmt.Sprintf("Found %d broker pods to prune", len(filteredObjs)))
		return filteredObjs, nil
	}
}

// filterCompletedBefore returns the pods that succeeded and whose containers all terminated before cutoff. Failed
// brokers are kept for inspection.
func filterCompletedBefore(objs []client.Object, cutoff time.Time, log logr.Logger) []client.Object {
	var filteredObjs []client.Object
	for _, obj := range objs {
		pod, ok := obj.(*corev1.Pod)
		if !ok {
			log.Error(nil, fmt.Sprintf("failed to convert %v to Pod", obj))
			continue
		}
		if pod.Status.Phase != corev1.PodSucceeded {
			continue
		}
		finishedAt := completionTime(pod)
		if finishedAt.IsZero() || finishedAt.After(cutoff) {
			log.V(1).Info(fmt.Sprintf("Skipping broker pod '%s/%s': completed recently", pod.Namespace, pod.Name))
			continue
		}
		filteredObjs = append(filteredObjs, pod)
	}
	return filteredObjs
}

func completionTime(pod *corev1.Pod) time.Time {
	var latest time.Time
	for _, status := range pod.Status.ContainerStatuses {
		if status.State.Terminated != nil && status.State.Terminated.FinishedAt.After(latest) {
			latest = status.State.Terminated.FinishedAt.Time
		}
	}
	if latest.IsZero() && pod.Status.StartTime != nil {
		latest = pod.Status.StartTime.Time
	}
	return latest
}
