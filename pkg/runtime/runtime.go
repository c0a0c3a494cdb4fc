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

// Package runtime starts and stops workspace runtimes: it provisions the environment of a workspace, submits it to
// the cluster and waits for the workspace pods to become ready.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	routev1 "github.com/openshift/api/route/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	k8sErrors "k8s.io/apimachinery/pkg/api/errors"
	apimeta "k8s.io/apimachinery/pkg/api/meta"
	k8sruntime "k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/broker"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/dwerrors"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/environment"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/kubernetes/watch"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/metrics"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/provision"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/provision/sync"
)

// cleanupTimeout bounds the removal of objects left behind by a failed start.
const cleanupTimeout = 30 * time.Second

// Provisioner turns a converted workspace environment into one that can be submitted.
type Provisioner interface {
	Provision(ctx context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error
}

var _ Provisioner = (*provision.Pipeline)(nil)

// ActivityRecorder records when and where a user last ran a workspace.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, userID, namespace string, at time.Time) error
}

// Runtime drives workspace start and stop against one cluster.
type Runtime struct {
	Client      client.Client
	Scheme      *k8sruntime.Scheme
	Config      *config.ControllerConfig
	Provisioner Provisioner
	// Brokers creates plugin brokers. Plugins are ignored if nil.
	Brokers *broker.Factory
	// Readiness is used to wait for workspace pods. Start returns right after submission if nil.
	Readiness *watch.PodReadiness
	// Events delivers pod events to StartHandlers while the workspace is starting.
	Events        *watch.EventSource
	StartHandlers []watch.PodEventHandler
	// Activity is notified when a workspace stops. Optional.
	Activity    ActivityRecorder
	IsOpenShift bool
	Log         logr.Logger
}

// Prepare provisions env in place. If plugins are given, a broker environment resolving them is merged into env
// first; the returned result delivers the resolved plugins once the brokers report. The result is nil if no broker
// was created.
func (r *Runtime) Prepare(ctx context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity,
	plugins []broker.PluginMeta) (*broker.BrokersResult, error) {

	var result *broker.BrokersResult
	if len(plugins) > 0 && r.Brokers != nil {
		result = broker.NewBrokersResult()
		brokerEnv, err := r.Brokers.Create(ctx, broker.Deduplicate(plugins), identity, result)
		if err != nil {
			return nil, err
		}
		if err := env.Merge(brokerEnv); err != nil {
			return nil, err
		}
	}
	if err := r.Provisioner.Provision(ctx, env, identity); err != nil {
		return nil, err
	}
	return result, nil
}

// Submit seals env and creates or updates its objects in the workspace namespace, in dependency order. The first
// object that cannot be submitted aborts the submission with an InfrastructureError.
func (r *Runtime) Submit(ctx context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity) error {
	env.Seal()
	log := r.Log.WithValues(constants.WorkspaceIDLoggerKey, identity.WorkspaceID)
	api := sync.ClusterAPI{
		Client: r.Client,
		Scheme: r.Scheme,
		Logger: log,
		Ctx:    ctx,
	}
	if serviceAccount := r.Config.GetServiceAccountName(); serviceAccount != "" {
		if err := syncWorkspaceServiceAccount(serviceAccount, identity.InfrastructureNamespace, api); err != nil {
			return &dwerrors.InfrastructureError{
				Message: fmt.Sprintf("failed to set up service account %s", serviceAccount),
				Err:     dwerrors.WrapSyncError(err),
			}
		}
	}
	for _, obj := range submissionOrder(env) {
		prepareObject(obj, identity)
		if err := submitObject(obj, api); err != nil {
			return &dwerrors.InfrastructureError{
				Message: fmt.Sprintf("failed to submit %T %s", obj, obj.GetName()),
				Err:     dwerrors.WrapSyncError(err),
			}
		}
		log.V(1).Info(fmt.Sprintf("Submitted %T %s", obj, obj.GetName()))
	}
	return nil
}

// Start prepares and submits env, then waits until the workspace pods are ready or the start timeout expires.
func (r *Runtime) Start(ctx context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity,
	plugins []broker.PluginMeta) (*broker.BrokersResult, error) {

	strategy := string(r.Config.GetRoutingStrategy())
	startedAt := time.Now()
	metrics.WorkspaceStarting(strategy)
	result, err := r.start(ctx, env, identity, plugins)
	if err != nil {
		metrics.WorkspaceFailed(strategy, err)
		return nil, err
	}
	metrics.WorkspaceRunning(strategy, startedAt)
	return result, nil
}

func (r *Runtime) start(ctx context.Context, env *environment.KubernetesEnvironment, identity environment.RuntimeIdentity,
	plugins []broker.PluginMeta) (*broker.BrokersResult, error) {

	log := r.Log.WithValues(constants.WorkspaceIDLoggerKey, identity.WorkspaceID)
	result, err := r.Prepare(ctx, env, identity, plugins)
	if err != nil {
		return nil, err
	}

	if r.Events != nil && len(r.StartHandlers) > 0 {
		watcher := watch.NewContainerStartWatcher(submittedPodNames(env), nil, r.StartHandlers...)
		r.Events.Subscribe(identity.WorkspaceID, watcher)
		defer func() {
			r.Events.Unsubscribe(identity.WorkspaceID)
			watcher.Close()
		}()
	}

	if err := r.Submit(ctx, env, identity); err != nil {
		r.cleanUp(ctx, identity, log)
		return nil, err
	}
	log.Info("Submitted workspace objects")

	if r.Readiness == nil {
		return result, nil
	}
	timeout := r.Config.GetWorkspaceStartTimeout()
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := r.Readiness.Wait(waitCtx, identity.InfrastructureNamespace, workspacePodNames(env)); err != nil {
		r.cleanUp(ctx, identity, log)
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("workspace %s did not start within %s: %w", identity.WorkspaceID, timeout, err)
		}
		return nil, fmt.Errorf("workspace %s failed to start: %w", identity.WorkspaceID, err)
	}
	log.Info("Workspace pods are ready")
	return result, nil
}

// Stop deletes every object labeled with the workspace id. Persistent volume claims are kept as they may be shared
// with other workspaces.
func (r *Runtime) Stop(ctx context.Context, identity environment.RuntimeIdentity) error {
	if err := r.deleteWorkspaceObjects(ctx, identity); err != nil {
		return err
	}
	r.Log.Info("Stopped workspace", constants.WorkspaceIDLoggerKey, identity.WorkspaceID)
	if r.Activity != nil && identity.OwnerID != "" {
		if err := r.Activity.RecordActivity(ctx, identity.OwnerID, identity.InfrastructureNamespace, time.Now()); err != nil {
			r.Log.Error(err, "Failed to record workspace activity", constants.WorkspaceIDLoggerKey, identity.WorkspaceID)
		}
	}
	return nil
}

// cleanUp removes what a failed start left on the cluster. It still runs if ctx was cancelled.
func (r *Runtime) cleanUp(ctx context.Context, identity environment.RuntimeIdentity, log logr.Logger) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := r.deleteWorkspaceObjects(cleanupCtx, identity); err != nil {
		log.Error(err, "Failed to clean up objects of workspace that failed to start")
		return
	}
	log.Info("Cleaned up objects of workspace that failed to start")
}

func (r *Runtime) deleteWorkspaceObjects(ctx context.Context, identity environment.RuntimeIdentity) error {
	lists := []client.ObjectList{
		&networkingv1.IngressList{},
		&corev1.ServiceList{},
		&corev1.PodList{},
		&corev1.ConfigMapList{},
		&corev1.SecretList{},
	}
	if r.IsOpenShift {
		lists = append([]client.ObjectList{&routev1.RouteList{}}, lists...)
	}
	var errs []error
	for _, list := range lists {
		err := r.Client.List(ctx, list,
			client.InNamespace(identity.InfrastructureNamespace),
			client.MatchingLabels{constants.WorkspaceIDLabel: identity.WorkspaceID})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		err = apimeta.EachListItem(list, func(item k8sruntime.Object) error {
			obj := item.(client.Object)
			if err := r.Client.Delete(ctx, obj); err != nil && !k8sErrors.IsNotFound(err) {
				return err
			}
			return nil
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &dwerrors.InfrastructureError{Message: fmt.Sprintf("failed to stop workspace %s", identity.WorkspaceID), Err: errors.Join(errs...)}
	}
	return nil
}

// submissionOrder lists objects so that everything an object references is submitted before it.
func submissionOrder(env *environment.KubernetesEnvironment) []client.Object {
	var objs []client.Object
	for _, secret := range env.Secrets() {
		objs = append(objs, secret)
	}
	for _, configMap := range env.ConfigMaps() {
		objs = append(objs, configMap)
	}
	for _, pvc := range env.PersistentVolumeClaims() {
		objs = append(objs, pvc)
	}
	for _, pod := range env.Pods() {
		objs = append(objs, pod)
	}
	for _, service := range env.Services() {
		objs = append(objs, service)
	}
	for _, ingress := range env.Ingresses() {
		objs = append(objs, ingress)
	}
	for _, route := range env.Routes() {
		objs = append(objs, route)
	}
	for _, configMap := range env.GatewayConfigs() {
		objs = append(objs, configMap)
	}
	return objs
}

func prepareObject(obj client.Object, identity environment.RuntimeIdentity) {
	obj.SetNamespace(identity.InfrastructureNamespace)
	labels := obj.GetLabels()
	if labels == nil {
		labels = map[string]string{}
	}
	labels[constants.WorkspaceIDLabel] = identity.WorkspaceID
	if identity.OwnerID != "" && len(validation.IsValidLabelValue(identity.OwnerID)) == 0 {
		labels[constants.WorkspaceOwnerLabel] = identity.OwnerID
	}
	obj.SetLabels(labels)
}

// submitObject syncs obj until the cluster accepted it. Objects that had to be recreated, and objects changed
// concurrently, are synced again.
func submitObject(obj client.Object, api sync.ClusterAPI) error {
	return retry.OnError(retry.DefaultRetry, isRetriable, func() error {
		_, err := sync.SyncObjectWithCluster(obj, api)
		var notInSync *sync.NotInSyncError
		if errors.As(err, &notInSync) && !isRetriable(err) {
			return nil
		}
		return err
	})
}

func isRetriable(err error) bool {
	var notInSync *sync.NotInSyncError
	if !errors.As(err, &notInSync) {
		return false
	}
	return notInSync.Reason == sync.NeedRetryReason || notInSync.Reason == sync.DeletedObjectReason
}

// submittedPodNames returns the cluster names of all pods, brokers included. Pods are keyed in env by the names
// they had before unique names were provisioned.
func submittedPodNames(env *environment.KubernetesEnvironment) []string {
	var names []string
	for _, pod := range env.Pods() {
		names = append(names, pod.Name)
	}
	return names
}

// workspacePodNames returns the pods expected to keep running. Broker pods terminate once plugins are resolved.
func workspacePodNames(env *environment.KubernetesEnvironment) []string {
	var names []string
	for _, pod := range env.Pods() {
		if pod.Labels[constants.BrokerLabel] == "true" {
			continue
		}
		names = append(names, pod.Name)
	}
	return names
}
