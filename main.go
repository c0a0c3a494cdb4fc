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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"

	configv1 "github.com/openshift/api/config/v1"
	routev1 "github.com/openshift/api/route/v1"
	k8sruntime "k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	crclient "sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/manager"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/che-incubator/che-workspace-infrastructure/internal/userstore"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/broker"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/infrastructure"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/kubernetes/watch"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/provision"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/provision/storage/asyncstorage"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/routing"
	wsruntime "github.com/che-incubator/che-workspace-infrastructure/pkg/runtime"
)

var (
	scheme   = k8sruntime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

func init() {
	// Figure out if we're running on OpenShift
	err := infrastructure.Initialize()
	if err != nil {
		setupLog.Error(err, "could not determine cluster type")
		os.Exit(1)
	}

	utilruntime.Must(clientgoscheme.AddToScheme(scheme))

	if infrastructure.IsOpenShift() {
		utilruntime.Must(routev1.Install(scheme))
		utilruntime.Must(configv1.Install(scheme))
	}
}

func main() {
	var metricsAddr string
	var probeAddr string
	var enableLeaderElection bool
	flag.StringVar(&metricsAddr, "metrics-bind-address", ":8080", "The address the metric endpoint binds to.")
	flag.StringVar(&probeAddr, "health-probe-bind-address", ":6789", "The address the probe endpoint binds to.")
	flag.BoolVar(&enableLeaderElection, "leader-elect", false,
		"Enable leader election for the controller. "+
			"Enabling this will ensure there is only one active instance running scheduled cleanups.")
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseDevMode(config.GetDevModeEnabled())))

	setupLog.Info(fmt.Sprintf("Go Version: %s", runtime.Version()))
	setupLog.Info(fmt.Sprintf("Go OS/Arch: %s/%s", runtime.GOOS, runtime.GOARCH))

	restConfig := ctrl.GetConfigOrDie()
	mgr, err := ctrl.NewManager(restConfig, ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: metricsAddr},
		HealthProbeBindAddress: probeAddr,
		LeaderElection:         enableLeaderElection,
		LeaderElectionID:       "3f1c2a5e.che.eclipse.org",
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		os.Exit(1)
	}

	namespace := controllerNamespace()
	ctx := ctrl.SetupSignalHandler()
	cfg, err := setupControllerConfig(ctx, mgr, restConfig, namespace)
	if err != nil {
		setupLog.Error(err, "unable to read controller configuration")
		os.Exit(1)
	}

	kubeClient, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		setupLog.Error(err, "unable to create kubernetes client")
		os.Exit(1)
	}
	store := &userstore.Store{Client: mgr.GetClient(), Namespace: namespace}
	eventSource := watch.NewEventSource(kubeClient, os.Getenv(infrastructure.WatchNamespaceEnvVar), ctrl.Log.WithName("pod-events"))

	// The runtime is built at startup so that invalid routing configuration is reported before anything is served.
	if _, err := newRuntime(mgr, cfg, store, kubeClient, eventSource); err != nil {
		setupLog.Error(err, "invalid workspace runtime configuration")
		os.Exit(1)
	}

	runnables := map[string]manager.Runnable{
		"pod event source": manager.RunnableFunc(eventSource.Run),
		"broker pruner":    &broker.Pruner{
			Client: mgr.GetClient(),
			Config: cfg,
			Log:    ctrl.Log.WithName("broker-pruner"),
		},
		"async storage reaper": &asyncstorage.PodReaper{
			Client:      mgr.GetClient(),
			Config:      cfg,
			Users:       store,
			Preferences: store,
			Runtimes:    &userstore.PodRuntimeTracker{Client: mgr.GetClient()},
			Log:         ctrl.Log.WithName("async-storage-reaper"),
		},
	}
	for name, runnable := range runnables {
		if err := mgr.Add(runnable); err != nil {
			setupLog.Error(err, "unable to add runnable", "runnable", name)
			os.Exit(1)
		}
	}

	// Setup health check
	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "Unable to set up health check")
		os.Exit(1)
	}

	// Setup ready check
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "Unable to set up ready check")
		os.Exit(1)
	}

	setupLog.Info("starting manager")
	if err := mgr.Start(ctx); err != nil {
		setupLog.Error(err, "problem running manager")
		os.Exit(1)
	}
}

func controllerNamespace() string {
	if namespace := config.GetConfigMapNamespace(); namespace != "" {
		return namespace
	}
	namespace, err := infrastructure.GetNamespace()
	if err != nil {
		setupLog.Error(err, "unable to determine controller namespace")
		os.Exit(1)
	}
	return namespace
}

// setupControllerConfig reads the configuration before the manager cache is started, then keeps it up to date.
func setupControllerConfig(ctx context.Context, mgr ctrl.Manager, restConfig *rest.Config, namespace string) (*config.ControllerConfig, error) {
	nonCachedClient, err := crclient.New(restConfig, crclient.Options{Scheme: mgr.GetScheme()})
	if err != nil {
		return nil, err
	}
	cfg, err := config.SetupControllerConfig(ctx, nonCachedClient, namespace)
	if err != nil {
		return nil, err
	}
	if err := config.WatchControllerConfig(ctx, mgr.GetCache(), cfg, namespace); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRuntime(mgr ctrl.Manager, cfg *config.ControllerConfig, store *userstore.Store, kubeClient kubernetes.Interface,
	events *watch.EventSource) (*wsruntime.Runtime, error) {

	isOpenShift := infrastructure.IsOpenShift()
	exposer, err := routing.NewExposer(routing.OptionsFromConfig(cfg, isOpenShift))
	if err != nil {
		return nil, err
	}
	provisioner, err := provision.NewEnvironmentProvisioner(provision.Dependencies{
		Config:      cfg,
		Exposer:     exposer,
		SSHKeys:     store,
		Preferences: store,
		IsOpenShift: isOpenShift,
		Log:         ctrl.Log.WithName("provisioner"),
	})
	if err != nil {
		return nil, err
	}
	return &wsruntime.Runtime{
		Client:      mgr.GetClient(),
		Scheme:      mgr.GetScheme(),
		Config:      cfg,
		Provisioner: provisioner,
		Brokers:     &broker.Factory{
			Config:       cfg,
			MachineToken: broker.RandomTokenSource{},
		},
		Readiness:   &watch.PodReadiness{Client: kubeClient},
		Events:      events,
		Activity:    store,
		IsOpenShift: isOpenShift,
		Log:         ctrl.Log.WithName("runtime"),
	}, nil
}
