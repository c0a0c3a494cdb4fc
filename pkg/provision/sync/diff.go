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

package sync

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	routev1 "github.com/openshift/api/route/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	crclient "sigs.k8s.io/controller-runtime/pkg/client"
)

type diffFunc func(spec crclient.Object, cluster crclient.Object) (delete, update bool)

var diffFuncs = map[reflect.Type]diffFunc{
	reflect.TypeOf(corev1.Pod{}):            allDiffFuncs(podDiffFunc, labelsAndAnnotationsDiffFunc),
	reflect.TypeOf(corev1.Service{}):        allDiffFuncs(serviceDiffFunc, labelsAndAnnotationsDiffFunc),
	reflect.TypeOf(corev1.ConfigMap{}):      allDiffFuncs(configMapDiffFunc, labelsAndAnnotationsDiffFunc),
	reflect.TypeOf(corev1.Secret{}):         allDiffFuncs(secretDiffFunc, labelsAndAnnotationsDiffFunc),
	reflect.TypeOf(networkingv1.Ingress{}):  allDiffFuncs(basicSpecDiffFunc(ingressSpec, cmpopts.EquateEmpty()), labelsAndAnnotationsDiffFunc),
	reflect.TypeOf(routev1.Route{}):         allDiffFuncs(basicSpecDiffFunc(routeSpec, cmpopts.EquateEmpty()), labelsAndAnnotationsDiffFunc),
	reflect.TypeOf(corev1.ServiceAccount{}): labelsAndAnnotationsDiffFunc,
	reflect.TypeOf(rbacv1.Role{}):           allDiffFuncs(basicSpecDiffFunc(roleRules, cmpopts.EquateEmpty()), labelsAndAnnotationsDiffFunc),
	reflect.TypeOf(rbacv1.RoleBinding{}):    allDiffFuncs(roleBindingDiffFunc, labelsAndAnnotationsDiffFunc),
}

func basicSpecDiffFunc(specOf func(crclient.Object) interface{}, diffOpt ...cmp.Option) diffFunc {
	return func(spec, cluster crclient.Object) (delete, update bool) {
		return false, !cmp.Equal(specOf(spec), specOf(cluster), diffOpt...)
	}
}

func labelsAndAnnotationsDiffFunc(spec, cluster crclient.Object) (delete, update bool) {
	clusterAnnotations := cluster.GetAnnotations()
	for k, v := range spec.GetAnnotations() {
		if clusterAnnotations[k] != v {
			return false, true
		}
	}
	clusterLabels := cluster.GetLabels()
	for k, v := range spec.GetLabels() {
		if clusterLabels[k] != v {
			return false, true
		}
	}
	return false, false
}

func allDiffFuncs(funcs ...diffFunc) diffFunc {
	return func(spec, cluster crclient.Object) (delete, update bool) {
		for _, df := range funcs {
			shouldDelete, shouldUpdate := df(spec, cluster)
			if shouldDelete || shouldUpdate {
				return shouldDelete, shouldUpdate
			}
		}
		return false, false
	}
}

// Pod specs are mostly immutable; any change to containers requires recreating the pod.
func podDiffFunc(spec, cluster crclient.Object) (delete, update bool) {
	specPod := spec.(*corev1.Pod)
	clusterPod := cluster.(*corev1.Pod)
	if !cmp.Equal(containerImages(specPod.Spec.InitContainers), containerImages(clusterPod.Spec.InitContainers), cmpopts.EquateEmpty()) ||
		!cmp.Equal(containerImages(specPod.Spec.Containers), containerImages(clusterPod.Spec.Containers), cmpopts.EquateEmpty()) {
		return true, false
	}
	return false, false
}

func containerImages(containers []corev1.Container) map[string]string {
	images := map[string]string{}
	for _, c := range containers {
		images[c.Name] = c.Image
	}
	return images
}

func serviceDiffFunc(spec, cluster crclient.Object) (delete, update bool) {
	specService := spec.(*corev1.Service)
	clusterService := cluster.(*corev1.Service)
	if !cmp.Equal(specService.Spec.Selector, clusterService.Spec.Selector, cmpopts.EquateEmpty()) {
		return false, true
	}
	if !cmp.Equal(specService.Spec.Ports, clusterService.Spec.Ports, cmpopts.IgnoreFields(corev1.ServicePort{}, "NodePort"), cmpopts.EquateEmpty()) {
		return false, true
	}
	return false, false
}

func configMapDiffFunc(spec, cluster crclient.Object) (delete, update bool) {
	specCM := spec.(*corev1.ConfigMap)
	clusterCM := cluster.(*corev1.ConfigMap)
	return false, !cmp.Equal(specCM.Data, clusterCM.Data, cmpopts.EquateEmpty())
}

func secretDiffFunc(spec, cluster crclient.Object) (delete, update bool) {
	specSecret := spec.(*corev1.Secret)
	clusterSecret := cluster.(*corev1.Secret)
	if specSecret.Type != "" && specSecret.Type != clusterSecret.Type {
		// Secret type is immutable
		return true, false
	}
	return false, !cmp.Equal(secretData(specSecret), secretData(clusterSecret), cmpopts.EquateEmpty())
}

// secretData merges StringData into Data the way the API server does on write.
func secretData(secret *corev1.Secret) map[string][]byte {
	data := map[string][]byte{}
	for k, v := range secret.Data {
		data[k] = v
	}
	for k, v := range secret.StringData {
		data[k] = []byte(v)
	}
	return data
}

func ingressSpec(obj crclient.Object) interface{} {
	return obj.(*networkingv1.Ingress).Spec
}

func routeSpec(obj crclient.Object) interface{} {
	spec := obj.(*routev1.Route).Spec
	return routev1.RouteSpec{
		Host: spec.Host,
		Path: spec.Path,
		To:   spec.To,
		Port: spec.Port,
		TLS:  spec.TLS,
	}
}

func roleRules(obj crclient.Object) interface{} {
	return obj.(*rbacv1.Role).Rules
}

// roleRef is immutable; bindings that refer to another role are recreated.
func roleBindingDiffFunc(spec, cluster crclient.Object) (delete, update bool) {
	specBinding := spec.(*rbacv1.RoleBinding)
	clusterBinding := cluster.(*rbacv1.RoleBinding)
	if !cmp.Equal(specBinding.RoleRef, clusterBinding.RoleRef) {
		return true, false
	}
	return false, !cmp.Equal(specBinding.Subjects, clusterBinding.Subjects, cmpopts.EquateEmpty())
}
