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

package asyncstorage

import (
	"context"
	"errors"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	k8sErrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
)

const (
	userID    = "user-1"
	namespace = "user1-che"
)

type pagedUsers struct {
	users []User
	calls int
}

func (p *pagedUsers) ListUsers(_ context.Context, offset, limit int) ([]User, bool, error) {
	p.calls++
	if offset >= len(p.users) {
		return nil, false, nil
	}
	end := offset + limit
	if end > len(p.users) {
		end = len(p.users)
	}
	return p.users[offset:end], end < len(p.users), nil
}

type recordingPreferences struct {
	prefs map[string]map[string]string
	calls int
	err   error
}

func (r *recordingPreferences) GetPreferences(_ context.Context, id string) (map[string]string, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.prefs[id], nil
}

type staticRuntimes map[string][]string

func (s staticRuntimes) InProgress(_ context.Context, id string) ([]string, error) {
	return s[id], nil
}

var _ = Describe("PodReaper", func() {
	var (
		ctx         context.Context
		now         time.Time
		deletes     int
		k8sClient   client.Client
		preferences *recordingPreferences
		runtimes    staticRuntimes
		users       *pagedUsers
		configData  map[string]string
	)

	asyncStoragePod := func(ns string) *corev1.Pod {
		return &corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: constants.AsyncStoragePodName, Namespace: ns}}
	}

	newReaper := func() *PodReaper {
		return &PodReaper{
			Client:      k8sClient,
			Config:      config.NewControllerConfig(configData),
			Users:       users,
			Preferences: preferences,
			Runtimes:    runtimes,
			Log:         logf.Log.WithName("asyncstorage"),
			Now:         func() time.Time { return now },
			PageSize:    1,
		}
	}

	podExists := func(ns string) bool {
		err := k8sClient.Get(ctx, types.NamespacedName{Name: constants.AsyncStoragePodName, Namespace: ns}, &corev1.Pod{})
		if k8sErrors.IsNotFound(err) {
			return false
		}
		Expect(err).NotTo(HaveOccurred())
		return true
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Unix(1_700_000_000, 0)
		deletes = 0
		k8sClient = fake.NewClientBuilder().
			WithObjects(asyncStoragePod(namespace)).
			WithInterceptorFuncs(interceptor.Funcs{
				Delete: func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.DeleteOption) error {
					deletes++
					return c.Delete(ctx, obj, opts...)
				},
			}).
			Build()
		preferences = &recordingPreferences{prefs: map[string]map[string]string{
			userID: {
				constants.LastActivityTimePreference:    strconv.FormatInt(now.Add(-3*time.Hour).Unix(), 10),
				constants.LastActiveNamespacePreference: namespace,
			},
		}}
		runtimes = staticRuntimes{}
		users = &pagedUsers{users: []User{{ID: userID, Name: "user1"}}}
		configData = map[string]string{
			"che.infra.kubernetes.async.storage.shutdown_timeout": "1h",
		}
	})

	It("deletes the pod of an idle user", func() {
		Expect(newReaper().Check(ctx)).To(Succeed())

		Expect(deletes).To(Equal(1))
		Expect(podExists(namespace)).To(BeFalse())
		Expect(preferences.calls).To(Equal(1))
	})

	It("keeps the pod of a recently active user", func() {
		preferences.prefs[userID][constants.LastActivityTimePreference] = strconv.FormatInt(now.Add(-10*time.Minute).Unix(), 10)

		Expect(newReaper().Check(ctx)).To(Succeed())

		Expect(deletes).To(BeZero())
		Expect(podExists(namespace)).To(BeTrue())
	})

	It("keeps the pod while a workspace is in progress", func() {
		runtimes[userID] = []string{"workspace123"}

		Expect(newReaper().Check(ctx)).To(Succeed())

		Expect(deletes).To(BeZero())
		Expect(podExists(namespace)).To(BeTrue())
	})

	DescribeTable("does nothing without activity records",
		func(prefs map[string]string) {
			preferences.prefs[userID] = prefs

			Expect(newReaper().Check(ctx)).To(Succeed())

			Expect(deletes).To(BeZero())
		},
		Entry("no preferences", map[string]string(nil)),
		Entry("no last activity", map[string]string{constants.LastActiveNamespacePreference: namespace}),
		Entry("malformed last activity", map[string]string{
			constants.LastActivityTimePreference:    "yesterday",
			constants.LastActiveNamespacePreference: namespace,
		}),
		Entry("no namespace", map[string]string{constants.LastActivityTimePreference: "1"}),
	)

	DescribeTable("is disabled by configuration without reading preferences",
		func(key, value string) {
			configData[key] = value

			Expect(newReaper().Check(ctx)).To(Succeed())

			Expect(preferences.calls).To(BeZero())
			Expect(users.calls).To(BeZero())
			Expect(deletes).To(BeZero())
		},
		Entry("per-workspace storage", "che.infra.kubernetes.pvc.strategy", "per-workspace"),
		Entry("user defined namespaces", "che.infra.kubernetes.namespace.allow_user_defined", "true"),
		Entry("namespace not per user", "che.infra.kubernetes.namespace.default", "che-workspaces"),
		Entry("several runtimes per user", "che.limits.user.workspaces.run.count", "2"),
	)

	It("treats a missing pod as already deleted", func() {
		preferences.prefs[userID][constants.LastActiveNamespacePreference] = "other-che"

		Expect(newReaper().Check(ctx)).To(Succeed())

		Expect(deletes).To(BeZero())
		Expect(podExists(namespace)).To(BeTrue())
	})

	It("checks every page of users and aggregates errors", func() {
		users.users = append(users.users, User{ID: "user-2"}, User{ID: "user-3"})
		Expect(k8sClient.Create(ctx, asyncStoragePod("user3-che"))).To(Succeed())
		preferences.prefs["user-3"] = map[string]string{
			constants.LastActivityTimePreference:    "1",
			constants.LastActiveNamespacePreference: "user3-che",
		}
		k8sClient = interceptor.NewClient(k8sClient.(client.WithWatch), interceptor.Funcs{
			Get: func(ctx context.Context, c client.WithWatch, key client.ObjectKey, obj client.Object, opts ...client.GetOption) error {
				if key.Namespace == namespace {
					return errors.New("connection refused")
				}
				return c.Get(ctx, key, obj, opts...)
			},
		})

		err := newReaper().Check(ctx)

		Expect(err).To(MatchError(ContainSubstring("connection refused")))
		Expect(preferences.calls).To(Equal(3))
		Expect(podExists("user3-che")).To(BeFalse())
	})

	It("reports preference failures", func() {
		preferences.err = errors.New("store unavailable")

		Expect(newReaper().Check(ctx)).To(MatchError(ContainSubstring("store unavailable")))
		Expect(deletes).To(BeZero())
	})

	It("rejects an invalid schedule", func() {
		configData["che.infra.kubernetes.async.storage.shutdown_check_schedule"] = "every now and then"

		Expect(newReaper().Start(ctx)).To(MatchError(ContainSubstring("invalid async storage check schedule")))
	})

	It("stops when its context is done", func() {
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error)
		go func() { done <- newReaper().Start(runCtx) }()

		cancel()

		Eventually(done).Should(Receive(BeNil()))
	})
})
