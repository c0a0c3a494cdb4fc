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

package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

func podEvent(name, pod, container, reason string) *corev1.Event {
	return &corev1.Event{
		ObjectMeta:     metav1.ObjectMeta{Name: name, Namespace: "che", ResourceVersion: name},
		InvolvedObject: corev1.ObjectReference{Kind: "Pod", Name: pod, FieldPath: "spec.containers{" + container + "}"},
		Reason:         reason,
	}
}

// fakeWatches hands out a new buffered fake watch for every watch request.
type fakeWatches struct {
	mu       sync.Mutex
	watchers chan *watch.FakeWatcher
	options  []string
}

func newFakeWatches(client *fake.Clientset) *fakeWatches {
	w := &fakeWatches{watchers: make(chan *watch.FakeWatcher, 10)}
	client.PrependWatchReactor("events", func(action k8stesting.Action) (bool, watch.Interface, error) {
		restrictions := action.(k8stesting.WatchAction).GetWatchRestrictions()
		w.mu.Lock()
		w.options = append(w.options, restrictions.Fields.String())
		w.mu.Unlock()
		watcher := watch.NewFakeWithChanSize(10, false)
		w.watchers <- watcher
		return true, watcher, nil
	})
	return w
}

func (w *fakeWatches) next(t *testing.T) *watch.FakeWatcher {
	select {
	case watcher := <-w.watchers:
		return watcher
	case <-time.After(5 * time.Second):
		require.FailNow(t, "watch was not established")
		return nil
	}
}

func TestEventSourcePublishesPodEvents(t *testing.T) {
	// Given
	client := fake.NewSimpleClientset()
	watches := newFakeWatches(client)
	source := NewEventSource(client, "che", logr.Discard())
	received := make(chan PodEvent, 10)
	source.Subscribe("test", PodEventHandlerFunc(func(event PodEvent) { received <- event }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- source.Run(ctx) }()

	// When
	watcher := watches.next(t)
	watcher.Add(podEvent("e1", "ws-pod", "theia", "Started"))
	watcher.Delete(podEvent("e2", "ws-pod", "theia", "Killing"))
	watcher.Modify(podEvent("e3", "ws-pod", "maven", "Started"))

	// Then
	assert.Equal(t, "theia", (<-received).ContainerName)
	assert.Equal(t, "maven", (<-received).ContainerName)
	assert.Contains(t, watches.options[0], "involvedObject.kind=Pod")

	cancel()
	assert.NoError(t, <-done)
}

func TestEventSourceReestablishesClosedWatch(t *testing.T) {
	// Given
	client := fake.NewSimpleClientset()
	watches := newFakeWatches(client)
	source := NewEventSource(client, "che", logr.Discard())
	received := make(chan PodEvent, 10)
	source.Subscribe("test", PodEventHandlerFunc(func(event PodEvent) { received <- event }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = source.Run(ctx) }()

	// When
	first := watches.next(t)
	first.Add(podEvent("e1", "ws-pod", "theia", "Started"))
	<-received
	first.Stop()

	// Then
	second := watches.next(t)
	second.Add(podEvent("e2", "ws-pod", "maven", "Started"))
	assert.Equal(t, "maven", (<-received).ContainerName)
}

func TestEventSourceSubscriptions(t *testing.T) {
	source := NewEventSource(fake.NewSimpleClientset(), "che", logr.Discard())
	var calls int
	handler := PodEventHandlerFunc(func(PodEvent) { calls++ })

	source.Subscribe("b", handler)
	source.Subscribe("a", handler)
	source.Subscribe("a", handler)
	assert.Equal(t, []string{"a", "b"}, source.SubscriberIDs())

	source.publish(PodEvent{PodName: "ws-pod"})
	assert.Equal(t, 2, calls)

	source.Unsubscribe("a")
	source.Unsubscribe("missing")
	assert.Equal(t, []string{"b"}, source.SubscriberIDs())
}
