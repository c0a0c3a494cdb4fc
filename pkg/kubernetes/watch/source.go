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
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"
)

const defaultRetryInterval = 5 * time.Second

// EventSource watches pod events of one namespace and publishes them to its subscribers. The watch is re-established
// whenever the server closes it.
type EventSource struct {
	client    kubernetes.Interface
	namespace string
	log       logr.Logger
	// RetryInterval is the delay before re-establishing a watch that could not be opened
	RetryInterval time.Duration

	mu          sync.RWMutex
	subscribers map[string]PodEventHandler
}

func NewEventSource(client kubernetes.Interface, namespace string, log logr.Logger) *EventSource {
	return &EventSource{
		client:        client,
		namespace:     namespace,
		log:           log.WithValues("namespace", namespace),
		RetryInterval: defaultRetryInterval,
		subscribers:   map[string]PodEventHandler{},
	}
}

// Subscribe registers handler under id, replacing any handler registered with the same id.
func (s *EventSource) Subscribe(id string, handler PodEventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[id] = handler
}

func (s *EventSource) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, id)
}

func (s *EventSource) SubscriberIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Run watches events until ctx is done.
func (s *EventSource) Run(ctx context.Context) error {
	resourceVersion := ""
	for {
		if ctx.Err() != nil {
			return nil
		}
		watcher, err := s.client.CoreV1().Events(s.namespace).Watch(ctx, metav1.ListOptions{
			FieldSelector:   fields.OneTermEqualSelector("involvedObject.kind", "Pod").String(),
			ResourceVersion: resourceVersion,
		})
		if err != nil {
			s.log.Error(err, "Failed to watch pod events")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.RetryInterval):
			}
			resourceVersion = ""
			continue
		}
		resourceVersion = s.consume(ctx, watcher, resourceVersion)
		watcher.Stop()
	}
}

// consume publishes events until the watch is closed or fails, returning the last seen resource version.
func (s *EventSource) consume(ctx context.Context, watcher watch.Interface, resourceVersion string) string {
	for {
		select {
		case <-ctx.Done():
			return resourceVersion
		case result, ok := <-watcher.ResultChan():
			if !ok {
				s.log.V(1).Info("Pod event watch closed, re-establishing")
				return resourceVersion
			}
			switch result.Type {
			case watch.Added, watch.Modified:
				event, ok := result.Object.(*corev1.Event)
				if !ok {
					continue
				}
				resourceVersion = event.ResourceVersion
				if podEvent, ok := PodEventFromEvent(event); ok {
					s.publish(podEvent)
				}
			case watch.Error:
				s.log.Info(fmt.Sprintf("Pod event watch failed: %v", result.Object))
				// The resource version may be too old; start over from the current state.
				return ""
			}
		}
	}
}

func (s *EventSource) publish(event PodEvent) {
	s.mu.RLock()
	handlers := make([]PodEventHandler, 0, len(s.subscribers))
	for _, handler := range s.subscribers {
		handlers = append(handlers, handler)
	}
	s.mu.RUnlock()
	for _, handler := range handlers {
		handler.Handle(event)
	}
}
