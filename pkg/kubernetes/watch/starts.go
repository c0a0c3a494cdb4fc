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
	"sync"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/metrics"
)

// Executor runs handler invocations outside of event ingestion.
type Executor interface {
	Execute(task func())
}

type ExecutorFunc func(task func())

func (f ExecutorFunc) Execute(task func()) {
	f(task)
}

// GoroutineExecutor runs every task in a new goroutine.
var GoroutineExecutor = ExecutorFunc(func(task func()) {
	go task()
})

type containerKey struct {
	pod       string
	container string
}

// ContainerStartWatcher dispatches the first "Started" event of every container of a fixed set of pods. A watcher
// is open until Close is called; closed watchers ignore every event.
type ContainerStartWatcher struct {
	mu         sync.Mutex
	podNames   map[string]struct{}
	handlers   []PodEventHandler
	executor   Executor
	dispatched map[containerKey]struct{}
	closed     bool
}

var _ PodEventHandler = (*ContainerStartWatcher)(nil)

// NewContainerStartWatcher creates an open watcher. A nil executor defaults to GoroutineExecutor.
func NewContainerStartWatcher(podNames []string, executor Executor, handlers ...PodEventHandler) *ContainerStartWatcher {
	if executor == nil {
		executor = GoroutineExecutor
	}
	names := make(map[string]struct{}, len(podNames))
	for _, name := range podNames {
		names[name] = struct{}{}
	}
	return &ContainerStartWatcher{
		podNames:   names,
		handlers:   handlers,
		executor:   executor,
		dispatched: map[containerKey]struct{}{},
	}
}

func (w *ContainerStartWatcher) Handle(event PodEvent) {
	if !w.accept(event) {
		return
	}
	metrics.ContainerStartDispatched()
	for _, handler := range w.handlers {
		w.executor.Execute(func() {
			handler.Handle(event)
		})
	}
}

// accept records event and reports whether it has to be dispatched.
func (w *ContainerStartWatcher) accept(event PodEvent) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	if _, watched := w.podNames[event.PodName]; !watched {
		return false
	}
	if event.ContainerName == "" || event.Reason != ContainerStartedReason {
		return false
	}
	key := containerKey{pod: event.PodName, container: event.ContainerName}
	if _, seen := w.dispatched[key]; seen {
		return false
	}
	w.dispatched[key] = struct{}{}
	return true
}

// Close stops dispatching. It is safe to call more than once.
func (w *ContainerStartWatcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.dispatched = nil
}

func (w *ContainerStartWatcher) IsClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}
