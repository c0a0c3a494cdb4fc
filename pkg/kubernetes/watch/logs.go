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
	"bufio"
	"context"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
)

// LogSink receives container log lines.
type LogSink interface {
	WriteLine(podName, containerName, line string)
}

// LogStreamer follows the logs of every container it is notified about. It is meant to be registered as a handler of
// a ContainerStartWatcher.
type LogStreamer struct {
	ctx       context.Context
	client    kubernetes.Interface
	namespace string
	sink      LogSink
	log       logr.Logger
}

var _ PodEventHandler = (*LogStreamer)(nil)

// NewLogStreamer creates a streamer whose streams stop when ctx is done.
func NewLogStreamer(ctx context.Context, client kubernetes.Interface, namespace string, sink LogSink, log logr.Logger) *LogStreamer {
	return &LogStreamer{
		ctx:       ctx,
		client:    client,
		namespace: namespace,
		sink:      sink,
		log:       log,
	}
}

// Handle streams the logs of the container in event until the container or the streamer stops.
func (l *LogStreamer) Handle(event PodEvent) {
	log := l.log.WithValues("pod", event.PodName, "container", event.ContainerName)
	stream, err := l.client.CoreV1().Pods(l.namespace).GetLogs(event.PodName, &corev1.PodLogOptions{
		Container: event.ContainerName,
		Follow:    true,
	}).Stream(l.ctx)
	if err != nil {
		log.Error(err, "Failed to stream container logs")
		return
	}
	defer stream.Close()

	scanner := bufio.NewScanner(stream)
	for scanner.Scan() {
		l.sink.WriteLine(event.PodName, event.ContainerName, scanner.Text())
	}
	if err := scanner.Err(); err != nil && l.ctx.Err() == nil {
		log.Error(err, "Failed to read container logs")
	}
}
