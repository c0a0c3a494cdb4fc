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

// Package watch observes pod lifecycle events of running workspaces.
package watch

import (
	"regexp"
	"time"

	corev1 "k8s.io/api/core/v1"
)

// ContainerStartedReason is the event reason reported by the kubelet once a container started.
const ContainerStartedReason = "Started"

var containerFieldPathRegexp = regexp.MustCompile(`^spec\.(?:initContainers|containers)\{(.+)\}$`)

// PodEvent is a cluster event about a pod, narrowed down to what workspace watchers need.
type PodEvent struct {
	PodName string
	// ContainerName is empty if the event concerns the pod as a whole
	ContainerName  string
	Reason         string
	Message        string
	UID            string
	FirstTimestamp time.Time
	LastTimestamp  time.Time
}

// PodEventHandler receives pod events.
type PodEventHandler interface {
	Handle(event PodEvent)
}

type PodEventHandlerFunc func(event PodEvent)

func (f PodEventHandlerFunc) Handle(event PodEvent) {
	f(event)
}

// PodEventFromEvent converts a cluster event. ok is false if the event does not concern a pod.
func PodEventFromEvent(event *corev1.Event) (podEvent PodEvent, ok bool) {
	if event == nil || event.InvolvedObject.Kind != "Pod" {
		return PodEvent{}, false
	}
	podEvent = PodEvent{
		PodName:        event.InvolvedObject.Name,
		ContainerName:  containerFromFieldPath(event.InvolvedObject.FieldPath),
		Reason:         event.Reason,
		Message:        event.Message,
		UID:            string(event.UID),
		FirstTimestamp: event.FirstTimestamp.Time,
		LastTimestamp:  event.LastTimestamp.Time,
	}
	if podEvent.LastTimestamp.IsZero() {
		podEvent.LastTimestamp = event.EventTime.Time
	}
	return podEvent, true
}

func containerFromFieldPath(fieldPath string) string {
	match := containerFieldPathRegexp.FindStringSubmatch(fieldPath)
	if match == nil {
		return ""
	}
	return match[1]
}
