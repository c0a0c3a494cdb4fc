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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestPodEventFromEvent(t *testing.T) {
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	last := first.Add(time.Minute)

	tests := []struct {
		name     string
		event    *corev1.Event
		expected PodEvent
		ok       bool
	}{
		{
			name: "Container event",
			event: &corev1.Event{
				ObjectMeta:     metav1.ObjectMeta{UID: "uid-1"},
				InvolvedObject: corev1.ObjectReference{Kind: "Pod", Name: "ws-pod", FieldPath: "spec.containers{theia}"},
				Reason:         "Started",
				Message:        "Started container theia",
				FirstTimestamp: metav1.NewTime(first),
				LastTimestamp:  metav1.NewTime(last),
			},
			expected: PodEvent{
				PodName:        "ws-pod",
				ContainerName:  "theia",
				Reason:         "Started",
				Message:        "Started container theia",
				UID:            "uid-1",
				FirstTimestamp: first,
				LastTimestamp:  last,
			},
			ok: true,
		},
		{
			name: "Init container event falls back to event time",
			event: &corev1.Event{
				InvolvedObject: corev1.ObjectReference{Kind: "Pod", Name: "broker", FieldPath: "spec.initContainers{init}"},
				Reason:         "Started",
				EventTime:      metav1.NewMicroTime(last),
			},
			expected: PodEvent{PodName: "broker", ContainerName: "init", Reason: "Started", LastTimestamp: last},
			ok:       true,
		},
		{
			name: "Pod level event",
			event: &corev1.Event{
				InvolvedObject: corev1.ObjectReference{Kind: "Pod", Name: "ws-pod"},
				Reason:         "Scheduled",
			},
			expected: PodEvent{PodName: "ws-pod", Reason: "Scheduled"},
			ok:       true,
		},
		{
			name: "Not a pod",
			event: &corev1.Event{
				InvolvedObject: corev1.ObjectReference{Kind: "Node", Name: "node-1"},
			},
		},
		{
			name: "Nil event",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, ok := PodEventFromEvent(tt.event)

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, actual)
		})
	}
}
