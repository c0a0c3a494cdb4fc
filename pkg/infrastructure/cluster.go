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

package infrastructure

import (
	"fmt"

	"github.com/che-incubator/che-workspace-infrastructure/internal/cluster"
)

// Type specifies what kind of infrastructure we're operating in.
type Type int

const (
	// Unsupported represents an unsupported cluster version (e.g. OpenShift v3)
	Unsupported Type = iota
	Kubernetes
	OpenShiftv4
)

var (
	// current is the infrastructure that we're currently running on.
	current     Type
	initialized = false
)

// Initialize attempts to determine the type of cluster it's currently running on (OpenShift or Kubernetes). This
// function should be called before other functions in this package
func Initialize() error {
	isOpenShift, err := cluster.IsOpenShift()
	if err != nil {
		return fmt.Errorf("could not determine cluster type: %w", err)
	}
	if isOpenShift {
		current = OpenShiftv4
	} else {
		current = Kubernetes
	}
	initialized = true
	return nil
}

// InitializeForTesting is used to mock running on a specific type of cluster in testing code.
func InitializeForTesting(currentInfrastructure Type) {
	current = currentInfrastructure
	initialized = true
}

// IsOpenShift returns true if the current cluster is an OpenShift (v4.x) cluster.
func IsOpenShift() bool {
	if !initialized {
		panic("Attempting to determine information about the cluster without initializing first")
	}
	return current == OpenShiftv4
}
