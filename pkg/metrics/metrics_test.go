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

package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/dwerrors"
)

func TestFailureReason(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name: "conflict inside provisioning error",
			err: &dwerrors.ProvisioningError{
				Step: "servers",
				Err:  &dwerrors.ConfigurationConflictError{First: "a/http", Second: "b/http", Reason: "path"},
			},
			expected: ReasonConflict,
		},
		{name: "provisioning error", err: &dwerrors.ProvisioningError{Step: "certificates", Message: "failed"}, expected: ReasonProvisioning},
		{name: "wrapped infrastructure error", err: fmt.Errorf("submit: %w", &dwerrors.InfrastructureError{Message: "down"}), expected: ReasonInfrastructure},
		{name: "validation error", err: &dwerrors.ValidationError{Field: "pathTransform"}, expected: ReasonValidation},
		{name: "unknown error", err: errors.New("boom"), expected: ReasonUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FailureReason(tt.err))
		})
	}
}

func TestProvisioningStepFailed(t *testing.T) {
	before := testutil.ToFloat64(provisioningFailures.WithLabelValues("unique-names"))

	ProvisioningStepFailed("unique-names")

	assert.Equal(t, before+1, testutil.ToFloat64(provisioningFailures.WithLabelValues("unique-names")))
}
