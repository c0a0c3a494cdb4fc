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

package routing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/dwerrors"
)

func TestEnsureEndsWithSlash(t *testing.T) {
	tests := map[string]string{
		"/svc/http":   "/svc/http/",
		"/svc/http/":  "/svc/http/",
		"//svc//http": "/svc/http/",
		"/svc/http//": "/svc/http/",
		"":            "/",
	}
	for input, expected := range tests {
		assert.Equal(t, expected, EnsureEndsWithSlash(input), "input %q", input)
	}
}

func TestServicePath(t *testing.T) {
	assert.Equal(t, "/ws-theia/http/", ServicePath("ws-theia", "http"))
}

func TestNewPathTransform(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		input     string
		expected  string
		expectErr bool
	}{
		{name: "empty format", format: "", input: "/a/", expected: "/a/"},
		{name: "identity", format: "%s", input: "/a/", expected: "/a/"},
		{name: "regex suffix", format: "%s(.*)", input: "/a/", expected: "/a/(.*)"},
		{name: "escaped percent", format: "%%%s", input: "/a/", expected: "%/a/"},
		{name: "no placeholder", format: "/static", expectErr: true},
		{name: "two placeholders", format: "%s%s", expectErr: true},
		{name: "other verb", format: "%s%d", expectErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When
			transform, err := NewPathTransform(tt.format)

			// Then
			if tt.expectErr {
				var validationErr *dwerrors.ValidationError
				assert.True(t, errors.As(err, &validationErr), "expected validation error, got %v", err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, transform.Apply(tt.input))
		})
	}
}
