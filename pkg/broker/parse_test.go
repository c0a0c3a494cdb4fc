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

package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/dwerrors"
)

func TestParsePluginMetas(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []PluginMeta
	}{
		{
			name: "Single YAML descriptor",
			input: `
publisher: redhat
name: java
version: 0.50.0
type: VS Code extension
`,
			expected: []PluginMeta{
				{ID: "redhat/java/0.50.0", Publisher: "redhat", Name: "java", Version: "0.50.0", Type: "VS Code extension"},
			},
		},
		{
			name:  "JSON list",
			input: `[{"id": "eclipse/che-theia/next"}, {"publisher": "redhat", "name": "vscode-yaml", "version": "0.4.0"}]`,
			expected: []PluginMeta{
				{ID: "eclipse/che-theia/next", Publisher: "eclipse", Name: "che-theia", Version: "next"},
				{ID: "redhat/vscode-yaml/0.4.0", Publisher: "redhat", Name: "vscode-yaml", Version: "0.4.0"},
			},
		},
		{
			name:  "Empty input",
			input: "  \n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metas, err := ParsePluginMetas([]byte(tt.input))

			require.NoError(t, err)
			assert.Equal(t, tt.expected, metas)
		})
	}
}

func TestParsePluginMetasErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "Missing version", input: `{"publisher": "redhat", "name": "java"}`},
		{name: "Malformed id", input: `{"id": "redhat/java"}`},
		{name: "Not a descriptor", input: `just a string`},
		{name: "Invalid YAML", input: "publisher: [redhat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePluginMetas([]byte(tt.input))

			var validationErr *dwerrors.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestDeduplicateKeepsHighestVersion(t *testing.T) {
	// Given
	metas := []PluginMeta{
		{Publisher: "redhat", Name: "java", Version: "0.9.0"},
		{Publisher: "redhat", Name: "java", Version: "0.50.0"},
		{Publisher: "redhat", Name: "java", Version: "0.10.1"},
		{Publisher: "eclipse", Name: "che-theia", Version: "7.0.0"},
		{Publisher: "eclipse", Name: "che-theia", Version: "latest"},
		{Publisher: "eclipse", Name: "che-theia", Version: "next-broken"},
	}

	// When
	result := Deduplicate(metas)

	// Then
	assert.Equal(t, []PluginMeta{
		{Publisher: "eclipse", Name: "che-theia", Version: "latest"},
		{Publisher: "redhat", Name: "java", Version: "0.50.0"},
	}, result)
}

func TestCompareVersions(t *testing.T) {
	assert.Negative(t, compareVersions("1.2.0", "1.10.0"))
	assert.Positive(t, compareVersions("v2.0.0", "1.9.9"))
	assert.Positive(t, compareVersions("1.0.0", "not-a-version"))
	assert.Zero(t, compareVersions("latest", "latest"))
	assert.Negative(t, compareVersions("9.9.9", "latest"))
}
