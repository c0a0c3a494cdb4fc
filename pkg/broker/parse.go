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
	"bytes"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
	"sigs.k8s.io/yaml"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/dwerrors"
)

// LatestVersion is ranked above every semantic version
const LatestVersion = "latest"

// ParsePluginMetas parses plugin descriptors in YAML or JSON. The input is either a single descriptor or a list.
// Descriptors without an id get "<publisher>/<name>/<version>".
func ParsePluginMetas(data []byte) ([]PluginMeta, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	jsonData, err := yaml.YAMLToJSON(trimmed)
	if err != nil {
		return nil, &dwerrors.ValidationError{Field: "plugin metadata", Message: err.Error()}
	}

	var metas []PluginMeta
	if bytes.HasPrefix(jsonData, []byte("[")) {
		if err := yaml.Unmarshal(jsonData, &metas); err != nil {
			return nil, &dwerrors.ValidationError{Field: "plugin metadata", Message: err.Error()}
		}
	} else {
		var meta PluginMeta
		if err := yaml.Unmarshal(jsonData, &meta); err != nil {
			return nil, &dwerrors.ValidationError{Field: "plugin metadata", Message: err.Error()}
		}
		metas = []PluginMeta{meta}
	}

	for idx := range metas {
		meta := &metas[idx]
		if meta.Publisher == "" || meta.Name == "" || meta.Version == "" {
			if err := meta.fillFromID(); err != nil {
				return nil, err
			}
		}
		if meta.ID == "" {
			meta.ID = fmt.Sprintf("%s/%s/%s", meta.Publisher, meta.Name, meta.Version)
		}
	}
	return metas, nil
}

func (m *PluginMeta) fillFromID() error {
	parts := strings.Split(m.ID, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return &dwerrors.ValidationError{
			Field:   "plugin metadata",
			Message: fmt.Sprintf("plugin %q must define publisher, name and version", m.ID),
		}
	}
	if m.Publisher == "" {
		m.Publisher = parts[0]
	}
	if m.Name == "" {
		m.Name = parts[1]
	}
	if m.Version == "" {
		m.Version = parts[2]
	}
	return nil
}

// Deduplicate keeps one descriptor per plugin, the one with the highest version. Results are sorted by plugin key.
func Deduplicate(metas []PluginMeta) []PluginMeta {
	byKey := map[string]PluginMeta{}
	for _, meta := range metas {
		existing, ok := byKey[meta.Key()]
		if !ok || compareVersions(meta.Version, existing.Version) > 0 {
			byKey[meta.Key()] = meta
		}
	}
	result := make([]PluginMeta, 0, len(byKey))
	for _, meta := range byKey {
		result = append(result, meta)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key() < result[j].Key()
	})
	return result
}

// compareVersions orders "latest" above valid semantic versions, which are above invalid ones.
func compareVersions(a, b string) int {
	if a == b {
		return 0
	}
	if a == LatestVersion {
		return 1
	}
	if b == LatestVersion {
		return -1
	}
	return semver.Compare(canonicalVersion(a), canonicalVersion(b))
}

func canonicalVersion(version string) string {
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	return version
}
