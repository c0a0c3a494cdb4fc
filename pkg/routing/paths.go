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
	"fmt"
	"regexp"
	"strings"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/dwerrors"
)

var repeatedSlashes = regexp.MustCompile(`/{2,}`)

// EnsureEndsWithSlash collapses repeated slashes and makes path end with exactly one slash.
func EnsureEndsWithSlash(path string) string {
	path = repeatedSlashes.ReplaceAllString(path, "/")
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path
}

// ServicePath is the path prefix under which a service port is exposed on a shared host: /<service>/<port>/
func ServicePath(serviceName, portName string) string {
	return EnsureEndsWithSlash(fmt.Sprintf("/%s/%s", serviceName, portName))
}

// PathTransform applies a format to generated paths, e.g. "%s(.*)" for ingress controllers using regular
// expressions in paths.
type PathTransform struct {
	format string
}

// NewPathTransform validates that format has exactly one %s placeholder and no other verbs. An empty format is
// equivalent to "%s".
func NewPathTransform(format string) (PathTransform, error) {
	if format == "" {
		format = "%s"
	}
	stripped := strings.ReplaceAll(format, "%%", "")
	if strings.Count(stripped, "%s") != 1 || strings.Count(stripped, "%") != 1 {
		return PathTransform{}, &dwerrors.ValidationError{
			Field:   "path transform",
			Message: fmt.Sprintf("format %q must contain exactly one %%s placeholder", format),
		}
	}
	return PathTransform{format: format}, nil
}

func (p PathTransform) Apply(path string) string {
	return fmt.Sprintf(p.format, path)
}

// IsIdentity returns true if the transform does not change paths.
func (p PathTransform) IsIdentity() bool {
	return p.format == "%s"
}
