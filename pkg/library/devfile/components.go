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

package devfile

import (
	"fmt"
	"slices"

	dw "github.com/devfile/api/v2/pkg/apis/workspaces/v1alpha2"

	"github.com/che-incubator/che-workspace-infrastructure/pkg/dwerrors"
)

// partitionComponents splits components into the ones applied by preStart events and the ones run in the main
// pod. A component referenced both by a preStart event and by another command is in both lists.
func partitionComponents(devfile dw.DevWorkspaceTemplateSpecContent) (initComponents, mainComponents []dw.Component, err error) {
	if devfile.Events == nil || len(devfile.Events.PreStart) == 0 {
		return nil, devfile.Components, nil
	}

	preStart := map[string]bool{}
	for _, id := range devfile.Events.PreStart {
		command, err := commandByID(id, devfile.Commands)
		if err != nil {
			return nil, nil, err
		}
		if command.Apply == nil {
			return nil, nil, &dwerrors.ValidationError{
				Field:   "events.preStart",
				Message: fmt.Sprintf("command %s: only apply commands can be bound to preStart", id),
			}
		}
		preStart[command.Apply.Component] = true
	}

	other := map[string]bool{}
	for _, command := range devfile.Commands {
		if slices.Contains(devfile.Events.PreStart, command.Id) {
			continue
		}
		if component := commandComponent(command); component != "" {
			other[component] = true
		}
	}

	for _, component := range devfile.Components {
		if !preStart[component.Name] {
			mainComponents = append(mainComponents, component)
			continue
		}
		initComponents = append(initComponents, component)
		if other[component.Name] {
			mainComponents = append(mainComponents, component)
		}
	}
	return initComponents, mainComponents, nil
}

func commandByID(id string, commands []dw.Command) (*dw.Command, error) {
	for i := range commands {
		if commands[i].Id == id {
			return &commands[i], nil
		}
	}
	return nil, &dwerrors.ValidationError{Field: "events.preStart", Message: fmt.Sprintf("no command with ID %s is defined", id)}
}

func commandComponent(command dw.Command) string {
	switch {
	case command.Exec != nil:
		return command.Exec.Component
	case command.Apply != nil:
		return command.Apply.Component
	default:
		return ""
	}
}
