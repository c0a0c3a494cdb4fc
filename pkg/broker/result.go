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
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrBrokerAfterGet         = errors.New("adding a broker is not allowed once results are awaited")
	ErrUnexpectedBrokerResult = errors.New("received more broker results than brokers were started")
)

// BrokersResult collects the tooling reported by every broker started for a workspace. Each broker created must be
// announced with OneMoreBroker before its result is awaited with Get.
type BrokersResult struct {
	mu       sync.Mutex
	expected int
	reported int
	started  bool
	plugins  []ChePlugin
	err      error
	done     chan struct{}
}

func NewBrokersResult() *BrokersResult {
	return &BrokersResult{done: make(chan struct{})}
}

// OneMoreBroker increases the number of results Get waits for.
func (r *BrokersResult) OneMoreBroker() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrBrokerAfterGet
	}
	r.expected++
	return nil
}

// Expected returns the number of brokers announced so far.
func (r *BrokersResult) Expected() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expected
}

// AddResult records the tooling resolved by one broker. Once every announced broker has reported, Get returns.
func (r *BrokersResult) AddResult(plugins []ChePlugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isDone() {
		return nil
	}
	if r.reported >= r.expected {
		return ErrUnexpectedBrokerResult
	}
	r.reported++
	r.plugins = append(r.plugins, plugins...)
	if r.started && r.reported == r.expected {
		close(r.done)
	}
	return nil
}

// Error fails the result. Only the first error is kept.
func (r *BrokersResult) Error(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isDone() {
		return
	}
	r.err = err
	close(r.done)
}

// Get waits until every announced broker reported, a broker failed or ctx is done. After Get is called no more
// brokers can be announced.
func (r *BrokersResult) Get(ctx context.Context) ([]ChePlugin, error) {
	r.mu.Lock()
	r.started = true
	if !r.isDone() && r.reported == r.expected {
		close(r.done)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for plugin brokers: %w", ctx.Err())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	result := make([]ChePlugin, len(r.plugins))
	copy(result, r.plugins)
	return result, nil
}

func (r *BrokersResult) isDone() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}
