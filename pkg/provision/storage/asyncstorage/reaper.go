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

// Package asyncstorage deletes the per-user async storage pod once its owner has been idle for long enough.
package asyncstorage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/manager"

	"github.com/che-incubator/che-workspace-infrastructure/internal/cluster"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/config"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/constants"
	"github.com/che-incubator/che-workspace-infrastructure/pkg/metrics"
)

const defaultPageSize = 100

type User struct {
	ID   string
	Name string
}

// UserLister returns users page by page. more is false once the last page was returned.
type UserLister interface {
	ListUsers(ctx context.Context, offset, limit int) (users []User, more bool, err error)
}

type PreferenceStore interface {
	GetPreferences(ctx context.Context, userID string) (map[string]string, error)
}

// RuntimeTracker reports workspaces of a user that are starting, running or stopping.
type RuntimeTracker interface {
	InProgress(ctx context.Context, userID string) ([]string, error)
}

// PodReaper deletes the async storage pod of users that have no active workspace and whose last activity is older
// than the configured idle timeout.
type PodReaper struct {
	Client      client.Client
	Config      *config.ControllerConfig
	Users       UserLister
	Preferences PreferenceStore
	Runtimes    RuntimeTracker
	Log         logr.Logger
	// Now defaults to time.Now
	Now      func() time.Time
	PageSize int

	cron *cron.Cron
}

var _ manager.LeaderElectionRunnable = (*PodReaper)(nil)

func (r *PodReaper) NeedLeaderElection() bool {
	return true
}

// Start runs Check on the configured schedule until ctx is done.
func (r *PodReaper) Start(ctx context.Context) error {
	schedule := r.Config.GetAsyncStorageSchedule()
	r.cron = cron.New()
	_, err := r.cron.AddFunc(schedule, func() {
		if err := r.Check(ctx); err != nil {
			r.Log.Error(err, "Failed to check idle async storage pods")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid async storage check schedule %q: %w", schedule, err)
	}
	r.Log.Info(fmt.Sprintf("Checking idle async storage pods with schedule %q", schedule))
	r.cron.Start()
	<-ctx.Done()
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
	return nil
}

// Check evaluates every user once. Errors of one user do not prevent checking the others; they are returned
// aggregated.
func (r *PodReaper) Check(ctx context.Context) error {
	if !r.enabled() {
		return nil
	}
	pageSize := r.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	var errs []error
	for offset := 0; ; offset += pageSize {
		users, more, err := r.Users.ListUsers(ctx, offset, pageSize)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to list users: %w", err))
			break
		}
		for _, user := range users {
			if err := r.checkUser(ctx, user); err != nil {
				errs = append(errs, fmt.Errorf("user %s: %w", user.ID, err))
			}
		}
		if !more || len(users) == 0 {
			break
		}
	}
	return utilerrors.NewAggregate(errs)
}

// enabled reports whether the deployment keeps a single async storage pod per user in a predictable namespace.
func (r *PodReaper) enabled() bool {
	if r.Config.GetStorageStrategy() != config.CommonStorageStrategy {
		return false
	}
	if r.Config.IsUserDefinedNamespaceAllowed() {
		return false
	}
	template := r.Config.GetNamespaceTemplate()
	if !strings.Contains(template, "<username>") && !strings.Contains(template, "<userid>") {
		return false
	}
	return r.Config.GetRuntimesPerUser() <= 1
}

func (r *PodReaper) checkUser(ctx context.Context, user User) error {
	log := r.Log.WithValues("user", user.ID)
	prefs, err := r.Preferences.GetPreferences(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to read preferences: %w", err)
	}
	lastActivity, ok := parseEpoch(prefs[constants.LastActivityTimePreference])
	if !ok {
		return nil
	}
	namespace := prefs[constants.LastActiveNamespacePreference]
	if namespace == "" {
		return nil
	}
	if r.now().Sub(lastActivity) < r.Config.GetAsyncStorageIdleTimeout() {
		return nil
	}
	inProgress, err := r.Runtimes.InProgress(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to read active workspaces: %w", err)
	}
	if len(inProgress) > 0 {
		return nil
	}
	return r.deletePod(ctx, namespace, log)
}

func (r *PodReaper) deletePod(ctx context.Context, namespace string, log logr.Logger) error {
	deleted, err := cluster.DeletePod(ctx, r.Client, namespace, constants.AsyncStoragePodName)
	if err != nil {
		return err
	}
	if deleted {
		log.Info(fmt.Sprintf("Deleted idle async storage pod in namespace %s", namespace))
		metrics.AsyncStoragePodDeleted()
	}
	return nil
}

func (r *PodReaper) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func parseEpoch(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	seconds, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(seconds, 0), true
}
