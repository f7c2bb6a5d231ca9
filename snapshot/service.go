// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package snapshot

import (
	"errors"
	"fmt"
)

// Service builds snapshots on a background worker so that the writer path
// does not block query traffic. Completed snapshots are registered in the
// registry and the live index; failures are collected and reported on the
// next Sync.
type Service struct {
	commands chan<- serviceCommand
	syncs    <-chan error
	done     <-chan struct{}
}

type serviceCommand struct {
	build uint64 // build a snapshot up to this version
	sync  bool
}

// NewService starts the background worker. The registry and index may be
// nil if persistence or live indexing is not wanted.
func NewService(builder *Builder, registry *Registry, index *Index) *Service {
	commands := make(chan serviceCommand, 16)
	syncs := make(chan error)
	done := make(chan struct{})

	go func() {
		defer close(done)
		var issues []error
		extraIssues := 0
		for command := range commands {
			if command.sync {
				if extraIssues > 0 {
					issues = append(issues, fmt.Errorf("%d additional errors truncated", extraIssues))
					extraIssues = 0
				}
				syncs <- errors.Join(issues...)
				issues = issues[:0]
				continue
			}
			if _, err := builder.BuildAndRegister(command.build, registry, index); err != nil {
				if len(issues) < 10 {
					issues = append(issues, fmt.Errorf("snapshot up to version %d: %w", command.build, err))
				} else {
					extraIssues++
				}
			}
		}
	}()

	return &Service{
		commands: commands,
		syncs:    syncs,
		done:     done,
	}
}

// Trigger schedules a snapshot covering the ledger up to the given commit
// version. It returns immediately.
func (s *Service) Trigger(upTo uint64) {
	s.commands <- serviceCommand{build: upTo}
}

// Sync waits for all scheduled snapshots to complete and returns the
// collected failures, if any.
func (s *Service) Sync() error {
	s.commands <- serviceCommand{sync: true}
	return <-s.syncs
}

// Close drains pending work and stops the worker.
func (s *Service) Close() error {
	err := s.Sync()
	close(s.commands)
	<-s.done
	return err
}
