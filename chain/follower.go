// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
)

// DefaultPollInterval is the head polling interval, one block at 3s blocks.
const DefaultPollInterval = 3 * time.Second

var (
	headGauge        = metrics.NewRegisteredGauge("chain/head", nil)
	headPollFailures = metrics.NewRegisteredCounter("chain/head/failures", nil)

	errFollowerRunning = errors.New("head follower already running")
)

// HeadReader reports the current chain head. *ethclient.Client satisfies it.
type HeadReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// HeadFollower tracks the chain head by polling a HeadReader. The reported
// height never moves backwards, even across reorgs or lagging backends.
type HeadFollower struct {
	reader   HeadReader
	interval time.Duration
	height   atomic.Uint64
	log      log.Logger

	mu      sync.Mutex
	running bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

// NewHeadFollower creates a follower polling reader every interval. A zero
// interval selects DefaultPollInterval.
func NewHeadFollower(reader HeadReader, interval time.Duration) *HeadFollower {
	if interval == 0 {
		interval = DefaultPollInterval
	}
	return &HeadFollower{
		reader:   reader,
		interval: interval,
		log:      log.New("module", "follower"),
	}
}

// CurrentHeight implements governance.HeightSource.
func (f *HeadFollower) CurrentHeight() uint64 {
	return f.height.Load()
}

// Start reads the head once and then keeps polling in the background until
// Stop is called or ctx is cancelled. The initial read must succeed.
func (f *HeadFollower) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		return errFollowerRunning
	}
	if err := f.poll(ctx); err != nil {
		return fmt.Errorf("initial head read: %w", err)
	}
	f.running = true
	f.quit = make(chan struct{})
	f.wg.Add(1)
	go f.loop(ctx, f.quit)

	f.log.Info("Head follower started", "head", f.CurrentHeight(), "interval", f.interval)
	return nil
}

// Stop terminates the polling loop and waits for it to exit.
func (f *HeadFollower) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	close(f.quit)
	f.running = false
	f.mu.Unlock()

	f.wg.Wait()
	f.log.Info("Head follower stopped", "head", f.CurrentHeight())
}

func (f *HeadFollower) loop(ctx context.Context, quit chan struct{}) {
	defer f.wg.Done()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-quit:
			return
		case <-ticker.C:
			if err := f.poll(ctx); err != nil {
				headPollFailures.Inc(1)
				f.log.Warn("Failed to read chain head", "err", err)
			}
		}
	}
}

func (f *HeadFollower) poll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, f.interval)
	defer cancel()

	head, err := f.reader.BlockNumber(ctx)
	if err != nil {
		return err
	}
	for {
		cur := f.height.Load()
		if head <= cur {
			if head < cur {
				f.log.Debug("Ignoring stale chain head", "head", head, "current", cur)
			}
			return nil
		}
		if f.height.CompareAndSwap(cur, head) {
			headGauge.Update(int64(head))
			return nil
		}
	}
}
