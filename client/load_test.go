// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"context"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/rollupanchor/anchor"
)

const (
	numProducers        = 2
	messagesPerProducer = 20
	numWorkers          = 3
	maxBatch            = 5
)

var processedKey = []byte("processed")

// TestConcurrentWorkers races several worker sessions over the same queue.
// Conflicting commits are rejected and retried, so every message is
// processed exactly once.
func TestConcurrentWorkers(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const total = numProducers * messagesPerProducer
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < numProducers; i++ {
		producer := f.client(t, user)
		g.Go(func() error {
			for j := 0; j < messagesPerProducer; j++ {
				payload := make([]byte, 32)
				if _, err := rand.Read(payload); err != nil {
					return err
				}
				if _, err := producer.PushMessage(gctx, payload); err != nil {
					return err
				}
			}
			return nil
		})
	}
	for i := 0; i < numWorkers; i++ {
		workerClient := f.client(t, worker)
		session := NewSession(workerClient, DirectSubmitter{Client: workerClient}, f.log)
		g.Go(func() error {
			return runWorker(gctx, workerClient, session, total)
		})
	}
	require.NoError(g.Wait())

	cli := f.client(t, worker)
	head, err := cli.QueueHead(ctx)
	require.NoError(err)
	require.Equal(uint32(total), head)
	tail, err := cli.QueueTail(ctx)
	require.NoError(err)
	require.Equal(uint32(total), tail)

	processed, err := cli.GetValue(ctx, processedKey)
	require.NoError(err)
	count, err := DecodeVersion(processed.Value())
	require.NoError(err)
	require.Equal(uint64(total), count)
}

func runWorker(ctx context.Context, cli Client, session *Session, total uint32) error {
	for ctx.Err() == nil {
		head, err := cli.QueueHead(ctx)
		if err != nil {
			return err
		}
		if head == total {
			return nil
		}

		if err := session.Start(ctx); err != nil {
			return err
		}
		for i := 0; i < maxBatch; i++ {
			message, err := session.PollMessage(ctx)
			if err != nil {
				return err
			}
			if message.IsNothing() {
				break
			}
			if err := countMessage(ctx, session); err != nil {
				return err
			}
		}
		if !session.HasUpdates() {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if _, err := session.Commit(ctx); err != nil {
			if !strings.Contains(err.Error(), anchor.ErrConditionNotMet.Error()) {
				return err
			}
			// Another worker committed first.
			time.Sleep(time.Millisecond)
		}
	}
	return ctx.Err()
}

func countMessage(ctx context.Context, session *Session) error {
	current, err := session.GetValue(ctx, processedKey)
	if err != nil {
		return err
	}
	count := uint64(0)
	if current.HasValue() {
		count, err = DecodeVersion(current.Value())
		if err != nil {
			return err
		}
	}
	session.SetValue(processedKey, EncodeVersion(count+1))
	return nil
}
