// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package codec

import "sync"

// saveJob is one enqueued save request; result carries its own
// success/failure back to the caller that submitted it (spec §5: "Requests
// are resolved in FIFO order, each with its own success/failure").
type saveJob struct {
	path   string
	key    []byte
	salt   []byte
	image  []byte
	opts   Options
	result chan error
}

// SaveQueue funnels every save through a single background worker so that
// at most one save is ever in progress against a given database file,
// regardless of how many goroutines call Enqueue concurrently.
type SaveQueue struct {
	jobs chan *saveJob

	closeOnce sync.Once
	done      chan struct{}
}

// NewSaveQueue starts the queue's single worker goroutine.
func NewSaveQueue() *SaveQueue {
	q := &SaveQueue{
		jobs: make(chan *saveJob, 64),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *SaveQueue) run() {
	defer close(q.done)
	for job := range q.jobs {
		job.result <- Save(job.path, job.key, job.salt, job.image, job.opts)
	}
}

// Enqueue submits a save and blocks until it has been processed, returning
// that save's own result. Concurrent callers are served strictly in the
// order they called Enqueue.
func (q *SaveQueue) Enqueue(path string, key, salt, image []byte, opts Options) error {
	job := &saveJob{path: path, key: key, salt: salt, image: image, opts: opts, result: make(chan error, 1)}
	q.jobs <- job
	return <-job.result
}

// Close stops accepting new saves and waits for the worker to drain. It is
// safe to call more than once; Enqueue must not be called after Close.
func (q *SaveQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.jobs)
	})
	<-q.done
}
