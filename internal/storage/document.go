package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned once the document writer has been shut down.
var ErrClosed = errors.New("storage: document closed")

// JSONDocument owns one JSON file and serializes every access to it through a
// single writer goroutine. Each Update is a full read-modify-write of the
// file; because only one runs at a time, concurrent updates never overwrite
// each other.
type JSONDocument[T any] struct {
	store     *FileStore
	key       string
	init      func() *T
	ops       chan docOp[T]
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type docOp[T any] struct {
	ctx    context.Context
	mutate func(*T) error // nil for reads
	view   func(*T)
	result chan error
}

// OpenJSONDocument starts the writer for key. init builds the value used when
// the file does not exist yet.
func OpenJSONDocument[T any](store *FileStore, key string, init func() *T) (*JSONDocument[T], error) {
	if store == nil {
		return nil, errors.New("storage: file store is required")
	}
	if _, err := sanitizeKey(key); err != nil {
		return nil, err
	}
	if init == nil {
		init = func() *T { return new(T) }
	}
	d := &JSONDocument[T]{
		store: store,
		key:   key,
		init:  init,
		ops:   make(chan docOp[T]),
		done:  make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d, nil
}

func (d *JSONDocument[T]) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case op := <-d.ops:
			op.result <- d.apply(op)
		}
	}
}

func (d *JSONDocument[T]) apply(op docOp[T]) error {
	value, err := d.load(op.ctx)
	if err != nil {
		return err
	}
	if op.mutate == nil {
		op.view(value)
		return nil
	}
	if err := op.mutate(value); err != nil {
		return err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", d.key, err)
	}
	// The caller may already have gone away; the write still completes so the
	// file never reflects half of an update.
	if _, err := d.store.Write(context.WithoutCancel(op.ctx), d.key, data); err != nil {
		return err
	}
	return nil
}

func (d *JSONDocument[T]) load(ctx context.Context) (*T, error) {
	data, err := d.store.Read(context.WithoutCancel(ctx), d.key)
	if errors.Is(err, ErrNotExist) {
		return d.init(), nil
	}
	if err != nil {
		return nil, err
	}
	value := d.init()
	if len(data) == 0 {
		return value, nil
	}
	if err := json.Unmarshal(data, value); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", d.key, err)
	}
	return value, nil
}

func (d *JSONDocument[T]) submit(ctx context.Context, op docOp[T]) error {
	op.ctx = ctx
	op.result = make(chan error, 1)
	select {
	case <-d.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case d.ops <- op:
	}
	// Once accepted the operation runs to completion.
	return <-op.result
}

// Update loads the document, applies mutate and writes it back. When mutate
// returns an error nothing is written.
func (d *JSONDocument[T]) Update(ctx context.Context, mutate func(*T) error) error {
	if mutate == nil {
		return errors.New("storage: mutate func is required")
	}
	return d.submit(ctx, docOp[T]{mutate: mutate})
}

// View loads the document and hands it to fn. fn must not retain the value.
func (d *JSONDocument[T]) View(ctx context.Context, fn func(*T)) error {
	if fn == nil {
		return errors.New("storage: view func is required")
	}
	return d.submit(ctx, docOp[T]{view: fn})
}

// Close stops the writer goroutine after the in-flight operation finishes.
func (d *JSONDocument[T]) Close() error {
	d.closeOnce.Do(func() { close(d.done) })
	d.wg.Wait()
	return nil
}
