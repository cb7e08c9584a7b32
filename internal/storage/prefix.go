package storage

import (
	"context"
	"io"
	"path"
	"strings"
)

// WithPrefix wraps an adapter so every path lands under prefix. Used to
// keep each book's tracks in their own folder when the backend is a
// shared bucket. An empty prefix returns the adapter unchanged.
func WithPrefix(inner Adapter, prefix string) Adapter {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return inner
	}
	return &prefixAdapter{inner: inner, prefix: prefix}
}

type prefixAdapter struct {
	inner  Adapter
	prefix string
}

func (p *prefixAdapter) key(fpath string) string {
	return path.Join(p.prefix, fpath)
}

func (p *prefixAdapter) Put(ctx context.Context, fpath string, data io.Reader) error {
	return p.inner.Put(ctx, p.key(fpath), data)
}

func (p *prefixAdapter) Get(ctx context.Context, fpath string) (io.ReadCloser, error) {
	return p.inner.Get(ctx, p.key(fpath))
}

func (p *prefixAdapter) Delete(ctx context.Context, fpath string) error {
	return p.inner.Delete(ctx, p.key(fpath))
}

func (p *prefixAdapter) Exists(ctx context.Context, fpath string) (bool, error) {
	return p.inner.Exists(ctx, p.key(fpath))
}

func (p *prefixAdapter) List(ctx context.Context, fprefix string) ([]string, error) {
	paths, err := p.inner.List(ctx, p.key(fprefix))
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(paths))
	for _, fpath := range paths {
		out = append(out, strings.TrimPrefix(fpath, p.prefix+"/"))
	}
	return out, nil
}

func (p *prefixAdapter) Close() error {
	return p.inner.Close()
}
