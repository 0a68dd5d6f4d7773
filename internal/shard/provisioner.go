// Package shard prepares the per-shard copies of the map files a client
// edits: reused when present, seeded from the game client when its maps
// have the right dimensions, or created blank.
package shard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/ultimalive/internal/config"
	"github.com/freeeve/ultimalive/internal/progress"
	"github.com/freeeve/ultimalive/internal/store"
)

// Action records how a shard map was prepared.
type Action int

const (
	Reused Action = iota
	Copied
	Converted
	Created
)

func (a Action) String() string {
	switch a {
	case Reused:
		return "reused"
	case Copied:
		return "copied"
	case Converted:
		return "converted"
	case Created:
		return "created"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Result describes one prepared map.
type Result struct {
	Map    int
	Action Action
}

// ProgressFunc receives copy progress for one file of one map. It may be
// called from several goroutines at once, one per map.
type ProgressFunc func(mapNumber int, file string, percent uint32)

// Source seeds shard map files from a game client install.
type Source interface {
	// Seed writes the map, statics and index files of m into shardDir and
	// reports the action taken. ok is false when the client has no map of
	// the required size; nothing is written then.
	Seed(ctx context.Context, shardDir string, m config.MapDefinition) (action Action, ok bool, err error)
	Name() string
}

// Provisioner prepares every configured map of a shard.
type Provisioner struct {
	dir      string
	maps     []config.MapDefinition
	source   Source
	progress ProgressFunc
	log      zerolog.Logger
	limit    int
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithProgress reports copy progress to fn.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Provisioner) { p.progress = fn }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Provisioner) { p.log = log }
}

// WithSource replaces the client source chosen from the config.
func WithSource(src Source) Option {
	return func(p *Provisioner) { p.source = src }
}

// WithConcurrency bounds how many maps are prepared at once; n <= 0 means
// no bound.
func WithConcurrency(n int) Option {
	return func(p *Provisioner) { p.limit = n }
}

// NewProvisioner returns a provisioner for cfg. Clients at or past
// config.FirstUOPVersion are read through their UOP containers.
func NewProvisioner(cfg *config.Config, opts ...Option) *Provisioner {
	p := &Provisioner{
		dir:  cfg.ShardDir(),
		maps: cfg.Maps,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.source == nil {
		if cfg.UsesUOP() {
			p.source = NewUOPClient(cfg.ClientPath, p.log)
		} else {
			p.source = NewLegacyClient(cfg.ClientPath)
		}
	}
	return p
}

// Dir returns the shard directory.
func (p *Provisioner) Dir() string {
	return p.dir
}

// Prepare makes sure every configured map has its three files in the shard
// directory. Maps are handled concurrently; the first failure cancels the
// rest between files.
func (p *Provisioner) Prepare(ctx context.Context) ([]Result, error) {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return nil, fmt.Errorf("create shard dir: %w", err)
	}
	p.log.Info().
		Str("dir", p.dir).
		Str("source", p.source.Name()).
		Int("maps", len(p.maps)).
		Msg("preparing shard maps")

	results := make([]Result, len(p.maps))
	g, ctx := errgroup.WithContext(ctx)
	if p.limit > 0 {
		g.SetLimit(p.limit)
	}
	for i, m := range p.maps {
		g.Go(func() error {
			action, err := p.prepareMap(ctx, m)
			if err != nil {
				return fmt.Errorf("map %d: %w", m.Number, err)
			}
			results[i] = Result{Map: m.Number, Action: action}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Provisioner) prepareMap(ctx context.Context, m config.MapDefinition) (Action, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	log := p.log.With().Int("map", m.Number).Logger()
	paths := store.PathsFor(p.dir, m.Number)

	if _, err := os.Stat(paths.Map); err == nil {
		log.Debug().Str("path", paths.Map).Msg("shard map exists")
		return Reused, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("stat shard map: %w", err)
	}

	ctx = withSink(ctx, p.sinkFor(m.Number))
	action, ok, err := p.source.Seed(ctx, p.dir, m)
	if err != nil {
		return 0, err
	}
	if ok {
		log.Info().Str("action", action.String()).Msg("shard map seeded from client")
		return action, nil
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	res, err := store.CreateGrid(p.dir, m.Number, m.WidthBlocks(), m.WrapHeightBlocks())
	if err != nil {
		return 0, err
	}
	log.Info().
		Uint32("width_blocks", m.WidthBlocks()).
		Uint32("height_blocks", m.WrapHeightBlocks()).
		Bool("statics_created", res.StaticsCreated).
		Msg("blank shard map created")
	return Created, nil
}

func (p *Provisioner) sinkFor(mapNumber int) func(file string) progress.Sink {
	if p.progress == nil {
		return nil
	}
	return func(file string) progress.Sink {
		return func(pct uint32) { p.progress(mapNumber, file, pct) }
	}
}

type sinkKey struct{}

func withSink(ctx context.Context, fn func(file string) progress.Sink) context.Context {
	return context.WithValue(ctx, sinkKey{}, fn)
}

// SinkFor returns the progress sink a Source should report the copy of file
// to, or nil.
func SinkFor(ctx context.Context, file string) progress.Sink {
	fn, _ := ctx.Value(sinkKey{}).(func(string) progress.Sink)
	if fn == nil {
		return nil
	}
	return fn(file)
}

// NeededMapSize is the byte size a client map must have to be reused for m.
func NeededMapSize(m config.MapDefinition) int64 {
	return store.MapFileSize(m.WidthBlocks(), m.HeightBlocks())
}

// copyAll copies the named files from src to dst, stopping between files
// when ctx is done.
func copyAll(ctx context.Context, src, dst string, names ...string) error {
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := store.CopyFile(filepath.Join(src, name), filepath.Join(dst, name), SinkFor(ctx, name)); err != nil {
			return err
		}
	}
	return nil
}
