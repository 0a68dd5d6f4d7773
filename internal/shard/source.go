package shard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/freeeve/ultimalive/internal/config"
	"github.com/freeeve/ultimalive/internal/store"
	"github.com/freeeve/ultimalive/internal/uop"
)

// LegacyClient seeds from a client that ships flat map<N>.mul files.
type LegacyClient struct {
	dir string
}

// NewLegacyClient reads client files from dir.
func NewLegacyClient(dir string) *LegacyClient {
	return &LegacyClient{dir: dir}
}

func (c *LegacyClient) Name() string { return "legacy" }

// Seed copies map, statics and index when the client map has exactly the
// size m needs.
func (c *LegacyClient) Seed(ctx context.Context, shardDir string, m config.MapDefinition) (Action, bool, error) {
	name := store.MapFileName(m.Number)
	fi, err := os.Stat(filepath.Join(c.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("stat client map: %w", err)
	}
	if fi.Size() != NeededMapSize(m) {
		return 0, false, nil
	}
	err = copyAll(ctx, c.dir, shardDir, name, store.StaticsFileName(m.Number), store.IndexFileName(m.Number))
	if err != nil {
		return 0, false, err
	}
	return Copied, true, nil
}

// UOPClient seeds from a client that ships maps as map<N>LegacyMUL.uop
// containers next to flat statics files.
type UOPClient struct {
	dir string
	log zerolog.Logger
}

// NewUOPClient reads client files from dir.
func NewUOPClient(dir string, log zerolog.Logger) *UOPClient {
	return &UOPClient{dir: dir, log: log}
}

func (c *UOPClient) Name() string { return "uop" }

// ContainerName is the client container holding map n.
func ContainerName(n int) string {
	return fmt.Sprintf("map%dLegacyMUL.uop", n)
}

// Seed converts the client container into the shard map when it flattens
// to exactly the size m needs, then copies statics and index.
func (c *UOPClient) Seed(ctx context.Context, shardDir string, m config.MapDefinition) (Action, bool, error) {
	src := filepath.Join(c.dir, ContainerName(m.Number))
	size, err := uop.UncompressedSize(src)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if int64(size) != NeededMapSize(m) {
		c.log.Debug().
			Int("map", m.Number).
			Uint64("size", size).
			Int64("needed", NeededMapSize(m)).
			Msg("client container size does not match map definition")
		return 0, false, nil
	}

	name := store.MapFileName(m.Number)
	x := uop.NewExtractor(c.log.With().Int("map", m.Number).Logger())
	if _, err := x.Convert(src, filepath.Join(shardDir, name), SinkFor(ctx, name)); err != nil {
		return 0, false, err
	}
	if err := copyAll(ctx, c.dir, shardDir, store.StaticsFileName(m.Number), store.IndexFileName(m.Number)); err != nil {
		return 0, false, err
	}
	return Converted, true, nil
}
