package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/voidshard/tillcounter/pkg/store"
)

// getStore opens the store described by a "kind:target" string.
func getStore(ctx context.Context, out string, g *globals, log zerolog.Logger) (store.Store, func(), error) {
	noop := func() {}

	bits := strings.SplitN(out, ":", 2)
	if len(bits) != 2 {
		return nil, noop, fmt.Errorf("invalid store %q, expected [memory: jsonfile:/path/to/file.json sealed:/path/file.bin es8:http://elasticsearch:9200 redis:host:6379 postgres:postgres://...]", out)
	}
	kind, target := bits[0], bits[1]

	switch kind {
	case "memory":
		return store.NewMemory(), noop, nil
	case "jsonfile":
		return store.NewJSONFile(target), noop, nil
	case "sealed":
		s, err := store.NewSealedFile(target, g.SealKey, g.SignKey)
		return s, noop, err
	case "es8":
		var urls []string
		if target != "" {
			urls = append(urls, target)
		}
		s, err := store.NewElasticsearchV8(log, urls...)
		return s, noop, err
	case "redis":
		s, err := store.NewRedis(ctx, target)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { s.Close() }, nil
	case "postgres":
		s, err := store.NewPostgres(ctx, target)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	}

	return nil, noop, fmt.Errorf("unknown store kind %q", kind)
}
