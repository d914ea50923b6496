package kvstore

import (
	"context"
	"encoding/hex"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Options selects and configures a backend.
type Options struct {
	Backend       string
	DataDir       string
	DatabaseURL   string
	MaxConns      int32
	MinConns      int32
	MongoURI      string
	MongoDatabase string
	// EncryptionKey is an optional 64-char hex AES-256 key.
	EncryptionKey string
}

// Open builds the configured backend, wrapped with encryption when a key is set.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		st  Store
		err error
	)
	switch opts.Backend {
	case BackendMemory:
		st = NewMemory()
	case BackendFile, "":
		st, err = NewDir(opts.DataDir)
	case BackendPostgres:
		pool, perr := NewPool(ctx, opts.DatabaseURL, opts.MaxConns, opts.MinConns)
		if perr != nil {
			return nil, perr
		}
		st, err = NewPostgres(ctx, pool)
		if err != nil {
			pool.Close()
		}
	case BackendMongo:
		st, err = NewMongo(ctx, opts.MongoURI, opts.MongoDatabase)
	default:
		return nil, fmt.Errorf("kvstore: unknown backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	if opts.EncryptionKey == "" {
		return st, nil
	}
	key, err := hex.DecodeString(opts.EncryptionKey)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("kvstore: encryption key is not valid hex: %w", err)
	}
	enc, err := NewEncrypted(st, key)
	if err != nil {
		st.Close()
		return nil, err
	}
	return enc, nil
}
