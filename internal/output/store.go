// Package output persists a generated brief as a JSON record next to its
// rendered Markdown.
package output

import (
	"context"
	"fmt"
	"strings"
)

const s3Scheme = "s3://"

// Artifacts are the two files written for a brief.
type Artifacts struct {
	JSON     []byte
	Markdown []byte
}

// Locations are where the artifacts ended up.
type Locations struct {
	JSON     string
	Markdown string
}

// Store writes both artifacts or neither.
type Store interface {
	Save(ctx context.Context, base string, artifacts Artifacts) (Locations, error)
	// Exists reports whether either artifact is already present.
	Exists(ctx context.Context, base string) (bool, error)
}

// S3Config configures the S3 store. Empty fields fall back to the default
// AWS configuration chain.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access-key"`
	SecretKey string `mapstructure:"secret-key"`
}

// Open picks a store for target and returns the base name to save under.
// Targets starting with s3:// go to S3, anything else is a local path.
func Open(ctx context.Context, target string, cfg S3Config) (Store, string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, "", fmt.Errorf("output target is empty")
	}

	if !strings.HasPrefix(target, s3Scheme) {
		return FileStore{}, TrimExt(target), nil
	}

	bucket, key, ok := strings.Cut(strings.TrimPrefix(target, s3Scheme), "/")
	if !ok || bucket == "" || strings.Trim(key, "/") == "" {
		return nil, "", fmt.Errorf("output target %q must look like s3://bucket/key", target)
	}

	store, err := NewS3Store(ctx, bucket, cfg)
	if err != nil {
		return nil, "", err
	}
	return store, TrimExt(key), nil
}

// TrimExt drops a trailing .json or .md from base.
func TrimExt(base string) string {
	for _, ext := range []string{".json", ".md"} {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return base
}

func names(base string) Locations {
	return Locations{JSON: base + ".json", Markdown: base + ".md"}
}
