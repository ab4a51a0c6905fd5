// Package modelstore fetches model artifacts into a local cache and verifies them before use.
//
// An artifact becomes visible under its final name only after its sha256 matched the
// registry digest. Downloads land in a temp file in the same folder and are renamed into place,
// so a failed fetch or a mismatch never leaves a usable partial file behind.
package modelstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/iacsec/internal/registry"
	"github.com/scan-io-git/iacsec/pkg/shared/config"
	"github.com/scan-io-git/iacsec/pkg/shared/errors"
	"github.com/scan-io-git/iacsec/pkg/shared/files"
	"github.com/scan-io-git/iacsec/pkg/shared/httpclient"
)

// Store is a content-verified cache of model artifacts.
type Store struct {
	cacheDir string
	client   *resty.Client
	logger   hclog.Logger
}

// New returns a Store rooted at cacheDir. client is only needed for http(s) artifacts.
func New(cacheDir string, client *resty.Client, logger hclog.Logger) *Store {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Store{cacheDir: cacheDir, client: client, logger: logger}
}

// NewFromConfig returns a Store on the configured cache folder with the configured HTTP client.
func NewFromConfig(cfg *config.Config, logger hclog.Logger) *Store {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return New(config.GetCacheHome(cfg), httpclient.InitializeRestyClient(logger, cfg), logger)
}

// CacheDir returns the folder artifacts are stored in.
func (s *Store) CacheDir() string {
	return s.cacheDir
}

// Ensure returns the local path of a verified copy of artifact, fetching it when the cache
// is empty or holds content with a different digest. model names the owner in errors.
func (s *Store) Ensure(ctx context.Context, model, fileName string, artifact registry.Artifact) (string, error) {
	if err := files.CreateFolderIfNotExists(s.cacheDir); err != nil {
		return "", fmt.Errorf("failed to prepare model cache: %w", err)
	}
	target := filepath.Join(s.cacheDir, fileName)

	if _, err := os.Stat(target); err == nil {
		actual, err := FileSHA256(target)
		if err != nil {
			return "", fmt.Errorf("failed to hash cached artifact %q: %w", target, err)
		}
		if strings.EqualFold(actual, artifact.SHA256) {
			s.logger.Debug("cached artifact verified", "model", model, "path", target)
			return target, nil
		}
		s.logger.Warn("cached artifact digest mismatch, fetching again", "model", model, "path", target, "expected", artifact.SHA256, "actual", actual)
	}

	if err := s.fetch(ctx, model, target, artifact); err != nil {
		return "", err
	}
	return target, nil
}

func (s *Store) fetch(ctx context.Context, model, target string, artifact registry.Artifact) error {
	tmp, err := os.CreateTemp(s.cacheDir, "."+filepath.Base(target)+".*.partial")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %q: %w", s.cacheDir, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	hasher := sha256.New()
	s.logger.Info("fetching model artifact", "model", model, "uri", artifact.URI)
	if err := s.copyFrom(ctx, artifact.URI, io.MultiWriter(tmp, hasher)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to fetch %q for model %q: %w", artifact.URI, model, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %q: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %q: %w", tmpPath, err)
	}

	actual := hex.EncodeToString(hasher.Sum(nil))
	if !strings.EqualFold(actual, artifact.SHA256) {
		// a stale cached copy must not survive a failed refresh either
		os.Remove(target)
		return &errors.HashMismatchError{Model: model, Path: target, Expected: artifact.SHA256, Actual: actual}
	}

	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("failed to install %q: %w", target, err)
	}
	committed = true
	s.logger.Info("model artifact installed", "model", model, "path", target)
	return nil
}

func (s *Store) copyFrom(ctx context.Context, uri string, w io.Writer) error {
	parsed, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid uri: %w", err)
	}

	switch parsed.Scheme {
	case "http", "https":
		return s.download(ctx, uri, w)
	case "file":
		return copyLocal(parsed.Path, w)
	case "":
		path, err := files.ExpandPath(uri)
		if err != nil {
			return err
		}
		return copyLocal(path, w)
	default:
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
}

func (s *Store) download(ctx context.Context, uri string, w io.Writer) error {
	if s.client == nil {
		return fmt.Errorf("no http client configured")
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(uri)
	if err != nil {
		return err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status())
	}
	if _, err := io.Copy(w, body); err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	return nil
}

func copyLocal(path string, w io.Writer) error {
	if err := files.ValidatePath(path); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// FileSHA256 returns the lowercase hex sha256 digest of the file at path.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
