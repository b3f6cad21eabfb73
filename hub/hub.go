// Package hub fetches pretrained tokenizer and model artifact files from a
// HuggingFace-style repository into a local cache, so the pipeline can be
// pointed at a checkpoint name instead of pre-downloaded files.
package hub

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DefaultBaseURL is the repository host artifacts resolve against.
const DefaultBaseURL = "https://huggingface.co"

// DefaultDirCreationPerm is used when creating cache directories.
const DefaultDirCreationPerm = os.FileMode(0o755)

// Repo represents one remote model repository, e.g. "klue/bert-base".
type Repo struct {
	name     string
	baseURL  string
	cacheDir string
	revision string
	client   *http.Client
}

// New creates a reference to a repository. Artifacts cache under the user
// cache directory by default.
func New(name string) *Repo {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return &Repo{
		name:     name,
		baseURL:  DefaultBaseURL,
		cacheDir: filepath.Join(cacheDir, "relex", "hub"),
		revision: "main",
		client:   http.DefaultClient,
	}
}

// WithCacheDir changes the cache directory. It returns the Repo for chaining.
func (r *Repo) WithCacheDir(dir string) *Repo {
	r.cacheDir = dir
	return r
}

// WithBaseURL changes the repository host. It returns the Repo for chaining.
func (r *Repo) WithBaseURL(baseURL string) *Repo {
	r.baseURL = strings.TrimSuffix(baseURL, "/")
	return r
}

// WithClient changes the HTTP client. It returns the Repo for chaining.
func (r *Repo) WithClient(client *http.Client) *Repo {
	r.client = client
	return r
}

// FileURL returns the resolve URL for a file in the repository.
func (r *Repo) FileURL(filename string) string {
	return r.baseURL + "/" + r.name + "/resolve/" + r.revision + "/" + filename
}

// localPath returns where a repository file caches on disk.
func (r *Repo) localPath(filename string) string {
	sanitized := url.PathEscape(r.name)
	return filepath.Join(r.cacheDir, sanitized, filepath.FromSlash(filename))
}

// DownloadFile fetches one file from the repository, returning its local
// path. Cached files are reused without touching the network. Concurrent
// fetchers of the same file coordinate through a file lock, and downloads go
// to a temporary file that is atomically renamed once complete.
func (r *Repo) DownloadFile(ctx context.Context, filename string) (string, error) {
	filePath := r.localPath(filename)
	if fileExists(filePath) {
		return filePath, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(path.Dir(filePath), DefaultDirCreationPerm); err != nil {
		return "", errors.Wrapf(err, "failed to create directory for file %q", filePath)
	}

	var mainErr error
	lockPath := filePath + ".lock"
	errLock := execOnFileLock(lockPath, func() {
		if fileExists(filePath) {
			// Some concurrent other process already downloaded the file.
			return
		}
		mainErr = r.fetch(ctx, filename, filePath)
		if mainErr != nil {
			return
		}
		// File exists now, the lock file is no longer needed.
		if err := os.Remove(lockPath); err != nil {
			klog.Warningf("error removing lock file %q: %+v", lockPath, err)
		}
	})
	if mainErr != nil {
		return "", mainErr
	}
	if errLock != nil {
		return "", errors.WithMessagef(errLock, "while locking %q to download %q", lockPath, filename)
	}
	return filePath, nil
}

func (r *Repo) fetch(ctx context.Context, filename, filePath string) error {
	fileURL := r.FileURL(filename)
	tmpPath := filePath + ".downloading"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return errors.Wrapf(err, "creating temporary file for download in %q", tmpPath)
	}
	var tmpFileClosed bool
	defer func() {
		// On any failure close and remove the unfinished temporary file.
		if !tmpFileClosed {
			if err := tmpFile.Close(); err != nil {
				klog.Warningf("failed closing temporary file %q: %v", tmpPath, err)
			}
			if err := os.Remove(tmpPath); err != nil {
				klog.Warningf("failed removing temporary file %q: %v", tmpPath, err)
			}
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return errors.Wrapf(err, "building request for %q", fileURL)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "while downloading %q", fileURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("downloading %q: unexpected status %s", fileURL, resp.Status)
	}
	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		return errors.Wrapf(err, "while downloading %q to %q", fileURL, tmpPath)
	}

	tmpFileClosed = true
	if err := tmpFile.Close(); err != nil {
		return errors.Wrapf(err, "failed to close temporary download file %q", tmpPath)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		return errors.Wrapf(err, "failed to move downloaded file %q to %q", tmpPath, filePath)
	}
	klog.V(1).Infof("downloaded %q to %q", fileURL, filePath)
	return nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
