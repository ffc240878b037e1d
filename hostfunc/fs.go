package hostfunc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MountMode is the permission level of a mount.
type MountMode int

const (
	// MountReadOnly allows reads only.
	MountReadOnly MountMode = iota
	// MountReadWrite allows writing files that already exist.
	MountReadWrite
	// MountReadWriteCreate also allows creating files.
	MountReadWriteCreate
)

func (m MountMode) String() string {
	switch m {
	case MountReadWrite:
		return "rw"
	case MountReadWriteCreate:
		return "rwc"
	default:
		return "ro"
	}
}

// ParseMountMode accepts "ro", "rw" and "rwc".
func ParseMountMode(s string) (MountMode, error) {
	switch s {
	case "", "ro":
		return MountReadOnly, nil
	case "rw":
		return MountReadWrite, nil
	case "rwc":
		return MountReadWriteCreate, nil
	}
	return 0, fmt.Errorf("unknown mount mode %q (want ro, rw or rwc)", s)
}

// Mount maps a path the program sees to a host directory.
type Mount struct {
	VirtualPath string
	HostPath    string
	Mode        MountMode
}

// ErrPermission is returned for paths outside every mount and for writes
// the mount does not allow.
var ErrPermission = errors.New("permission denied")

// FSOption configures an FS.
type FSOption func(*FS)

// WithMaxFileSize caps the size of files fs_read returns.
func WithMaxFileSize(n int64) FSOption {
	return func(f *FS) { f.maxFileSize = n }
}

// WithMaxWriteSize caps the content size fs_write accepts.
func WithMaxWriteSize(n int64) FSOption {
	return func(f *FS) { f.maxWriteSize = n }
}

// WithMaxPathLength caps the length of paths.
func WithMaxPathLength(n int) FSOption {
	return func(f *FS) { f.maxPathLength = n }
}

// FS is file access restricted to a set of mounts.
type FS struct {
	mounts        []Mount
	maxFileSize   int64
	maxWriteSize  int64
	maxPathLength int
}

// NewFS returns an FS over mounts. Mounts whose host path cannot be made
// absolute are dropped.
func NewFS(mounts []Mount, opts ...FSOption) *FS {
	f := &FS{
		maxFileSize:   10 << 20,
		maxWriteSize:  10 << 20,
		maxPathLength: 4096,
	}
	for _, opt := range opts {
		opt(f)
	}
	for _, m := range mounts {
		hp, err := filepath.Abs(m.HostPath)
		if err != nil {
			continue
		}
		f.mounts = append(f.mounts, Mount{
			VirtualPath: "/" + strings.Trim(filepath.ToSlash(m.VirtualPath), "/"),
			HostPath:    hp,
			Mode:        m.Mode,
		})
	}
	return f
}

// Mounts returns the normalized mounts.
func (f *FS) Mounts() []Mount {
	return append([]Mount(nil), f.mounts...)
}

// resolve maps a program path to a host path and its mount. The longest
// matching mount wins.
func (f *FS) resolve(virtualPath string, write bool) (string, *Mount, error) {
	if len(virtualPath) > f.maxPathLength {
		return "", nil, fmt.Errorf("path too long (%d > %d)", len(virtualPath), f.maxPathLength)
	}
	vp := filepath.ToSlash(filepath.Clean("/" + strings.TrimPrefix(filepath.ToSlash(virtualPath), "/")))

	var best *Mount
	for i := range f.mounts {
		m := &f.mounts[i]
		if vp != m.VirtualPath && !strings.HasPrefix(vp, strings.TrimSuffix(m.VirtualPath, "/")+"/") {
			continue
		}
		if best == nil || len(m.VirtualPath) > len(best.VirtualPath) {
			best = m
		}
	}
	if best == nil {
		return "", nil, fmt.Errorf("%w: %s is not in any mount", ErrPermission, virtualPath)
	}
	if write && best.Mode == MountReadOnly {
		return "", nil, fmt.Errorf("%w: %s is on a read-only mount", ErrPermission, virtualPath)
	}

	rel := strings.TrimPrefix(vp, best.VirtualPath)
	hostPath := filepath.Join(best.HostPath, filepath.FromSlash(rel))
	if hostPath != best.HostPath && !strings.HasPrefix(hostPath, best.HostPath+string(filepath.Separator)) {
		return "", nil, fmt.Errorf("%w: %s escapes its mount", ErrPermission, virtualPath)
	}
	return hostPath, best, nil
}

func pathArg(args map[string]any) (string, error) {
	path, ok := stringArg(args, "path")
	if !ok {
		return "", errors.New("path required")
	}
	return path, nil
}

// Read is fs_read: {path} -> file contents as a string.
func (f *FS) Read(ctx context.Context, args map[string]any) (any, error) {
	path, err := pathArg(args)
	if err != nil {
		return nil, err
	}
	hostPath, _, err := f.resolve(path, false)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(hostPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, err
	}
	if info.Size() > f.maxFileSize {
		return nil, fmt.Errorf("file too large: %s (%d > %d bytes)", path, info.Size(), f.maxFileSize)
	}
	data, err := os.ReadFile(hostPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// Write is fs_write: {path, content} -> "ok".
func (f *FS) Write(ctx context.Context, args map[string]any) (any, error) {
	path, err := pathArg(args)
	if err != nil {
		return nil, err
	}
	content, ok := stringArg(args, "content")
	if !ok {
		return nil, errors.New("content required")
	}
	if int64(len(content)) > f.maxWriteSize {
		return nil, fmt.Errorf("content too large (%d > %d bytes)", len(content), f.maxWriteSize)
	}
	hostPath, mount, err := f.resolve(path, true)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(hostPath); errors.Is(err, fs.ErrNotExist) && mount.Mode != MountReadWriteCreate {
		return nil, fmt.Errorf("%w: cannot create %s", ErrPermission, path)
	}
	if err := os.WriteFile(hostPath, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return "ok", nil
}

// Exists is fs_exists: {path} -> bool. Paths outside the mounts do not
// exist from the program's point of view.
func (f *FS) Exists(ctx context.Context, args map[string]any) (any, error) {
	path, err := pathArg(args)
	if err != nil {
		return nil, err
	}
	hostPath, _, err := f.resolve(path, false)
	if err != nil {
		return false, nil
	}
	_, err = os.Stat(hostPath)
	return err == nil, nil
}

// Stat is fs_stat: {path} -> FSStat.
func (f *FS) Stat(ctx context.Context, args map[string]any) (any, error) {
	path, err := pathArg(args)
	if err != nil {
		return nil, err
	}
	hostPath, _, err := f.resolve(path, false)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(hostPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, err
	}
	return FSStat{
		Name:    info.Name(),
		Size:    info.Size(),
		IsDir:   info.IsDir(),
		ModTime: info.ModTime().Unix(),
	}, nil
}

// List is fs_list: {path} -> []FSEntry.
func (f *FS) List(ctx context.Context, args map[string]any) (any, error) {
	path, err := pathArg(args)
	if err != nil {
		return nil, err
	}
	hostPath, _, err := f.resolve(path, false)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(hostPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("directory not found: %s", path)
		}
		return nil, err
	}
	out := make([]FSEntry, 0, len(entries))
	for _, e := range entries {
		entry := FSEntry{Name: e.Name(), IsDir: e.IsDir()}
		if info, err := e.Info(); err == nil {
			entry.Size = info.Size()
		}
		out = append(out, entry)
	}
	return out, nil
}

// Register adds fs_read, fs_write, fs_exists, fs_stat and fs_list to r.
func (f *FS) Register(r *Registry) {
	r.Register("fs_read", f.Read)
	r.Register("fs_write", f.Write)
	r.Register("fs_exists", f.Exists)
	r.Register("fs_stat", f.Stat)
	r.Register("fs_list", f.List)
}
