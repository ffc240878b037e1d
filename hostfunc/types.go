package hostfunc

// FSEntry is one element of an fs_list result.
type FSEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// FSStat is the result of fs_stat.
type FSStat struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	IsDir   bool   `json:"is_dir"`
	ModTime int64  `json:"mod_time"`
}

// Resolved is the result of resolve_sync.
type Resolved struct {
	// Path is the filesystem path for file modules, and the URL otherwise.
	Path   string `json:"path"`
	URL    string `json:"url"`
	Format string `json:"format"`
}
