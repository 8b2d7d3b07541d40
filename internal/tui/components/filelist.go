package components

// FileStatus is the display state of one file in the batch.
type FileStatus string

const (
	FilePending FileStatus = "pending"
	FileRunning FileStatus = "running"
	FilePassed  FileStatus = "passed"
	FileWarning FileStatus = "warning"
	FileFailed  FileStatus = "failed"
	FileSkipped FileStatus = "skipped"
)

// FileEntry is one row of the file list.
type FileEntry struct {
	Path    string
	Name    string
	Status  FileStatus
	Step    string
	Detail  string
	Percent *float64
}

// FileList keeps the rows in batch order and windows them for display.
type FileList struct {
	entries []FileEntry
}

// NewFileList constructs a file list component.
func NewFileList(entries []FileEntry) FileList {
	return FileList{entries: append([]FileEntry(nil), entries...)}
}

// Window returns at most size entries, scrolled so the first running or
// pending file stays visible.
func (l FileList) Window(size int) []FileEntry {
	if size <= 0 || len(l.entries) <= size {
		return append([]FileEntry(nil), l.entries...)
	}

	focus := len(l.entries) - 1
	for i, entry := range l.entries {
		if entry.Status == FileRunning || entry.Status == FilePending {
			focus = i
			break
		}
	}

	start := focus - size/2
	if start < 0 {
		start = 0
	}
	if start+size > len(l.entries) {
		start = len(l.entries) - size
	}
	return append([]FileEntry(nil), l.entries[start:start+size]...)
}
