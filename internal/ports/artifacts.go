package ports

// Artifact describes a generated output file.
type Artifact struct {
	Path   string
	Exists bool
	Size   int64
}

// ArtifactInspector looks at files produced by steps. Both methods are best
// effort: they never fail aggregation.
type ArtifactInspector interface {
	Stat(path string) Artifact
	// Accuracy extracts an accuracy percentage from a report file. The
	// second return value is false when the file is missing or has no
	// recognisable accuracy line.
	Accuracy(path string) (float64, bool)
}
