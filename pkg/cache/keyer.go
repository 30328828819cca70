package cache

// Keyer builds cache keys for each cached entry type.
type Keyer interface {
	// LayoutKey identifies the graph laid out from a flow.
	LayoutKey(flowHash string, opts LayoutKeyOpts) string
	// ArtifactKey identifies a rendered output of a graph.
	ArtifactKey(graphHash string, opts ArtifactKeyOpts) string
	// SummaryKey identifies a summarization response for source code.
	SummaryKey(endpoint, codeHash string) string
}

// LayoutKeyOpts are the layout parameters that change the result.
type LayoutKeyOpts struct {
	Vertical   float64 `json:"v"`
	Horizontal float64 `json:"h"`
	SubPhase   float64 `json:"s"`
	OriginX    float64 `json:"ox"`
	OriginY    float64 `json:"oy"`
}

// ArtifactKeyOpts are the render parameters that change the result.
type ArtifactKeyOpts struct {
	Format   string   `json:"format"`
	Expanded []string `json:"expanded,omitempty"`
}

// DefaultKeyer hashes the options together with the content hash.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey returns "layout:<sha256>".
func (DefaultKeyer) LayoutKey(flowHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", flowHash, opts)
}

// ArtifactKey returns "artifact:<sha256>".
func (DefaultKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", graphHash, opts)
}

// SummaryKey returns "summary:<sha256>".
func (DefaultKeyer) SummaryKey(endpoint, codeHash string) string {
	return hashKey("summary", endpoint, codeHash)
}

var _ Keyer = DefaultKeyer{}
