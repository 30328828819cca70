package cache

// ScopedKeyer prepends a fixed prefix to every key of an inner [Keyer].
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "phaseflow:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner. A nil inner uses [NewDefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) LayoutKey(flowHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(flowHash, opts)
}

func (k *ScopedKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(graphHash, opts)
}

func (k *ScopedKeyer) SummaryKey(endpoint, codeHash string) string {
	return k.prefix + k.inner.SummaryKey(endpoint, codeHash)
}
