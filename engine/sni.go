package engine

import (
	"github.com/kbukum/clientengine/transport"
)

// StaticSNIProvider returns a provider presenting names, in order, for every
// connection regardless of the target or the names the transport proposes.
// A name the transport rejects fails construction.
func StaticSNIProvider(names []string) (transport.SNIProvider, error) {
	hostNames := make([]transport.SNIHostName, 0, len(names))
	for _, name := range names {
		h, err := transport.NewSNIHostName(name)
		if err != nil {
			return nil, err
		}
		hostNames = append(hostNames, h)
	}

	return func(transport.Address, []transport.SNIHostName) []transport.SNIHostName {
		out := make([]transport.SNIHostName, len(hostNames))
		copy(out, hostNames)
		return out
	}, nil
}
