package main

import (
	"github.com/openherd/agentd/internal/port/agenttype"
)

// agentTypeSource returns the discovery source for agent types: the
// process-wide registration table that built-in types register into.
func agentTypeSource() agenttype.Source {
	return agenttype.Default
}
