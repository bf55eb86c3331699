package strategy

// Policy names a routing algorithm.
type Policy string

const (
	RoundRobin       Policy = "round-robin"
	LeastConnections Policy = "least-connections"
	ContentBased     Policy = "content-based"
	FileSize         Policy = "file-size"
)

// Policies returns every supported policy.
func Policies() []Policy {
	return []Policy{RoundRobin, LeastConnections, ContentBased, FileSize}
}

// ParsePolicy validates a policy name.
func ParsePolicy(name string) (Policy, bool) {
	for _, p := range Policies() {
		if string(p) == name {
			return p, true
		}
	}
	return "", false
}

func (p Policy) String() string {
	return string(p)
}
