package balance

import "sort"

// sortedHostsByParts returns the hosts of hp sorted ascending by current
// partition count. Ties are broken by HostAddr order only to make test
// output deterministic; nothing else may depend on a particular
// tie-break.
func sortedHostsByParts(hp HostParts) []HostAddr {
	hosts := hp.Hosts()
	sort.Slice(hosts, func(i, j int) bool {
		ci, cj := len(hp[hosts[i]]), len(hp[hosts[j]])
		if ci != cj {
			return ci < cj
		}
		return hosts[i].Less(hosts[j])
	})
	return hosts
}

// setDiff returns the elements of a not present in b, order preserved
// from a.
func setDiff(a, b []PartitionID) []PartitionID {
	inB := make(map[PartitionID]struct{}, len(b))
	for _, p := range b {
		inB[p] = struct{}{}
	}
	var out []PartitionID
	for _, p := range a {
		if _, ok := inB[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}

// containsPart reports whether parts holds p.
func containsPart(parts []PartitionID, p PartitionID) bool {
	for _, x := range parts {
		if x == p {
			return true
		}
	}
	return false
}

// removePart returns parts with the first occurrence of p removed.
func removePart(parts []PartitionID, p PartitionID) []PartitionID {
	for i, x := range parts {
		if x == p {
			out := make([]PartitionID, 0, len(parts)-1)
			out = append(out, parts[:i]...)
			out = append(out, parts[i+1:]...)
			return out
		}
	}
	return parts
}

// hostWithMinimalParts returns, among candidates, the host with the
// fewest partitions in hp that does not already hold part. ok is false
// if no candidate qualifies.
func hostWithMinimalParts(hp HostParts, candidates []HostAddr, part PartitionID) (host HostAddr, ok bool) {
	best := -1
	for _, h := range candidates {
		if containsPart(hp[h], part) {
			continue
		}
		if c := len(hp[h]); best == -1 || c < best {
			best = c
			host = h
			ok = true
		}
	}
	return host, ok
}
