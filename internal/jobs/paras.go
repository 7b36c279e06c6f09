package jobs

import (
	"strconv"
	"strings"

	"github.com/darionyaphet/nebula-storage/internal/balance"
)

// ParsedParas is the result of parsing a job's paras: either
// [spaceName] or [comma-separated-host-list, spaceName].
type ParsedParas struct {
	SpaceName string
	LostHosts []balance.HostAddr
}

// ParseParas parses paras before any state is touched. A single element
// is just the space name. Two elements are
// [comma-separated-host-list, spaceName].
func ParseParas(paras []string) (ParsedParas, error) {
	switch len(paras) {
	case 1:
		name := strings.TrimSpace(paras[0])
		if name == "" {
			return ParsedParas{}, balance.NewError(balance.CodeInvalidParm, "empty space name")
		}
		return ParsedParas{SpaceName: name}, nil
	case 2:
		name := strings.TrimSpace(paras[1])
		if name == "" {
			return ParsedParas{}, balance.NewError(balance.CodeInvalidParm, "empty space name")
		}
		hosts, err := parseHostList(paras[0])
		if err != nil {
			return ParsedParas{}, err
		}
		return ParsedParas{SpaceName: name, LostHosts: hosts}, nil
	default:
		return ParsedParas{}, balance.NewError(balance.CodeInvalidParm, "expected 1 or 2 paras, got "+strconv.Itoa(len(paras)))
	}
}

// parseHostList parses a comma-separated "ip:port,ip:port" list. Any
// malformed entry fails the whole job before anything is touched, rather
// than silently dropping it.
func parseHostList(s string) ([]balance.HostAddr, error) {
	var hosts []balance.HostAddr
	for _, raw := range strings.Split(s, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		h, err := ParseHostAddr(raw)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}
	if len(hosts) == 0 {
		return nil, balance.NewError(balance.CodeInvalidParm, "empty host list")
	}
	return hosts, nil
}

// ParseHostAddr parses "ip:port" into a balance.HostAddr, E_INVALID_PARM
// on any malformed input.
func ParseHostAddr(s string) (balance.HostAddr, error) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return balance.HostAddr{}, balance.NewError(balance.CodeInvalidParm, "malformed host address: "+s)
	}
	ip := s[:idx]
	port, err := strconv.ParseUint(s[idx+1:], 10, 16)
	if err != nil {
		return balance.HostAddr{}, balance.NewError(balance.CodeInvalidParm, "malformed host port: "+s)
	}
	return balance.HostAddr{IP: ip, Port: uint16(port)}, nil
}
