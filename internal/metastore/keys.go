package metastore

import (
	"encoding/binary"
	"fmt"
)

// Key prefixes of the metadata keyspace: __space__, __parts__,
// __hosts__, __zones__, __groups__, __jobs__, __balance_task__ and the
// singleton __last_update_time__.
const (
	prefixSpace       = "__space__"
	prefixParts       = "__parts__"
	prefixHosts       = "__hosts__"
	prefixZones       = "__zones__"
	prefixGroups      = "__groups__"
	prefixJobs        = "__jobs__"
	prefixBalanceTask = "__balance_task__"
	keyLastUpdateTime = "__last_update_time__"
)

func encodeInt64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

// SpaceKey addresses a space's SpaceProperties record.
func SpaceKey(spaceID int64) []byte {
	return append([]byte(prefixSpace), encodeInt64(spaceID)...)
}

// SpacePrefix addresses every known space record, used to resolve a job's
// spaceName parameter to a GraphSpaceID.
func SpacePrefix() []byte {
	return []byte(prefixSpace)
}

// PartPrefix addresses every partition-placement record of a space.
func PartPrefix(spaceID int64) []byte {
	return append([]byte(prefixParts), encodeInt64(spaceID)...)
}

// PartKey addresses one partition's PartAllocation record.
func PartKey(spaceID int64, partID int32) []byte {
	k := PartPrefix(spaceID)
	k = append(k, make([]byte, 4)...)
	binary.BigEndian.PutUint32(k[len(k)-4:], uint32(partID))
	return k
}

// HostKey addresses a host's liveness/heartbeat record.
func HostKey(host string) []byte {
	return []byte(prefixHosts + host)
}

// HostPrefix addresses every known host record.
func HostPrefix() []byte {
	return []byte(prefixHosts)
}

// ZoneKey addresses a named zone's host list.
func ZoneKey(name string) []byte {
	return []byte(prefixZones + name)
}

// ZonePrefix addresses every zone record.
func ZonePrefix() []byte {
	return []byte(prefixZones)
}

// GroupKey addresses a named group's zone list.
func GroupKey(name string) []byte {
	return []byte(prefixGroups + name)
}

// GroupPrefix addresses every group record.
func GroupPrefix() []byte {
	return []byte(prefixGroups)
}

// JobKey addresses a job's status record.
func JobKey(jobID int64) []byte {
	return append([]byte(prefixJobs), encodeInt64(jobID)...)
}

// BalanceTaskKey addresses a single BalanceTask's persisted record.
func BalanceTaskKey(jobID int64, spaceID int64, partID int32) []byte {
	k := append([]byte(prefixBalanceTask), encodeInt64(jobID)...)
	k = append(k, encodeInt64(spaceID)...)
	k = append(k, make([]byte, 4)...)
	binary.BigEndian.PutUint32(k[len(k)-4:], uint32(partID))
	return k
}

// BalanceTaskPrefix addresses every task belonging to one job.
func BalanceTaskPrefix(jobID int64) []byte {
	return append([]byte(prefixBalanceTask), encodeInt64(jobID)...)
}

// LastUpdateTimeKey addresses the singleton last-update-time record.
func LastUpdateTimeKey() []byte {
	return []byte(keyLastUpdateTime)
}

// ParsePartKey recovers (spaceID, partID) from a key built by PartKey.
// Used by callers that enumerate a space's placement via Prefix.
func ParsePartKey(key []byte) (spaceID int64, partID int32, err error) {
	want := len(prefixParts) + 8 + 4
	if len(key) != want {
		return 0, 0, fmt.Errorf("metastore: malformed part key of length %d, want %d", len(key), want)
	}
	spaceID = int64(binary.BigEndian.Uint64(key[len(prefixParts) : len(prefixParts)+8]))
	partID = int32(binary.BigEndian.Uint32(key[len(prefixParts)+8:]))
	return spaceID, partID, nil
}
