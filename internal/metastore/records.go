package metastore

import "encoding/json"

// SpaceRecord is the __space__ value: a graph space's replication
// parameters.
type SpaceRecord struct {
	SpaceID       int64  `json:"space_id"`
	Name          string `json:"name"`
	PartitionNum  int32  `json:"partition_num"`
	ReplicaFactor int32  `json:"replica_factor"`
	GroupName     string `json:"group_name"`
}

// PartRecord is the __parts__ value: one partition's current host
// placement.
type PartRecord struct {
	SpaceID int64    `json:"space_id"`
	PartID  int32    `json:"part_id"`
	Hosts   []string `json:"hosts"`
}

// HostRecord is the __hosts__ value: a host's last heartbeat, used to
// derive ActiveHosts.
type HostRecord struct {
	Host          string `json:"host"`
	LastHeartbeat int64  `json:"last_heartbeat_unix_ns"`
}

// ZoneRecord is the __zones__ value: the host list belonging to a zone.
type ZoneRecord struct {
	Name  string   `json:"name"`
	Hosts []string `json:"hosts"`
}

// GroupRecord is the __groups__ value: the zone list belonging to a group.
type GroupRecord struct {
	Name  string   `json:"name"`
	Zones []string `json:"zones"`
}

// JobRecord is the __jobs__ value: a balance job's coarse status.
type JobRecord struct {
	JobID   int64    `json:"job_id"`
	SpaceID int64    `json:"space_id"`
	Kind    string   `json:"kind"` // "data" or "leader"
	Status  string   `json:"status"`
	StartMs int64    `json:"start_ms"`
	EndMs   int64    `json:"end_ms"`
	Paras   []string `json:"paras"`
}

// BalanceTaskRecord is the __balance_task__ value: one BalanceTask's
// state and result, written when its plan is invoked and again when the
// task reaches a terminal result. Intermediate states are not written,
// and nothing in this repository reads these records back to resume a
// plan.
type BalanceTaskRecord struct {
	JobID   int64  `json:"job_id"`
	SpaceID int64  `json:"space_id"`
	PartID  int32  `json:"part_id"`
	Src     string `json:"src"`
	Dst     string `json:"dst"`
	State   string `json:"state"`
	Result  string `json:"result"`
}

func marshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Every record type here is a plain struct of strings/ints/slices
		// thereof; Marshal can only fail on unsupported types (channels,
		// funcs, cyclic refs), none of which appear here.
		panic("metastore: unmarshalable record: " + err.Error())
	}
	return b
}

// EncodeSpace serializes a SpaceRecord for SpaceKey.
func EncodeSpace(r SpaceRecord) []byte { return marshal(r) }

// DecodeSpace deserializes a SpaceRecord.
func DecodeSpace(b []byte) (SpaceRecord, error) {
	var r SpaceRecord
	err := json.Unmarshal(b, &r)
	return r, err
}

// EncodePart serializes a PartRecord for PartKey.
func EncodePart(r PartRecord) []byte { return marshal(r) }

// DecodePart deserializes a PartRecord.
func DecodePart(b []byte) (PartRecord, error) {
	var r PartRecord
	err := json.Unmarshal(b, &r)
	return r, err
}

// EncodeHost serializes a HostRecord for HostKey.
func EncodeHost(r HostRecord) []byte { return marshal(r) }

// DecodeHost deserializes a HostRecord.
func DecodeHost(b []byte) (HostRecord, error) {
	var r HostRecord
	err := json.Unmarshal(b, &r)
	return r, err
}

// EncodeZone serializes a ZoneRecord for ZoneKey.
func EncodeZone(r ZoneRecord) []byte { return marshal(r) }

// DecodeZone deserializes a ZoneRecord.
func DecodeZone(b []byte) (ZoneRecord, error) {
	var r ZoneRecord
	err := json.Unmarshal(b, &r)
	return r, err
}

// EncodeGroup serializes a GroupRecord for GroupKey.
func EncodeGroup(r GroupRecord) []byte { return marshal(r) }

// DecodeGroup deserializes a GroupRecord.
func DecodeGroup(b []byte) (GroupRecord, error) {
	var r GroupRecord
	err := json.Unmarshal(b, &r)
	return r, err
}

// EncodeJob serializes a JobRecord for JobKey.
func EncodeJob(r JobRecord) []byte { return marshal(r) }

// DecodeJob deserializes a JobRecord.
func DecodeJob(b []byte) (JobRecord, error) {
	var r JobRecord
	err := json.Unmarshal(b, &r)
	return r, err
}

// EncodeBalanceTask serializes a BalanceTaskRecord for BalanceTaskKey.
func EncodeBalanceTask(r BalanceTaskRecord) []byte { return marshal(r) }

// DecodeBalanceTask deserializes a BalanceTaskRecord.
func DecodeBalanceTask(b []byte) (BalanceTaskRecord, error) {
	var r BalanceTaskRecord
	err := json.Unmarshal(b, &r)
	return r, err
}
