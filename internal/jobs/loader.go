package jobs

import (
	"strconv"
	"time"

	"github.com/darionyaphet/nebula-storage/internal/balance"
	"github.com/darionyaphet/nebula-storage/internal/metastore"
)

// ResolveSpaceID scans every __space__ record looking for one whose Name
// matches: a straightforward linear scan rather than a secondary index,
// since the space count in one cluster is small enough that this is
// never the bottleneck.
func ResolveSpaceID(store metastore.Store, name string) (balance.GraphSpaceID, error) {
	it, err := store.Prefix(metastore.SpacePrefix())
	if err != nil {
		return 0, balance.NewError(balance.CodeStoreFailure, err.Error())
	}
	defer it.Close()

	for it.Next() {
		rec, err := metastore.DecodeSpace(it.Value())
		if err != nil {
			continue
		}
		if rec.Name == name {
			return rec.SpaceID, nil
		}
	}
	return 0, balance.NewError(balance.CodeNotFound, "no space named "+name)
}

// LoadSpace reads a space's SpaceProperties snapshot.
func LoadSpace(store metastore.Store, spaceID balance.GraphSpaceID) (balance.SpaceProperties, error) {
	b, err := store.Get(metastore.SpaceKey(spaceID))
	if err == metastore.ErrNotFound {
		return balance.SpaceProperties{}, balance.NewError(balance.CodeNotFound, "space not found")
	}
	if err != nil {
		return balance.SpaceProperties{}, balance.NewError(balance.CodeStoreFailure, err.Error())
	}
	rec, err := metastore.DecodeSpace(b)
	if err != nil {
		return balance.SpaceProperties{}, balance.NewError(balance.CodeUnknown, err.Error())
	}
	return balance.SpaceProperties{
		SpaceID:          rec.SpaceID,
		PartitionNum:     rec.PartitionNum,
		ReplicaFactor:    rec.ReplicaFactor,
		GroupName:        rec.GroupName,
		DependentOnGroup: rec.GroupName != "",
	}, nil
}

// LoadPlacement scans every __parts__ record of a space and builds its
// HostParts map plus totalParts (replica-slot count). It verifies the
// number of distinct partitions equals props.PartitionNum before
// multiplying by ReplicaFactor, since a correct E_NOT_FOUND requires the
// count check to run first.
func LoadPlacement(store metastore.Store, props balance.SpaceProperties) (balance.HostParts, int, error) {
	it, err := store.Prefix(metastore.PartPrefix(props.SpaceID))
	if err != nil {
		return nil, 0, balance.NewError(balance.CodeStoreFailure, err.Error())
	}
	defer it.Close()

	placement := make(balance.HostParts)
	distinctParts := 0
	for it.Next() {
		_, partID, err := metastore.ParsePartKey(it.Key())
		if err != nil {
			continue
		}
		rec, err := metastore.DecodePart(it.Value())
		if err != nil {
			continue
		}
		distinctParts++
		for _, hs := range rec.Hosts {
			h, err := ParseHostAddr(hs)
			if err != nil {
				continue
			}
			placement[h] = append(placement[h], partID)
		}
	}

	if distinctParts != int(props.PartitionNum) {
		return nil, 0, balance.NewError(balance.CodeNotFound,
			"space has a partition count mismatch: want "+strconv.Itoa(int(props.PartitionNum))+", found "+strconv.Itoa(distinctParts))
	}

	totalParts := distinctParts * int(props.ReplicaFactor)
	return placement, totalParts, nil
}

// LoadActiveHosts scans __hosts__ heartbeat records and returns the set
// whose last heartbeat is within ttl of now.
func LoadActiveHosts(store metastore.Store, ttl time.Duration, now time.Time) (balance.ActiveHosts, error) {
	it, err := store.Prefix(metastore.HostPrefix())
	if err != nil {
		return nil, balance.NewError(balance.CodeStoreFailure, err.Error())
	}
	defer it.Close()

	active := make(balance.ActiveHosts)
	cutoff := now.Add(-ttl).UnixNano()
	for it.Next() {
		rec, err := metastore.DecodeHost(it.Value())
		if err != nil {
			continue
		}
		if rec.LastHeartbeat < cutoff {
			continue
		}
		h, err := ParseHostAddr(rec.Host)
		if err != nil {
			continue
		}
		active[h] = struct{}{}
	}
	return active, nil
}

// LoadTopology scans every __zones__ and __groups__ record into a fresh
// *balance.Topology.
func LoadTopology(store metastore.Store) (*balance.Topology, error) {
	topo := balance.NewTopology()

	zit, err := store.Prefix(metastore.ZonePrefix())
	if err != nil {
		return nil, balance.NewError(balance.CodeStoreFailure, err.Error())
	}
	defer zit.Close()
	for zit.Next() {
		rec, err := metastore.DecodeZone(zit.Value())
		if err != nil {
			continue
		}
		hosts := make(map[balance.HostAddr]struct{}, len(rec.Hosts))
		for _, hs := range rec.Hosts {
			h, err := ParseHostAddr(hs)
			if err != nil {
				continue
			}
			hosts[h] = struct{}{}
		}
		topo.Zones[rec.Name] = balance.Zone{Name: rec.Name, Hosts: hosts}
	}

	git, err := store.Prefix(metastore.GroupPrefix())
	if err != nil {
		return nil, balance.NewError(balance.CodeStoreFailure, err.Error())
	}
	defer git.Close()
	for git.Next() {
		rec, err := metastore.DecodeGroup(git.Value())
		if err != nil {
			continue
		}
		topo.Groups[rec.Name] = balance.Group{Name: rec.Name, Zones: rec.Zones}
	}

	return topo, nil
}

// LoadJobStatus reads a __jobs__ record, for the status CLI command.
func LoadJobStatus(store metastore.Store, jobID balance.JobID) (metastore.JobRecord, error) {
	b, err := store.Get(metastore.JobKey(jobID))
	if err == metastore.ErrNotFound {
		return metastore.JobRecord{}, balance.NewError(balance.CodeNotFound, "job not found")
	}
	if err != nil {
		return metastore.JobRecord{}, balance.NewError(balance.CodeStoreFailure, err.Error())
	}
	rec, err := metastore.DecodeJob(b)
	if err != nil {
		return metastore.JobRecord{}, balance.NewError(balance.CodeUnknown, err.Error())
	}
	return rec, nil
}
