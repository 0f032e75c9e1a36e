package fanout

import "math/rand"

// ReplicaSelector picks which replicas of one shard a request goes to.
type ReplicaSelector[Req any, Resp any] interface {
	Select(replicas []RemoteClient[Req, Resp]) []RemoteClient[Req, Resp]
}

// AllReplicaSelector fans out to every replica (the default for reads
// that want to tolerate any single replica being down).
type AllReplicaSelector[Req any, Resp any] struct{}

func (AllReplicaSelector[Req, Resp]) Select(replicas []RemoteClient[Req, Resp]) []RemoteClient[Req, Resp] {
	return replicas
}

// RandomReplicaSelector picks one replica uniformly at random. Rand is
// exposed so tests and callers that need reproducible selection can seed
// it rather than relying on the package-global RNG (§9 "Global RNG").
type RandomReplicaSelector[Req any, Resp any] struct {
	Rand *rand.Rand
}

func (s RandomReplicaSelector[Req, Resp]) Select(replicas []RemoteClient[Req, Resp]) []RemoteClient[Req, Resp] {
	if len(replicas) == 0 {
		return nil
	}
	intn := rand.Intn
	if s.Rand != nil {
		intn = s.Rand.Intn
	}
	return []RemoteClient[Req, Resp]{replicas[intn(len(replicas))]}
}

// ShardIdentifier is the comparable constraint a shard ID type must
// satisfy to be used as a map/selection key.
type ShardIdentifier interface {
	comparable
}

// Shard pairs a shard identifier with the replicated client that reaches
// every replica of that shard.
type Shard[Req any, Resp any, Id ShardIdentifier] struct {
	ID       Id
	Replicas *ReplicatedClient[Req, Resp]
}

// ShardSelector picks which shards a request is routed to.
type ShardSelector[Req any, Resp any, Id ShardIdentifier] interface {
	Select(shards []Shard[Req, Resp, Id]) []Shard[Req, Resp, Id]
}

// AllShardsSelector routes to every shard — the common case for a query
// that must scan the whole logical index.
type AllShardsSelector[Req any, Resp any, Id ShardIdentifier] struct{}

func (AllShardsSelector[Req, Resp, Id]) Select(shards []Shard[Req, Resp, Id]) []Shard[Req, Resp, Id] {
	return shards
}

// RandomShardSelector routes to one uniformly random shard.
type RandomShardSelector[Req any, Resp any, Id ShardIdentifier] struct {
	Rand *rand.Rand
}

func (s RandomShardSelector[Req, Resp, Id]) Select(shards []Shard[Req, Resp, Id]) []Shard[Req, Resp, Id] {
	if len(shards) == 0 {
		return nil
	}
	intn := rand.Intn
	if s.Rand != nil {
		intn = s.Rand.Intn
	}
	return []Shard[Req, Resp, Id]{shards[intn(len(shards))]}
}

// SpecificShardSelector routes to exactly one named shard, if present.
type SpecificShardSelector[Req any, Resp any, Id ShardIdentifier] struct {
	ID Id
}

func (s SpecificShardSelector[Req, Resp, Id]) Select(shards []Shard[Req, Resp, Id]) []Shard[Req, Resp, Id] {
	for _, shard := range shards {
		if shard.ID == s.ID {
			return []Shard[Req, Resp, Id]{shard}
		}
	}
	return nil
}
