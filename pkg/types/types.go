package types

// ContainerID identifies a partitioned container (collection) in the store.
type ContainerID string

// PartitionID is the opaque identifier the store assigns to a physical partition.
type PartitionID string

// PathName is a partition key path such as "/tenantId".
type PathName = string
