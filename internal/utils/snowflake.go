package utils

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node    *snowflake.Node
	nodeErr error
	once    sync.Once
)

// defaultNodeID is used when IDs are requested before InitSnowflake,
// which only happens in tests and one-off tooling.
const defaultNodeID = 1

// InitSnowflake initializes the snowflake node with datacenter and worker IDs.
// Only the first call has any effect.
func InitSnowflake(datacenterID, workerID int64) error {
	if datacenterID < 0 || datacenterID > 31 || workerID < 0 || workerID > 31 {
		return fmt.Errorf("snowflake ids out of range: datacenter=%d worker=%d", datacenterID, workerID)
	}
	once.Do(func() {
		// DatacenterID uses 5 bits (0-31), WorkerID uses 5 bits (0-31)
		node, nodeErr = snowflake.NewNode((datacenterID << 5) | workerID)
	})
	return nodeErr
}

// GenerateID generates a unique snowflake ID
func GenerateID() (int64, error) {
	once.Do(func() {
		node, nodeErr = snowflake.NewNode(defaultNodeID)
	})
	if nodeErr != nil {
		return 0, fmt.Errorf("snowflake node not initialized: %w", nodeErr)
	}
	return node.Generate().Int64(), nil
}
