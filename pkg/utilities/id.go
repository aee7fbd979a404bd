package utilities

import (
	"errors"
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// ErrMalformedID is returned by ParseID for strings that cannot be an entity id.
var ErrMalformedID = errors.New("malformed id")

var (
	nodeOnce sync.Once
	node     *snowflake.Node
	nodeErr  error
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// IsKSUID reports whether s is a well-formed KSUID string.
func IsKSUID(s string) bool {
	_, err := ksuid.Parse(s)
	return err == nil
}

// nodeFromEnv reads the node id from SNOWFLAKE_NODE, defaulting to 1.
func nodeFromEnv() int64 {
	nodeEnv := os.Getenv("SNOWFLAKE_NODE")
	if nodeEnv == "" {
		return 1
	}
	nodeID, err := strconv.ParseInt(nodeEnv, 10, 64)
	if err != nil {
		return 1
	}
	return nodeID
}

// NewSnowflakeID returns a new entity id. All callers share one node so ids
// generated within the same millisecond still differ by sequence number.
func NewSnowflakeID() int64 {
	nodeOnce.Do(func() {
		node, nodeErr = snowflake.NewNode(nodeFromEnv())
		if nodeErr != nil {
			node, nodeErr = snowflake.NewNode(1)
		}
	})
	return node.Generate().Int64()
}

// ParseID validates a path or query id and returns its numeric form.
func ParseID(s string) (int64, error) {
	id, err := snowflake.ParseString(s)
	if err != nil || id.Int64() <= 0 {
		return 0, ErrMalformedID
	}
	return id.Int64(), nil
}

// FormatID renders an entity id the way it appears in JSON and URLs.
func FormatID(id int64) string {
	return snowflake.ParseInt64(id).String()
}
